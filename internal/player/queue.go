package player

import "github.com/sonroyaalmerol/frenchfry/internal/utils"

// Queue holds the upcoming tracks of a session. The owning session's lock
// guards it.
type Queue struct {
	tracks []TrackRef
}

// Enqueue appends t and returns its 1-indexed position.
func (q *Queue) Enqueue(t TrackRef) int {
	q.tracks = append(q.tracks, t)
	return len(q.tracks)
}

// EnqueuePlaylist appends ts in order and returns the position of the first.
func (q *Queue) EnqueuePlaylist(ts []TrackRef) int {
	first := len(q.tracks) + 1
	q.tracks = append(q.tracks, ts...)
	return first
}

func (q *Queue) Shuffle() error {
	if len(q.tracks) == 0 {
		return ErrEmptyQueue
	}
	utils.ShuffleSlice(q.tracks)
	return nil
}

// Clear drops every upcoming track and reports how many there were.
func (q *Queue) Clear() int {
	n := len(q.tracks)
	q.tracks = nil
	return n
}

func (q *Queue) Pop() (TrackRef, bool) {
	if len(q.tracks) == 0 {
		return TrackRef{}, false
	}
	t := q.tracks[0]
	q.tracks[0] = TrackRef{}
	q.tracks = q.tracks[1:]
	return t, true
}

func (q *Queue) Len() int { return len(q.tracks) }

func (q *Queue) Tracks() []TrackRef {
	out := make([]TrackRef, len(q.tracks))
	copy(out, q.tracks)
	return out
}
