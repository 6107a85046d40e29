package player

import (
	"time"

	"github.com/sonroyaalmerol/frenchfry/internal/audionode"
)

const DefaultVolume = 100

// TrackRef is a queued track. It is never modified after it is enqueued.
type TrackRef struct {
	Title       string
	URI         string
	DurationMs  int64
	RequesterID string

	Encoded    string
	Author     string
	IsStream   bool
	ArtworkURL string
}

func newTrackRef(t audionode.Track, requester string) TrackRef {
	return TrackRef{
		Title:       t.Title,
		URI:         t.URI,
		DurationMs:  t.Length.Milliseconds(),
		RequesterID: requester,
		Encoded:     t.Encoded,
		Author:      t.Author,
		IsStream:    t.IsStream,
		ArtworkURL:  t.ArtworkURL,
	}
}

func (t TrackRef) Duration() time.Duration {
	return time.Duration(t.DurationMs) * time.Millisecond
}

func (t TrackRef) nodeTrack() audionode.Track {
	return audionode.Track{
		Encoded:  t.Encoded,
		Title:    t.Title,
		Author:   t.Author,
		URI:      t.URI,
		Length:   t.Duration(),
		IsStream: t.IsStream,
	}
}

type State int

const (
	StateIdle State = iota
	StateConnecting
	StatePlaying
	StatePaused
	StateQueueEmpty
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateQueueEmpty:
		return "queue empty"
	case StateDisconnecting:
		return "disconnecting"
	}
	return "unknown"
}

// Snapshot is a copy of a session taken under its read lock.
type Snapshot struct {
	GuildID       string
	ChannelID     string
	TextChannelID string
	State         State
	Connected     bool
	Current       *TrackRef
	Position      time.Duration
	Queue         []TrackRef
	Repeat        bool
	Paused        bool
	Volume        int
}

type PlayResult struct {
	Tracks       []TrackRef
	PlaylistName string
	Position     int // 1-indexed queue slot of the first enqueued track
	Started      bool
}
