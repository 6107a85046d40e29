package player

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Join connects to the caller's voice channel. It returns the channel name.
func (m *Manager) Join(ctx context.Context, inv Invocation) (string, error) {
	s, joined, err := m.acquire(ctx, inv, RequireJoin)
	if err != nil {
		return "", err
	}
	defer s.release()
	if !joined {
		return "", ErrAlreadyConnected
	}
	return m.voice.ChannelName(s.channelID), nil
}

// Play looks query up and enqueues the result, starting playback when
// nothing is playing.
func (m *Manager) Play(ctx context.Context, inv Invocation, query string) (PlayResult, error) {
	s, joined, err := m.acquire(ctx, inv, RequireJoin)
	if err != nil {
		return PlayResult{}, err
	}
	s.release()

	limit := m.settings(ctx, inv.GuildID).playlistLimit
	lookup, err := m.resolver.Resolve(ctx, query, limit)
	if err != nil {
		if joined {
			m.idleAfterFailedPlay(ctx, inv)
		}
		return PlayResult{}, err
	}

	s, _, err = m.acquire(ctx, inv, RequireConnected)
	if err != nil {
		return PlayResult{}, err
	}
	defer s.release()

	res := PlayResult{PlaylistName: lookup.PlaylistName}
	if lookup.PlaylistName != "" {
		for _, t := range lookup.Tracks {
			res.Tracks = append(res.Tracks, newTrackRef(t, inv.UserID))
		}
		res.Position = s.queue.EnqueuePlaylist(res.Tracks)
	} else {
		t := newTrackRef(lookup.Tracks[0], inv.UserID)
		res.Tracks = []TrackRef{t}
		res.Position = s.queue.Enqueue(t)
	}
	slog.Info("enqueued", "guildID", inv.GuildID, "tracks", len(res.Tracks), "position", res.Position)

	if s.current == nil {
		s.cancelIdleTimerLocked()
		if err := s.advanceLocked(ctx); err != nil {
			return res, err
		}
		res.Started = true
	}
	return res, nil
}

// idleAfterFailedPlay starts the grace timer for a session that play just
// connected but never gave anything to play.
func (m *Manager) idleAfterFailedPlay(ctx context.Context, inv Invocation) {
	s, _, err := m.acquire(context.WithoutCancel(ctx), inv, RequireConnected)
	if err != nil {
		return
	}
	defer s.release()
	if s.current == nil && s.queue.Len() == 0 && s.idleTimer == nil {
		s.queueEndLocked()
	}
}

func (m *Manager) Skip(ctx context.Context, inv Invocation) error {
	s, _, err := m.acquire(ctx, inv, RequireConnected)
	if err != nil {
		return err
	}
	defer s.release()
	if s.current == nil {
		return ErrNothingPlaying
	}
	return s.advanceLocked(ctx)
}

func (m *Manager) Pause(ctx context.Context, inv Invocation) error {
	return m.setPaused(ctx, inv, true)
}

func (m *Manager) Resume(ctx context.Context, inv Invocation) error {
	return m.setPaused(ctx, inv, false)
}

func (m *Manager) setPaused(ctx context.Context, inv Invocation, paused bool) error {
	s, _, err := m.acquire(ctx, inv, RequireConnected)
	if err != nil {
		return err
	}
	defer s.release()
	if s.current == nil {
		return ErrNothingPlaying
	}
	if paused && s.paused {
		return ErrAlreadyPaused
	}
	if !paused && !s.paused {
		return ErrNotPaused
	}

	nctx, cancel := m.nodeContext(ctx)
	defer cancel()
	if err := m.node.Pause(nctx, s.guildID, paused); err != nil {
		return fmt.Errorf("pause: %w", err)
	}
	s.paused = paused
	if paused {
		s.state = StatePaused
	} else {
		s.state = StatePlaying
	}
	return nil
}

// ParseVolume validates user input without clamping it. An out of range
// value is still returned alongside ErrVolumeOutOfRange.
func ParseVolume(raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%")))
	if err != nil {
		return 0, ErrVolumeNotNumber
	}
	if v < 0 || v > 100 {
		return v, ErrVolumeOutOfRange
	}
	return v, nil
}

// SetVolume changes the volume. The stored volume is untouched on error.
func (m *Manager) SetVolume(ctx context.Context, inv Invocation, volume int) error {
	s, _, err := m.acquire(ctx, inv, RequireConnected)
	if err != nil {
		return err
	}
	defer s.release()
	if volume < 0 || volume > 100 {
		return ErrVolumeOutOfRange
	}

	nctx, cancel := m.nodeContext(ctx)
	defer cancel()
	if err := m.node.SetVolume(nctx, s.guildID, volume); err != nil {
		return fmt.Errorf("set volume: %w", err)
	}
	s.volume = volume
	return nil
}

func (m *Manager) Seek(ctx context.Context, inv Invocation, position time.Duration) error {
	s, _, err := m.acquire(ctx, inv, RequireConnected)
	if err != nil {
		return err
	}
	defer s.release()
	if s.current == nil {
		return ErrNothingPlaying
	}
	if position < 0 {
		return ErrInvalidPosition
	}
	if s.current.IsStream || position > s.current.Duration() {
		return ErrSeekOutOfRange
	}

	nctx, cancel := m.nodeContext(ctx)
	defer cancel()
	if err := m.node.Seek(nctx, s.guildID, position); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	return nil
}

func (m *Manager) Shuffle(ctx context.Context, inv Invocation) error {
	s, _, err := m.acquire(ctx, inv, RequireConnected)
	if err != nil {
		return err
	}
	defer s.release()
	return s.queue.Shuffle()
}

// Clear empties the queue and returns how many tracks were removed. The
// current track keeps playing.
func (m *Manager) Clear(ctx context.Context, inv Invocation) (int, error) {
	s, _, err := m.acquire(ctx, inv, RequireConnected)
	if err != nil {
		return 0, err
	}
	defer s.release()
	return s.queue.Clear(), nil
}

// ToggleRepeat flips repeat and returns the new value.
func (m *Manager) ToggleRepeat(ctx context.Context, inv Invocation) (bool, error) {
	s, _, err := m.acquire(ctx, inv, RequireConnected)
	if err != nil {
		return false, err
	}
	defer s.release()
	s.repeat = !s.repeat
	return s.repeat, nil
}

// Disconnect tears the guild's session down and leaves voice.
func (m *Manager) Disconnect(ctx context.Context, inv Invocation) error {
	s := m.Peek(inv.GuildID)
	if s == nil {
		return ErrNotConnected
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.connected {
		return ErrNotConnected
	}
	if inv.VoiceChannelID == "" || inv.VoiceChannelID != s.channelID {
		return ErrChannelMismatch
	}
	s.teardownLocked(ctx, true)
	slog.Info("disconnected", "guildID", inv.GuildID, "userID", inv.UserID)
	return nil
}

// Snapshot returns a copy of the guild's session, if any.
func (m *Manager) Snapshot(guildID string) (Snapshot, bool) {
	s := m.Peek(guildID)
	if s == nil {
		return Snapshot{GuildID: guildID, Volume: DefaultVolume}, false
	}
	return s.Snapshot(), true
}
