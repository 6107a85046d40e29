package player

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sonroyaalmerol/frenchfry/internal/audionode"
)

// Run feeds node events into their sessions until ctx is done or events is
// closed.
func (m *Manager) Run(ctx context.Context, events <-chan audionode.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			m.HandleEvent(ev)
		}
	}
}

// HandleEvent hands ev to its guild's session. Events for guilds without a
// session are dropped.
func (m *Manager) HandleEvent(ev audionode.Event) {
	s := m.Peek(ev.Guild())
	if s == nil {
		slog.Debug("node event without session", "guildID", ev.Guild(), "event", fmt.Sprintf("%T", ev))
		return
	}
	s.post(ev)
}

// HandleBotVoiceState reacts to the bot's own voice state changing outside
// of a command, e.g. a moderator moving or disconnecting it. at is when the
// update was received; updates older than the session's connection belong
// to an earlier session and are dropped.
func (m *Manager) HandleBotVoiceState(guildID, channelID string, at time.Time) {
	s := m.Peek(guildID)
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.connected {
		return
	}
	if at.Before(s.connectedAt) {
		slog.Debug("stale voice state", "guildID", guildID, "channelID", channelID)
		return
	}
	if channelID == "" {
		slog.Info("removed from voice", "guildID", guildID)
		s.teardownLocked(context.Background(), false)
		return
	}
	if channelID != s.channelID {
		slog.Info("moved to another voice channel", "guildID", guildID, "from", s.channelID, "to", channelID)
		s.channelID = channelID
	}
}

func (s *VoiceSession) dispatch(ev audionode.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	switch e := ev.(type) {
	case audionode.TrackStart:
		s.onTrackStartLocked(e)
	case audionode.TrackEnd:
		s.onTrackEndLocked(e)
	case audionode.TrackStuck:
		slog.Warn("track stuck", "guildID", s.guildID, "title", e.Track.Title)
		s.notifyTrackErrorLocked()
	case audionode.TrackException:
		slog.Warn("track exception", "guildID", s.guildID, "title", e.Track.Title, "err", e.Message)
		s.notifyTrackErrorLocked()
	case audionode.QueueEnd:
		if s.current != nil || s.queue.Len() > 0 {
			// stale, playback already resumed
			return
		}
		s.queueEndLocked()
	default:
		slog.Warn("unhandled node event", "guildID", s.guildID, "event", fmt.Sprintf("%T", ev))
	}
}

func (s *VoiceSession) onTrackStartLocked(e audionode.TrackStart) {
	s.cancelIdleTimerLocked()
	if s.paused {
		s.state = StatePaused
	} else {
		s.state = StatePlaying
	}
	slog.Info("track start", "guildID", s.guildID, "title", e.Track.Title)

	if s.repeat || s.textChannelID == "" || s.current == nil {
		return
	}
	ctx, cancel := s.m.nodeContext(context.Background())
	announce := s.m.settings(ctx, s.guildID).announce
	cancel()
	if !announce {
		return
	}
	msg := fmt.Sprintf("Now playing **%s** requested by <@%s>", s.current.Title, s.current.RequesterID)
	if err := s.m.msg.SendMessage(s.textChannelID, msg); err != nil {
		slog.Warn("now playing notice", "guildID", s.guildID, "err", err)
	}
}

func (s *VoiceSession) onTrackEndLocked(e audionode.TrackEnd) {
	if !e.MayStartNext {
		return
	}
	ctx := context.Background()
	if err := s.advanceLocked(ctx); err != nil {
		slog.Error("advance after track end", "guildID", s.guildID, "reason", e.Reason, "err", err)
	}
}

func (s *VoiceSession) notifyTrackErrorLocked() {
	if s.textChannelID == "" {
		return
	}
	if err := s.m.msg.SendMessage(s.textChannelID, "An error has occured whilst playing your track!"); err != nil {
		slog.Warn("track error notice", "guildID", s.guildID, "err", err)
	}
}
