package player

import "context"

// Invocation identifies who issued a command and from where.
type Invocation struct {
	GuildID       string
	UserID        string
	TextChannelID string

	// VoiceChannelID is the caller's current voice channel, empty if none.
	VoiceChannelID string
}

type Requirement int

const (
	// RequireConnected fails unless the bot is already in the caller's channel.
	RequireConnected Requirement = iota
	// RequireJoin connects to the caller's channel when not yet connected.
	RequireJoin
)

// acquire runs the voice checks and returns the guild's session locked for
// writing. joined is true when this call connected the bot. The caller must
// call release.
func (m *Manager) acquire(ctx context.Context, inv Invocation, req Requirement) (s *VoiceSession, joined bool, err error) {
	if inv.VoiceChannelID == "" {
		return nil, false, ErrNoVoiceChannel
	}
	for {
		if req == RequireJoin {
			s = m.Get(inv.GuildID)
		} else if s = m.Peek(inv.GuildID); s == nil {
			return nil, false, ErrNotConnected
		}
		s.mu.Lock()
		if s.closed {
			// lost a race with a teardown
			s.mu.Unlock()
			continue
		}
		joined, err = s.ensureVoiceLocked(ctx, inv, req)
		if err != nil {
			s.release()
			return nil, false, err
		}
		return s, joined, nil
	}
}

func (s *VoiceSession) ensureVoiceLocked(ctx context.Context, inv Invocation, req Requirement) (bool, error) {
	if !s.connected {
		if req != RequireJoin {
			return false, ErrNotConnected
		}
		if !s.m.voice.CanJoin(inv.GuildID, inv.VoiceChannelID) {
			return false, ErrMissingPermission
		}
		if err := s.connectLocked(ctx, inv.VoiceChannelID, inv.TextChannelID); err != nil {
			return false, err
		}
		return true, nil
	}
	if s.channelID != inv.VoiceChannelID {
		return false, ErrChannelMismatch
	}
	return false, nil
}
