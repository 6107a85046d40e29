package player

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sonroyaalmerol/frenchfry/internal/audionode"
	"github.com/sonroyaalmerol/frenchfry/internal/repository"
)

// VoiceGateway is the chat platform's voice side.
type VoiceGateway interface {
	// JoinVoice returns once the platform acknowledged the connection.
	JoinVoice(ctx context.Context, guildID, channelID string) error
	LeaveVoice(ctx context.Context, guildID string) error
	// CanJoin reports whether the bot has CONNECT and SPEAK in the channel.
	CanJoin(guildID, channelID string) bool
	ChannelName(channelID string) string
}

type Messenger interface {
	SendMessage(channelID, content string) error
}

type SettingsStore interface {
	UpsertSettings(ctx context.Context, guildID string) (*repository.Settings, error)
}

type Options struct {
	NodeTimeout   time.Duration
	IdleTimeout   time.Duration
	PlaylistLimit int

	// Settings overrides the defaults above per guild when set.
	Settings SettingsStore
}

// Manager owns the voice session of every guild.
type Manager struct {
	node     audionode.Node
	voice    VoiceGateway
	msg      Messenger
	resolver *Resolver
	opts     Options

	mu       sync.Mutex
	sessions map[string]*VoiceSession
}

func NewManager(node audionode.Node, voice VoiceGateway, msg Messenger, resolver *Resolver, opts Options) *Manager {
	if opts.NodeTimeout <= 0 {
		opts.NodeTimeout = 10 * time.Second
	}
	if opts.PlaylistLimit <= 0 {
		opts.PlaylistLimit = 100
	}
	return &Manager{
		node:     node,
		voice:    voice,
		msg:      msg,
		resolver: resolver,
		opts:     opts,
		sessions: make(map[string]*VoiceSession),
	}
}

// Get returns the guild's session, creating it if needed.
func (m *Manager) Get(guildID string) *VoiceSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[guildID]; ok {
		return s
	}
	s := newVoiceSession(m, guildID)
	m.sessions[guildID] = s
	return s
}

// Peek returns the guild's session or nil.
func (m *Manager) Peek(guildID string) *VoiceSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[guildID]
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) remove(s *VoiceSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[s.guildID] == s {
		delete(m.sessions, s.guildID)
	}
}

// Shutdown tears down every session and leaves voice.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	all := make([]*VoiceSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.Unlock()

	for _, s := range all {
		s.mu.Lock()
		if !s.closed {
			s.teardownLocked(ctx, s.connected)
		}
		s.mu.Unlock()
	}
}

func (m *Manager) nodeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.opts.NodeTimeout)
}

type guildSettings struct {
	idleTimeout   time.Duration
	playlistLimit int
	announce      bool
}

func (m *Manager) settings(ctx context.Context, guildID string) guildSettings {
	gs := guildSettings{
		idleTimeout:   m.opts.IdleTimeout,
		playlistLimit: m.opts.PlaylistLimit,
		announce:      true,
	}
	if m.opts.Settings == nil {
		return gs
	}
	st, err := m.opts.Settings.UpsertSettings(ctx, guildID)
	if err != nil {
		slog.Warn("load guild settings", "guildID", guildID, "err", err)
		return gs
	}
	gs.idleTimeout = time.Duration(st.SecondsWaitAfterEmpty) * time.Second
	if st.PlaylistLimit > 0 {
		gs.playlistLimit = st.PlaylistLimit
	}
	gs.announce = st.AnnounceNowPlaying
	return gs
}
