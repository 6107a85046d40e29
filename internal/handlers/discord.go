package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sonroyaalmerol/frenchfry/internal/player"
)

// VoiceRelay receives the bot's voice credentials for the audio node.
type VoiceRelay interface {
	OnVoiceStateUpdate(ctx context.Context, guildID, channelID, sessionID string)
	OnVoiceServerUpdate(ctx context.Context, guildID, token, endpoint string)
}

// voiceJoiner is the gateway call a voice join or leave needs.
type voiceJoiner interface {
	ChannelVoiceJoinManual(gID, cID string, mute, deaf bool) error
}

// Platform adapts a discordgo session to the player's collaborators. Voice
// joins are acknowledged once both the voice state and the voice server
// update for the guild were relayed to the node.
type Platform struct {
	s              *discordgo.Session
	joiner         voiceJoiner
	relay          VoiceRelay
	connectTimeout time.Duration
	settleDelay    time.Duration

	mu      sync.Mutex
	pending map[string]*voiceHandshake
}

type voiceHandshake struct {
	channelID string
	state     bool
	server    bool
	ready     chan struct{}
}

var (
	_ player.VoiceGateway = (*Platform)(nil)
	_ player.Messenger    = (*Platform)(nil)
)

func NewPlatform(s *discordgo.Session, relay VoiceRelay, connectTimeout, settleDelay time.Duration) *Platform {
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	p := &Platform{
		s:              s,
		relay:          relay,
		connectTimeout: connectTimeout,
		settleDelay:    settleDelay,
		pending:        make(map[string]*voiceHandshake),
	}
	if s != nil {
		p.joiner = s
	}
	return p
}

func (p *Platform) JoinVoice(ctx context.Context, guildID, channelID string) error {
	hs := &voiceHandshake{channelID: channelID, ready: make(chan struct{})}
	p.mu.Lock()
	p.pending[guildID] = hs
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		if p.pending[guildID] == hs {
			delete(p.pending, guildID)
		}
		p.mu.Unlock()
	}()

	if err := p.joiner.ChannelVoiceJoinManual(guildID, channelID, false, true); err != nil {
		return err
	}

	timer := time.NewTimer(p.connectTimeout)
	defer timer.Stop()
	select {
	case <-hs.ready:
	case <-timer.C:
		return fmt.Errorf("%w: voice handshake for guild %s", player.ErrNodeTimeout, guildID)
	case <-ctx.Done():
		return ctx.Err()
	}

	if p.settleDelay > 0 {
		select {
		case <-time.After(p.settleDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (p *Platform) LeaveVoice(ctx context.Context, guildID string) error {
	return p.joiner.ChannelVoiceJoinManual(guildID, "", false, false)
}

func (p *Platform) CanJoin(guildID, channelID string) bool {
	if p.s.State.User == nil {
		return false
	}
	perms, err := p.s.State.UserChannelPermissions(p.s.State.User.ID, channelID)
	if err != nil {
		slog.Debug("voice permission lookup failed", "guildID", guildID, "channelID", channelID, "err", err)
		return false
	}
	need := int64(discordgo.PermissionVoiceConnect | discordgo.PermissionVoiceSpeak)
	return perms&need == need
}

func (p *Platform) ChannelName(channelID string) string {
	ch, err := p.s.State.Channel(channelID)
	if err != nil || ch == nil {
		return channelID
	}
	return ch.Name
}

// SendMessage posts content without pinging anyone it mentions.
func (p *Platform) SendMessage(channelID, content string) error {
	_, err := p.s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:         content,
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
	})
	return err
}

func (p *Platform) UserVoiceChannel(guildID, userID string) string {
	g, _ := p.s.State.Guild(guildID)
	if g == nil {
		return ""
	}
	for _, vs := range g.VoiceStates {
		if vs.UserID == userID && vs.ChannelID != "" {
			return vs.ChannelID
		}
	}
	return ""
}

func (p *Platform) CanManageGuild(guildID, channelID, userID string) bool {
	perms, err := p.s.State.UserChannelPermissions(userID, channelID)
	if err != nil {
		return false
	}
	return perms&(discordgo.PermissionManageGuild|discordgo.PermissionAdministrator) != 0
}

// VoiceStateUpdate relays the bot's own voice state to the node.
func (p *Platform) VoiceStateUpdate(ctx context.Context, guildID, channelID, sessionID string) {
	p.relay.OnVoiceStateUpdate(ctx, guildID, channelID, sessionID)
	if channelID == "" {
		return
	}
	p.ack(guildID, func(hs *voiceHandshake) {
		// a state for another channel is left over from before this join
		if hs.channelID == channelID {
			hs.state = true
		}
	})
}

func (p *Platform) VoiceServerUpdate(ctx context.Context, guildID, token, endpoint string) {
	if endpoint == "" {
		// the voice server went away, a new update follows
		return
	}
	p.relay.OnVoiceServerUpdate(ctx, guildID, token, endpoint)
	p.ack(guildID, func(hs *voiceHandshake) { hs.server = true })
}

func (p *Platform) ack(guildID string, mark func(*voiceHandshake)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	hs := p.pending[guildID]
	if hs == nil {
		return
	}
	wasReady := hs.state && hs.server
	mark(hs)
	if !wasReady && hs.state && hs.server {
		close(hs.ready)
	}
}
