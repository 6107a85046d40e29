package handlers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sonroyaalmerol/frenchfry/internal/player"
)

type fakeRelay struct {
	mu      sync.Mutex
	states  []string
	servers []string
}

func (f *fakeRelay) OnVoiceStateUpdate(ctx context.Context, guildID, channelID, sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, guildID+"/"+channelID+"/"+sessionID)
}

func (f *fakeRelay) OnVoiceServerUpdate(ctx context.Context, guildID, token, endpoint string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.servers = append(f.servers, guildID+"/"+endpoint)
}

func TestVoiceHandshakeAck(t *testing.T) {
	relay := &fakeRelay{}
	p := NewPlatform(nil, relay, time.Second, 0)
	hs := &voiceHandshake{channelID: "v1", ready: make(chan struct{})}
	p.pending["g"] = hs
	ctx := context.Background()

	p.VoiceServerUpdate(ctx, "g", "tok", "")
	p.VoiceStateUpdate(ctx, "g", "v1", "sess")
	select {
	case <-hs.ready:
		t.Fatal("ready before the voice server update")
	default:
	}

	p.VoiceServerUpdate(ctx, "g", "tok", "us-east.discord.media")
	select {
	case <-hs.ready:
	default:
		t.Fatal("handshake should be acknowledged")
	}

	// duplicate updates must not close ready twice
	p.VoiceServerUpdate(ctx, "g", "tok", "us-east.discord.media")
	p.VoiceStateUpdate(ctx, "g", "v1", "sess")

	if len(relay.states) != 2 || len(relay.servers) != 2 {
		t.Errorf("relay saw states=%v servers=%v", relay.states, relay.servers)
	}
}

func TestVoiceUpdatesWithoutPendingJoin(t *testing.T) {
	relay := &fakeRelay{}
	p := NewPlatform(nil, relay, time.Second, 0)
	p.VoiceStateUpdate(context.Background(), "g", "", "sess")
	p.VoiceServerUpdate(context.Background(), "g", "tok", "endpoint")
	if len(relay.states) != 1 || relay.states[0] != "g//sess" {
		t.Errorf("leave should still reach the node, got %v", relay.states)
	}
}

type fakeJoiner struct {
	mu     sync.Mutex
	calls  []string
	err    error
	onJoin func(guildID, channelID string)
}

func (f *fakeJoiner) ChannelVoiceJoinManual(gID, cID string, mute, deaf bool) error {
	f.mu.Lock()
	f.calls = append(f.calls, gID+"/"+cID)
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.onJoin != nil && cID != "" {
		f.onJoin(gID, cID)
	}
	return nil
}

func TestJoinVoice(t *testing.T) {
	errGateway := errors.New("gateway closed")
	ctx := context.Background()

	tests := []struct {
		name    string
		settle  time.Duration
		joinErr error
		acks    func(p *Platform, guildID, channelID string)
		wantErr error
	}{
		{
			name: "both updates",
			acks: func(p *Platform, g, c string) {
				p.VoiceStateUpdate(ctx, g, c, "sess")
				p.VoiceServerUpdate(ctx, g, "tok", "us-east.discord.media")
			},
		},
		{
			name: "server before state",
			acks: func(p *Platform, g, c string) {
				go func() {
					p.VoiceServerUpdate(ctx, g, "tok", "us-east.discord.media")
					time.Sleep(10 * time.Millisecond)
					p.VoiceStateUpdate(ctx, g, c, "sess")
				}()
			},
		},
		{
			name:    "no updates",
			wantErr: player.ErrNodeTimeout,
		},
		{
			name: "state only",
			acks: func(p *Platform, g, c string) {
				p.VoiceStateUpdate(ctx, g, c, "sess")
			},
			wantErr: player.ErrNodeTimeout,
		},
		{
			name: "state for another channel",
			acks: func(p *Platform, g, c string) {
				p.VoiceStateUpdate(ctx, g, "elsewhere", "sess")
				p.VoiceServerUpdate(ctx, g, "tok", "us-east.discord.media")
			},
			wantErr: player.ErrNodeTimeout,
		},
		{
			name:   "settle delay",
			settle: 40 * time.Millisecond,
			acks: func(p *Platform, g, c string) {
				p.VoiceStateUpdate(ctx, g, c, "sess")
				p.VoiceServerUpdate(ctx, g, "tok", "us-east.discord.media")
			},
		},
		{
			name:    "gateway error",
			joinErr: errGateway,
			wantErr: errGateway,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPlatform(nil, &fakeRelay{}, 50*time.Millisecond, tt.settle)
			j := &fakeJoiner{err: tt.joinErr}
			if tt.acks != nil {
				j.onJoin = func(g, c string) { tt.acks(p, g, c) }
			}
			p.joiner = j

			start := time.Now()
			err := p.JoinVoice(ctx, "g", "v1")
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if took := time.Since(start); took < tt.settle {
				t.Errorf("returned after %v, before the %v settle delay", took, tt.settle)
			}
			if len(p.pending) != 0 {
				t.Error("pending handshake should be cleared")
			}
			if len(j.calls) != 1 || j.calls[0] != "g/v1" {
				t.Errorf("join calls = %v", j.calls)
			}
		})
	}
}

func TestJoinVoiceCancelled(t *testing.T) {
	p := NewPlatform(nil, &fakeRelay{}, time.Second, 0)
	p.joiner = &fakeJoiner{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.JoinVoice(ctx, "g", "v1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLeaveVoice(t *testing.T) {
	p := NewPlatform(nil, &fakeRelay{}, time.Second, 0)
	j := &fakeJoiner{}
	p.joiner = j
	if err := p.LeaveVoice(context.Background(), "g"); err != nil {
		t.Fatal(err)
	}
	if len(j.calls) != 1 || j.calls[0] != "g/" {
		t.Errorf("leave calls = %v", j.calls)
	}
}
