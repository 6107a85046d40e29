package player

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sonroyaalmerol/frenchfry/internal/audionode"
)

type fakeNode struct {
	mu       sync.Mutex
	m        *Manager
	results  map[string]audionode.LoadResult
	loads    map[string]int
	playing  map[string]audionode.Track
	played   []string
	stops    int
	destroys int
	volumes  []int
	seeks    []time.Duration
	pauses   []bool
	hang     bool
	playErr  error
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		results: make(map[string]audionode.LoadResult),
		loads:   make(map[string]int),
		playing: make(map[string]audionode.Track),
	}
}

func (n *fakeNode) LoadTracks(ctx context.Context, query string) (audionode.LoadResult, error) {
	n.mu.Lock()
	n.loads[query]++
	hang := n.hang
	res, ok := n.results[query]
	n.mu.Unlock()
	if hang {
		<-ctx.Done()
		return audionode.LoadResult{}, ctx.Err()
	}
	if !ok {
		return audionode.LoadResult{LoadType: audionode.LoadEmpty}, nil
	}
	return res, nil
}

// Play behaves like a node: a replaced track ends, then the new one starts.
func (n *fakeNode) Play(ctx context.Context, guildID string, t audionode.Track) error {
	n.mu.Lock()
	if n.playErr != nil {
		err := n.playErr
		n.mu.Unlock()
		return err
	}
	prev, had := n.playing[guildID]
	n.playing[guildID] = t
	n.played = append(n.played, t.Title)
	m := n.m
	n.mu.Unlock()
	if m != nil {
		if had {
			m.HandleEvent(audionode.TrackEnd{GuildID: guildID, Track: prev, Reason: "replaced"})
		}
		m.HandleEvent(audionode.TrackStart{GuildID: guildID, Track: t})
	}
	return nil
}

func (n *fakeNode) Pause(ctx context.Context, guildID string, paused bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pauses = append(n.pauses, paused)
	return nil
}

func (n *fakeNode) Seek(ctx context.Context, guildID string, position time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seeks = append(n.seeks, position)
	return nil
}

func (n *fakeNode) SetVolume(ctx context.Context, guildID string, volume int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.volumes = append(n.volumes, volume)
	return nil
}

func (n *fakeNode) Stop(ctx context.Context, guildID string) error {
	n.mu.Lock()
	prev, had := n.playing[guildID]
	delete(n.playing, guildID)
	n.stops++
	m := n.m
	n.mu.Unlock()
	if m != nil && had {
		m.HandleEvent(audionode.TrackEnd{GuildID: guildID, Track: prev, Reason: "stopped"})
	}
	return nil
}

func (n *fakeNode) Destroy(ctx context.Context, guildID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.playing, guildID)
	n.destroys++
	return nil
}

func (n *fakeNode) Position(guildID string) time.Duration { return 0 }

// finish ends the guild's track naturally.
func (n *fakeNode) finish(guildID string) {
	n.mu.Lock()
	prev, had := n.playing[guildID]
	delete(n.playing, guildID)
	m := n.m
	n.mu.Unlock()
	if had {
		m.HandleEvent(audionode.TrackEnd{GuildID: guildID, Track: prev, MayStartNext: true, Reason: "finished"})
	}
}

func (n *fakeNode) failPlays(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.playErr = err
}

func (n *fakeNode) loadCount(q string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loads[q]
}

func (n *fakeNode) destroyCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.destroys
}

type fakeVoice struct {
	mu     sync.Mutex
	deny   bool
	joins  []string
	leaves int
	block  map[string]chan struct{}
}

func newFakeVoice() *fakeVoice {
	return &fakeVoice{block: make(map[string]chan struct{})}
}

func (v *fakeVoice) JoinVoice(ctx context.Context, guildID, channelID string) error {
	v.mu.Lock()
	v.joins = append(v.joins, guildID+"/"+channelID)
	wait := v.block[guildID]
	v.mu.Unlock()
	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (v *fakeVoice) LeaveVoice(ctx context.Context, guildID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.leaves++
	return nil
}

func (v *fakeVoice) CanJoin(guildID, channelID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.deny
}

func (v *fakeVoice) ChannelName(channelID string) string { return "General" }

func (v *fakeVoice) joinCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.joins)
}

func (v *fakeVoice) leaveCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.leaves
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeMessenger) SendMessage(channelID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, content)
	return nil
}

func (f *fakeMessenger) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type harness struct {
	m     *Manager
	node  *fakeNode
	voice *fakeVoice
	msg   *fakeMessenger
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{node: newFakeNode(), voice: newFakeVoice(), msg: &fakeMessenger{}}
	res := NewResolver(h.node, nil, nil, ResolverOptions{NodeTimeout: opts.NodeTimeout})
	h.m = NewManager(h.node, h.voice, h.msg, res, opts)
	h.node.m = h.m
	t.Cleanup(func() { h.m.Shutdown(context.Background()) })
	return h
}

func track(title string) audionode.Track {
	return audionode.Track{
		Encoded: "enc-" + title,
		Title:   title,
		Author:  "someone",
		URI:     "https://example.com/" + title,
		Length:  3 * time.Minute,
	}
}

func invocation(guild, voice string) Invocation {
	return Invocation{GuildID: guild, UserID: "u1", TextChannelID: "text-" + guild, VoiceChannelID: voice}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func currentTitle(m *Manager, guild string) string {
	snap, ok := m.Snapshot(guild)
	if !ok || snap.Current == nil {
		return ""
	}
	return snap.Current.Title
}
