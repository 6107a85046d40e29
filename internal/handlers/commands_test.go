package handlers

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sonroyaalmerol/frenchfry/internal/audionode"
	"github.com/sonroyaalmerol/frenchfry/internal/config"
	"github.com/sonroyaalmerol/frenchfry/internal/player"
	"github.com/sonroyaalmerol/frenchfry/internal/repository"
)

type stubNode struct {
	mu      sync.Mutex
	results map[string]audionode.LoadResult
	played  []string
}

func (n *stubNode) LoadTracks(ctx context.Context, query string) (audionode.LoadResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if res, ok := n.results[query]; ok {
		return res, nil
	}
	return audionode.LoadResult{LoadType: audionode.LoadEmpty}, nil
}

func (n *stubNode) Play(ctx context.Context, guildID string, t audionode.Track) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.played = append(n.played, t.Title)
	return nil
}

func (n *stubNode) Pause(context.Context, string, bool) error         { return nil }
func (n *stubNode) Seek(context.Context, string, time.Duration) error { return nil }
func (n *stubNode) SetVolume(context.Context, string, int) error      { return nil }
func (n *stubNode) Stop(context.Context, string) error                { return nil }
func (n *stubNode) Destroy(context.Context, string) error             { return nil }
func (n *stubNode) Position(string) time.Duration                     { return 0 }

type stubVoice struct{}

func (stubVoice) JoinVoice(context.Context, string, string) error { return nil }
func (stubVoice) LeaveVoice(context.Context, string) error        { return nil }
func (stubVoice) CanJoin(string, string) bool                     { return true }
func (stubVoice) ChannelName(string) string                       { return "General" }
func (stubVoice) SendMessage(string, string) error                { return nil }

type stubMembers struct {
	manager bool
}

func (m stubMembers) UserVoiceChannel(guildID, userID string) string { return "v1" }
func (m stubMembers) CanManageGuild(guildID, channelID, userID string) bool {
	return m.manager
}

type recorder struct {
	replies []string
	embeds  []*discordgo.MessageEmbed
	reacts  []string
}

func (r *recorder) Reply(content string) error {
	r.replies = append(r.replies, content)
	return nil
}

func (r *recorder) ReplyEmbed(embed *discordgo.MessageEmbed) error {
	r.embeds = append(r.embeds, embed)
	return nil
}

func (r *recorder) React(emoji string) error {
	r.reacts = append(r.reacts, emoji)
	return nil
}

func (r *recorder) last() string {
	if len(r.replies) == 0 {
		return ""
	}
	return r.replies[len(r.replies)-1]
}

func newTestHandler(t *testing.T, members MemberLookup) (*CommandHandler, *stubNode) {
	t.Helper()
	db, err := repository.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	repo := repository.NewRepo(db)

	node := &stubNode{results: map[string]audionode.LoadResult{
		"ytsearch:hello": {LoadType: audionode.LoadSearch, Tracks: []audionode.Track{
			{Encoded: "enc", Title: "Hello", URI: "https://example.com/hello", Length: 2 * time.Minute},
		}},
	}}
	res := player.NewResolver(node, nil, nil, player.ResolverOptions{})
	pm := player.NewManager(node, stubVoice{}, stubVoice{}, res, player.Options{Settings: repo})
	t.Cleanup(func() { pm.Shutdown(context.Background()) })

	cfg := &config.Config{CommandPrefix: "f!"}
	return NewCommandHandler(cfg, repo, pm, members, NewCooldowns(0)), node
}

func request(command string, args ...string) Request {
	return Request{
		Invocation: player.Invocation{GuildID: "g1", UserID: "u1", TextChannelID: "t1", VoiceChannelID: "v1"},
		Command:    command,
		Args:       args,
		Prefix:     "f!",
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		content string
		name    string
		args    []string
		ok      bool
	}{
		{"f!play never gonna", "play", []string{"never", "gonna"}, true},
		{"  f!SKIP ", "skip", []string{}, true},
		{"f!", "", nil, false},
		{"play something", "", nil, false},
		{"!play", "", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			name, args, ok := parseCommand("f!", tt.content)
			if ok != tt.ok || name != tt.name {
				t.Fatalf("got (%q, %v), want (%q, %v)", name, ok, tt.name, tt.ok)
			}
			if ok && len(args) != len(tt.args) {
				t.Fatalf("args = %v, want %v", args, tt.args)
			}
		})
	}
}

func TestErrorRepliesAndResetsCooldown(t *testing.T) {
	h, _ := newTestHandler(t, stubMembers{})
	h.cooldowns = NewCooldowns(time.Minute)
	ctx := context.Background()
	r := &recorder{}

	req := request("skip")
	req.VoiceChannelID = ""
	h.Dispatch(ctx, req, r)
	h.Dispatch(ctx, req, r)
	if len(r.replies) != 2 {
		t.Fatalf("replies = %v", r.replies)
	}
	for _, got := range r.replies {
		if got != "Join a voice channel first." {
			t.Fatalf("reply = %q", got)
		}
	}
}

func TestCooldownBlocksSecondUse(t *testing.T) {
	h, _ := newTestHandler(t, stubMembers{})
	h.cooldowns = NewCooldowns(time.Minute)
	ctx := context.Background()
	r := &recorder{}

	h.Dispatch(ctx, request("ping"), r)
	h.Dispatch(ctx, request("ping"), r)
	if len(r.replies) != 2 || r.replies[0] != "Pong!" || !strings.HasPrefix(r.replies[1], "Slow down!") {
		t.Fatalf("replies = %v", r.replies)
	}
}

func TestUnknownCommandIgnored(t *testing.T) {
	h, _ := newTestHandler(t, stubMembers{})
	r := &recorder{}
	h.Dispatch(context.Background(), request("dance"), r)
	if len(r.replies)+len(r.embeds)+len(r.reacts) != 0 {
		t.Fatalf("unexpected response: %+v", r)
	}
}

func TestPlayCommand(t *testing.T) {
	h, node := newTestHandler(t, stubMembers{})
	ctx := context.Background()
	r := &recorder{}

	h.Dispatch(ctx, request("p", "hello"), r)
	if len(r.embeds) != 1 {
		t.Fatalf("embeds = %d, replies = %v", len(r.embeds), r.replies)
	}
	e := r.embeds[0]
	if e.Title != "Track Enqueued" || e.Fields[1].Value != "Now playing" {
		t.Fatalf("embed = %+v", e)
	}
	node.mu.Lock()
	played := slices.Clone(node.played)
	node.mu.Unlock()
	if len(played) != 1 || played[0] != "Hello" {
		t.Fatalf("played = %v", played)
	}

	h.Dispatch(ctx, request("play", "nothing", "here"), r)
	if r.last() != "Nothing found!" {
		t.Fatalf("reply = %q", r.last())
	}
}

func TestVolumeCommand(t *testing.T) {
	h, _ := newTestHandler(t, stubMembers{})
	ctx := context.Background()
	r := &recorder{}

	h.Dispatch(ctx, request("vol", "loud"), r)
	if r.last() != "Volume must be a number." {
		t.Fatalf("reply = %q", r.last())
	}
	h.Dispatch(ctx, request("volume", "50"), r)
	if r.last() != "Not connected." {
		t.Fatalf("reply = %q", r.last())
	}

	h.Dispatch(ctx, request("join"), r)
	h.Dispatch(ctx, request("sv", "150"), r)
	if r.last() != "Volume must be between 0 and 100." {
		t.Fatalf("reply = %q", r.last())
	}
	h.Dispatch(ctx, request("volume", "40"), &recorder{})
	snap, _ := h.pm.Snapshot("g1")
	if snap.Volume != 40 {
		t.Fatalf("volume = %d", snap.Volume)
	}
}

func TestFavorites(t *testing.T) {
	h, _ := newTestHandler(t, stubMembers{})
	ctx := context.Background()
	r := &recorder{}

	h.Dispatch(ctx, request("fav", "add", "greet", "hello"), r)
	if !strings.Contains(r.last(), "Saved") {
		t.Fatalf("reply = %q", r.last())
	}
	h.Dispatch(ctx, request("favorites", "add", "greet", "other"), r)
	if r.last() != "A favorite with that name already exists." {
		t.Fatalf("reply = %q", r.last())
	}

	h.Dispatch(ctx, request("fav", "list"), r)
	if len(r.embeds) != 1 || !strings.Contains(r.embeds[0].Description, "`greet` hello") {
		t.Fatalf("list embeds = %+v", r.embeds)
	}

	h.Dispatch(ctx, request("fav", "play", "greet"), r)
	if len(r.embeds) != 2 || r.embeds[1].Title != "Track Enqueued" {
		t.Fatalf("play embeds = %+v", r.embeds)
	}

	h.Dispatch(ctx, request("fav", "del", "greet"), r)
	h.Dispatch(ctx, request("favs", "del", "greet"), r)
	if r.last() != "No favorite with that name." {
		t.Fatalf("reply = %q", r.last())
	}

	h.Dispatch(ctx, request("fav", "nope"), r)
	if !strings.HasPrefix(r.last(), "Usage: `f!fav ") {
		t.Fatalf("reply = %q", r.last())
	}
}

func TestConfigCommand(t *testing.T) {
	ctx := context.Background()

	h, _ := newTestHandler(t, stubMembers{})
	r := &recorder{}
	h.Dispatch(ctx, request("config", "prefix", "!"), r)
	if r.last() != "You need the Manage Server permission for that." {
		t.Fatalf("reply = %q", r.last())
	}

	h, _ = newTestHandler(t, stubMembers{manager: true})
	r = &recorder{}
	h.Dispatch(ctx, request("config", "prefix", "!"), r)
	if r.last() != "👍 `prefix` updated" {
		t.Fatalf("reply = %q", r.last())
	}
	if got := h.prefix(ctx, "g1"); got != "!" {
		t.Fatalf("prefix = %q", got)
	}
	if got := h.prefix(ctx, "g2"); got != "f!" {
		t.Fatalf("default prefix = %q", got)
	}

	h.Dispatch(ctx, request("config", "idle_timeout", "2m"), r)
	set, err := h.repo.GetSettings(ctx, "g1")
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if set.SecondsWaitAfterEmpty != 120 {
		t.Fatalf("idle timeout = %d", set.SecondsWaitAfterEmpty)
	}

	h.Dispatch(ctx, request("config", "announce", "maybe"), r)
	if !strings.HasPrefix(r.last(), "Usage: `f!config announce") {
		t.Fatalf("reply = %q", r.last())
	}

	h.Dispatch(ctx, request("config"), r)
	if len(r.embeds) != 1 || r.embeds[0].Fields[0].Value != "`!`" {
		t.Fatalf("settings embed = %+v", r.embeds)
	}
}
