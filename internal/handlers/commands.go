package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sonroyaalmerol/frenchfry/internal/config"
	"github.com/sonroyaalmerol/frenchfry/internal/player"
	"github.com/sonroyaalmerol/frenchfry/internal/repository"
	"github.com/sonroyaalmerol/frenchfry/internal/ui"
	"github.com/sonroyaalmerol/frenchfry/internal/utils"
)

// Responder answers the message that invoked a command.
type Responder interface {
	Reply(content string) error
	ReplyEmbed(embed *discordgo.MessageEmbed) error
	React(emoji string) error
}

// MemberLookup answers questions about guild members from the gateway state.
type MemberLookup interface {
	UserVoiceChannel(guildID, userID string) string
	CanManageGuild(guildID, channelID, userID string) bool
}

// Request is one parsed command invocation.
type Request struct {
	player.Invocation
	Command string
	Args    []string
	Prefix  string
}

func (r Request) Arg() string { return strings.Join(r.Args, " ") }

type command struct {
	name    string
	aliases []string
	usage   string
	help    string
	run     func(ctx context.Context, req Request, r Responder) error
}

type usageError string

func (e usageError) Error() string { return "usage: " + string(e) }

var errNoPermission = errors.New("manage guild permission required")

type CommandHandler struct {
	cfg       *config.Config
	repo      *repository.Repo
	favs      *repository.FavoritesService
	pm        *player.Manager
	members   MemberLookup
	cooldowns *Cooldowns

	commands []*command
	byName   map[string]*command
}

func NewCommandHandler(cfg *config.Config, repo *repository.Repo, pm *player.Manager, members MemberLookup, cooldowns *Cooldowns) *CommandHandler {
	h := &CommandHandler{
		cfg:       cfg,
		repo:      repo,
		favs:      repository.NewFavoritesService(repo),
		pm:        pm,
		members:   members,
		cooldowns: cooldowns,
		byName:    make(map[string]*command),
	}
	h.commands = []*command{
		{name: "ping", help: "Check that the bot is alive", run: h.cmdPing},
		{name: "help", help: "Show this list", run: h.cmdHelp},
		{name: "join", help: "Join your voice channel", run: h.cmdJoin},
		{name: "play", aliases: []string{"p"}, usage: "<query or url>", help: "Search or load a track or playlist", run: h.cmdPlay},
		{name: "queue", aliases: []string{"q"}, usage: "[page]", help: "Show the upcoming tracks", run: h.cmdQueue},
		{name: "current", aliases: []string{"np"}, help: "Show the playing track", run: h.cmdCurrent},
		{name: "skip", help: "Skip the playing track", run: h.cmdSkip},
		{name: "pause", help: "Pause playback", run: h.cmdPause},
		{name: "resume", help: "Resume playback", run: h.cmdResume},
		{name: "volume", aliases: []string{"vol", "sv"}, usage: "[0-100]", help: "Show or set the volume", run: h.cmdVolume},
		{name: "seek", usage: "<90 | 1:30 | 1m30s>", help: "Jump to a position in the track", run: h.cmdSeek},
		{name: "loop", aliases: []string{"repeat"}, help: "Toggle repeat", run: h.cmdLoop},
		{name: "shuffle", help: "Shuffle the queue", run: h.cmdShuffle},
		{name: "clear", help: "Remove every upcoming track", run: h.cmdClear},
		{name: "disconnect", aliases: []string{"dc", "leave"}, help: "Stop and leave the voice channel", run: h.cmdDisconnect},
		{name: "fav", aliases: []string{"favorites", "favs"}, usage: "add <name> <query> | del <name> | list | play <name>", help: "Manage saved queries", run: h.cmdFav},
		{name: "config", usage: "[prefix | playlist_limit | idle_timeout | announce] [value]", help: "Show or change guild settings", run: h.cmdConfig},
	}
	for _, c := range h.commands {
		h.byName[c.name] = c
		for _, a := range c.aliases {
			h.byName[a] = c
		}
	}
	return h
}

// parseCommand splits a prefixed message into a lower-cased command name
// and its arguments.
func parseCommand(prefix, content string) (string, []string, bool) {
	content = strings.TrimSpace(content)
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(content[len(prefix):])
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

func (h *CommandHandler) prefix(ctx context.Context, guildID string) string {
	set, err := h.repo.UpsertSettings(ctx, guildID)
	if err != nil {
		slog.Warn("load guild prefix", "guildID", guildID, "err", err)
		return h.cfg.CommandPrefix
	}
	if set.Prefix != "" {
		return set.Prefix
	}
	return h.cfg.CommandPrefix
}

func (h *CommandHandler) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	ctx := context.Background()
	prefix := h.prefix(ctx, m.GuildID)
	name, args, ok := parseCommand(prefix, m.Content)
	if !ok {
		return
	}
	req := Request{
		Invocation: player.Invocation{
			GuildID:        m.GuildID,
			UserID:         m.Author.ID,
			TextChannelID:  m.ChannelID,
			VoiceChannelID: h.members.UserVoiceChannel(m.GuildID, m.Author.ID),
		},
		Command: name,
		Args:    args,
		Prefix:  prefix,
	}
	h.Dispatch(ctx, req, &messageResponder{s: s, m: m.Message})
}

// Dispatch runs the command named in req. A failed command answers with a
// single reply and gives the user their cooldown back.
func (h *CommandHandler) Dispatch(ctx context.Context, req Request, r Responder) {
	cmd, ok := h.byName[req.Command]
	if !ok {
		return
	}
	req.Command = cmd.name

	if wait, ok := h.cooldowns.Allow(cmd.name, req.UserID); !ok {
		_ = r.Reply(fmt.Sprintf("Slow down! Try again in %.1fs.", wait.Seconds()))
		return
	}

	slog.Info("cmd "+cmd.name, "guildID", req.GuildID, "userID", req.UserID, "args", req.Arg())
	err := cmd.run(ctx, req, r)
	if err == nil {
		return
	}
	h.cooldowns.Reset(cmd.name, req.UserID)

	msg := errorMessage(err)
	var ue usageError
	if errors.As(err, &ue) {
		msg = fmt.Sprintf("Usage: `%s%s %s`", req.Prefix, cmd.name, string(ue))
	}
	if err := r.Reply(msg); err != nil {
		slog.Warn("reply failed", "guildID", req.GuildID, "command", cmd.name, "err", err)
	}
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, player.ErrNoVoiceChannel):
		return "Join a voice channel first."
	case errors.Is(err, player.ErrNotConnected):
		return "Not connected."
	case errors.Is(err, player.ErrMissingPermission):
		return "I need the `CONNECT` and `SPEAK` permissions."
	case errors.Is(err, player.ErrChannelMismatch):
		return "You need to be in my voice channel."
	case errors.Is(err, player.ErrAlreadyConnected):
		return "Already connected."
	case errors.Is(err, player.ErrEmptyQueue):
		return "The queue is empty."
	case errors.Is(err, player.ErrNothingPlaying):
		return "Nothing playing."
	case errors.Is(err, player.ErrAlreadyPaused):
		return "Already paused."
	case errors.Is(err, player.ErrNotPaused):
		return "Playback is not paused."
	case errors.Is(err, player.ErrVolumeNotNumber):
		return "Volume must be a number."
	case errors.Is(err, player.ErrVolumeOutOfRange):
		return "Volume must be between 0 and 100."
	case errors.Is(err, player.ErrInvalidPosition):
		return "That is not a valid position. Try `90`, `1:30` or `1m30s`."
	case errors.Is(err, player.ErrSeekOutOfRange):
		return "That position is outside the track."
	case errors.Is(err, player.ErrSpotifyDisabled):
		return "Spotify links are not enabled on this bot."
	case errors.Is(err, player.ErrTrackLookupFailed):
		return "Nothing found!"
	case errors.Is(err, player.ErrNodeTimeout):
		return "The audio node did not respond in time, please try again."
	case errors.Is(err, ui.ErrPageOutOfRange):
		return "The queue isn't that big."
	case errors.Is(err, repository.ErrFavoriteExists):
		return "A favorite with that name already exists."
	case errors.Is(err, repository.ErrFavoriteNotFound):
		return "No favorite with that name."
	case errors.Is(err, errNoPermission):
		return "You need the Manage Server permission for that."
	}
	var ue usageError
	if errors.As(err, &ue) {
		return "Usage: " + string(ue)
	}
	slog.Error("command failed", "err", err)
	return "Something went wrong."
}

func (h *CommandHandler) cmdPing(ctx context.Context, req Request, r Responder) error {
	return r.Reply("Pong!")
}

func (h *CommandHandler) cmdHelp(ctx context.Context, req Request, r Responder) error {
	var b strings.Builder
	for _, c := range h.commands {
		fmt.Fprintf(&b, "`%s%s", req.Prefix, c.name)
		if c.usage != "" {
			b.WriteString(" " + c.usage)
		}
		b.WriteString("`")
		if len(c.aliases) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(c.aliases, ", "))
		}
		b.WriteString(" - " + c.help + "\n")
	}
	return r.ReplyEmbed(&discordgo.MessageEmbed{
		Title:       "Commands",
		Description: b.String(),
		Color:       0x006400,
	})
}

func (h *CommandHandler) cmdJoin(ctx context.Context, req Request, r Responder) error {
	name, err := h.pm.Join(ctx, req.Invocation)
	if err != nil {
		return err
	}
	_ = r.React("🎵")
	return r.Reply(fmt.Sprintf("Joined **%s** and bound to <#%s>.", utils.EscapeMd(name), req.TextChannelID))
}

func (h *CommandHandler) cmdPlay(ctx context.Context, req Request, r Responder) error {
	if len(req.Args) == 0 {
		return usageError("<query or url>")
	}
	return h.play(ctx, req, r, req.Arg())
}

func (h *CommandHandler) play(ctx context.Context, req Request, r Responder, query string) error {
	res, err := h.pm.Play(ctx, req.Invocation, query)
	if err != nil {
		return err
	}
	return r.ReplyEmbed(ui.BuildEnqueuedEmbed(res))
}

func (h *CommandHandler) cmdQueue(ctx context.Context, req Request, r Responder) error {
	page := 1
	if len(req.Args) > 0 {
		page = utils.Atoi(req.Args[0])
	}
	snap, _ := h.pm.Snapshot(req.GuildID)
	embed, err := ui.BuildQueueEmbed(snap, page)
	if err != nil {
		return err
	}
	return r.ReplyEmbed(embed)
}

func (h *CommandHandler) cmdCurrent(ctx context.Context, req Request, r Responder) error {
	snap, _ := h.pm.Snapshot(req.GuildID)
	if snap.Current == nil {
		return player.ErrNothingPlaying
	}
	return r.ReplyEmbed(ui.BuildPlayingEmbed(snap))
}

func (h *CommandHandler) cmdSkip(ctx context.Context, req Request, r Responder) error {
	if err := h.pm.Skip(ctx, req.Invocation); err != nil {
		return err
	}
	return r.Reply("Successfully skipped the current track")
}

func (h *CommandHandler) cmdPause(ctx context.Context, req Request, r Responder) error {
	if err := h.pm.Pause(ctx, req.Invocation); err != nil {
		return err
	}
	return r.React("⏸️")
}

func (h *CommandHandler) cmdResume(ctx context.Context, req Request, r Responder) error {
	if err := h.pm.Resume(ctx, req.Invocation); err != nil {
		return err
	}
	return r.React("⏯️")
}

func (h *CommandHandler) cmdVolume(ctx context.Context, req Request, r Responder) error {
	if len(req.Args) == 0 {
		snap, _ := h.pm.Snapshot(req.GuildID)
		return r.Reply(fmt.Sprintf("🔈 | Volume is at %d%%", snap.Volume))
	}
	v, err := player.ParseVolume(req.Args[0])
	if errors.Is(err, player.ErrVolumeNotNumber) {
		return err
	}
	if err := h.pm.SetVolume(ctx, req.Invocation, v); err != nil {
		return err
	}
	return r.React("📶")
}

func (h *CommandHandler) cmdSeek(ctx context.Context, req Request, r Responder) error {
	if len(req.Args) == 0 {
		return usageError("<90 | 1:30 | 1m30s>")
	}
	sec := utils.ParseDurationString(req.Args[0])
	if sec < 0 {
		return player.ErrInvalidPosition
	}
	pos := time.Duration(sec) * time.Second
	if err := h.pm.Seek(ctx, req.Invocation, pos); err != nil {
		return err
	}
	return r.Reply(fmt.Sprintf("Moved track to **%s**", utils.PrettyDuration(pos)))
}

func (h *CommandHandler) cmdLoop(ctx context.Context, req Request, r Responder) error {
	on, err := h.pm.ToggleRepeat(ctx, req.Invocation)
	if err != nil {
		return err
	}
	if on {
		return r.React("🔁")
	}
	return r.React("🔂")
}

func (h *CommandHandler) cmdShuffle(ctx context.Context, req Request, r Responder) error {
	if err := h.pm.Shuffle(ctx, req.Invocation); err != nil {
		return err
	}
	return r.Reply("🔀 | Queue shuffled.")
}

func (h *CommandHandler) cmdClear(ctx context.Context, req Request, r Responder) error {
	n, err := h.pm.Clear(ctx, req.Invocation)
	if err != nil {
		return err
	}
	if n == 0 {
		return player.ErrEmptyQueue
	}
	return r.Reply(fmt.Sprintf("🗑️ | Removed %d tracks from the queue.", n))
}

func (h *CommandHandler) cmdDisconnect(ctx context.Context, req Request, r Responder) error {
	if err := h.pm.Disconnect(ctx, req.Invocation); err != nil {
		return err
	}
	return r.Reply("*⃣ | Disconnected.")
}

func (h *CommandHandler) cmdFav(ctx context.Context, req Request, r Responder) error {
	const usage = usageError("add <name> <query> | del <name> | list | play <name>")
	if len(req.Args) == 0 {
		return usage
	}
	sub, rest := strings.ToLower(req.Args[0]), req.Args[1:]
	switch sub {
	case "add", "create":
		if len(rest) < 2 {
			return usage
		}
		if err := h.favs.Create(ctx, req.GuildID, req.UserID, rest[0], strings.Join(rest[1:], " ")); err != nil {
			if errors.Is(err, repository.ErrFavoriteInvalid) {
				return usage
			}
			return err
		}
		return r.Reply(fmt.Sprintf("⭐ | Saved **%s**.", utils.EscapeMd(rest[0])))
	case "del", "remove":
		if len(rest) != 1 {
			return usage
		}
		n, err := h.favs.Remove(ctx, req.GuildID, rest[0])
		if err != nil {
			return err
		}
		if n == 0 {
			return repository.ErrFavoriteNotFound
		}
		return r.Reply(fmt.Sprintf("🗑️ | Removed **%s**.", utils.EscapeMd(rest[0])))
	case "list":
		favs, err := h.favs.List(ctx, req.GuildID)
		if err != nil {
			return err
		}
		if len(favs) == 0 {
			return r.Reply("No favorites yet.")
		}
		var b strings.Builder
		for _, f := range favs {
			fmt.Fprintf(&b, "`%s` %s (by <@%s>)\n", f.Name, utils.EscapeMd(f.Query), f.Author)
		}
		return r.ReplyEmbed(&discordgo.MessageEmbed{Title: "Favorites", Description: b.String(), Color: 0x006400})
	case "play", "use":
		if len(rest) != 1 {
			return usage
		}
		fav, err := h.favs.Use(ctx, req.GuildID, rest[0])
		if err != nil {
			return err
		}
		return h.play(ctx, req, r, fav.Query)
	}
	return usage
}

func (h *CommandHandler) cmdConfig(ctx context.Context, req Request, r Responder) error {
	if !h.members.CanManageGuild(req.GuildID, req.TextChannelID, req.UserID) {
		return errNoPermission
	}
	set, err := h.repo.UpsertSettings(ctx, req.GuildID)
	if err != nil {
		return err
	}
	if len(req.Args) == 0 {
		prefix := set.Prefix
		if prefix == "" {
			prefix = h.cfg.CommandPrefix
		}
		return r.ReplyEmbed(&discordgo.MessageEmbed{
			Title: "Settings",
			Color: 0x006400,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "prefix", Value: "`" + prefix + "`", Inline: true},
				{Name: "playlist_limit", Value: strconv.Itoa(set.PlaylistLimit), Inline: true},
				{Name: "idle_timeout", Value: fmt.Sprintf("%ds", set.SecondsWaitAfterEmpty), Inline: true},
				{Name: "announce", Value: strconv.FormatBool(set.AnnounceNowPlaying), Inline: true},
			},
		})
	}

	const usage = usageError("[prefix | playlist_limit | idle_timeout | announce] [value]")
	if len(req.Args) != 2 {
		return usage
	}
	key, val := strings.ToLower(req.Args[0]), req.Args[1]
	switch key {
	case "prefix":
		if len(val) > 5 {
			return usageError("prefix <at most 5 characters>")
		}
		set.Prefix = val
	case "playlist_limit":
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 {
			return usageError("playlist_limit <positive number>")
		}
		set.PlaylistLimit = n
	case "idle_timeout":
		sec := utils.ParseDurationString(val)
		if sec < 0 {
			return usageError("idle_timeout <seconds, 0 never leaves>")
		}
		set.SecondsWaitAfterEmpty = sec
	case "announce":
		on, err := strconv.ParseBool(val)
		if err != nil {
			return usageError("announce <true | false>")
		}
		set.AnnounceNowPlaying = on
	default:
		return usage
	}
	if err := h.repo.UpdateSettings(ctx, set); err != nil {
		return err
	}
	slog.Info("config updated", "guildID", req.GuildID, "key", key, "value", val)
	return r.Reply(fmt.Sprintf("👍 `%s` updated", key))
}

type messageResponder struct {
	s *discordgo.Session
	m *discordgo.Message
}

func (r *messageResponder) Reply(content string) error {
	_, err := r.s.ChannelMessageSendComplex(r.m.ChannelID, &discordgo.MessageSend{
		Content:         content,
		Reference:       r.m.Reference(),
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
	})
	return err
}

func (r *messageResponder) ReplyEmbed(embed *discordgo.MessageEmbed) error {
	_, err := r.s.ChannelMessageSendComplex(r.m.ChannelID, &discordgo.MessageSend{
		Embeds:          []*discordgo.MessageEmbed{embed},
		Reference:       r.m.Reference(),
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
	})
	return err
}

func (r *messageResponder) React(emoji string) error {
	return r.s.MessageReactionAdd(r.m.ChannelID, r.m.ID, emoji)
}

var _ MemberLookup = (*Platform)(nil)
