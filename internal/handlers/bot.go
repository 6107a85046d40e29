package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sonroyaalmerol/frenchfry/internal/audionode"
	"github.com/sonroyaalmerol/frenchfry/internal/cache"
	"github.com/sonroyaalmerol/frenchfry/internal/config"
	"github.com/sonroyaalmerol/frenchfry/internal/player"
	"github.com/sonroyaalmerol/frenchfry/internal/repository"
	"github.com/sonroyaalmerol/frenchfry/internal/spotify"
	"golang.org/x/sync/errgroup"
)

type Bot struct {
	cfg     *config.Config
	repo    *repository.Repo
	node    *audionode.Lavalink
	cache   cache.Cache
	spotify *spotify.Client
}

// NewBot wires the bot. sp may be nil when Spotify credentials are not set.
func NewBot(cfg *config.Config, repo *repository.Repo, node *audionode.Lavalink, lookupCache cache.Cache, sp *spotify.Client) *Bot {
	return &Bot{cfg: cfg, repo: repo, node: node, cache: lookupCache, spotify: sp}
}

func (b *Bot) Run(ctx context.Context) error {
	dg, err := discordgo.New("Bot " + b.cfg.DiscordToken)
	if err != nil {
		return err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	var expander player.SpotifyExpander
	if b.spotify != nil {
		expander = b.spotify
	}
	platform := NewPlatform(dg, b.node, b.cfg.VoiceConnectTimeout, b.cfg.VoiceSettleDelay)
	resolver := player.NewResolver(b.node, b.cache, expander, player.ResolverOptions{
		NodeTimeout: b.cfg.NodeTimeout,
		CacheTTL:    b.cfg.LookupCacheTTL,
	})
	pm := player.NewManager(b.node, platform, platform, resolver, player.Options{
		NodeTimeout:   b.cfg.NodeTimeout,
		IdleTimeout:   b.cfg.IdleTimeout,
		PlaylistLimit: b.cfg.PlaylistLimit,

		Settings: b.repo,
	})
	cooldowns := NewCooldowns(b.cfg.CommandCooldown)
	cmd := NewCommandHandler(b.cfg, b.repo, pm, platform, cooldowns)

	dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("connected", "user", r.User.Username, "guilds", len(r.Guilds))
		err := s.UpdateStatusComplex(discordgo.UpdateStatusData{
			Status: b.cfg.BotStatus,
			Activities: []*discordgo.Activity{{
				Name: b.cfg.BotActivity,
				Type: discordgo.ActivityTypeListening,
			}},
		})
		if err != nil {
			slog.Warn("update status", "err", err)
		}

		cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := b.node.Connect(cctx, r.User.ID); err != nil {
			slog.Error("connect audio node", "err", err)
		}
	})

	dg.AddHandler(cmd.HandleMessage)

	// only the bot's own voice state matters to the node
	dg.AddHandler(func(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
		at := time.Now()
		if s.State.User == nil || vs.UserID != s.State.User.ID {
			return
		}
		platform.VoiceStateUpdate(ctx, vs.GuildID, vs.ChannelID, vs.SessionID)
		pm.HandleBotVoiceState(vs.GuildID, vs.ChannelID, at)
	})

	dg.AddHandler(func(s *discordgo.Session, vs *discordgo.VoiceServerUpdate) {
		platform.VoiceServerUpdate(ctx, vs.GuildID, vs.Token, vs.Endpoint)
	})

	if err := dg.Open(); err != nil {
		return err
	}
	defer dg.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pm.Run(gctx, b.node.Events()) })
	g.Go(func() error { return cooldowns.Run(gctx) })
	if mc, ok := b.cache.(*cache.MemoryCache); ok {
		g.Go(func() error { return sweepCache(gctx, mc) })
	}
	err = g.Wait()

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pm.Shutdown(sctx)
	b.node.Close()
	slog.Info("shut down", "err", err)
	return err
}

func sweepCache(ctx context.Context, c *cache.MemoryCache) error {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				slog.Debug("swept lookup cache", "count", n)
			}
		}
	}
}
