package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sonroyaalmerol/frenchfry/internal/audionode"
	"github.com/sonroyaalmerol/frenchfry/internal/cache"
	"github.com/sonroyaalmerol/frenchfry/internal/cache/rediscache"
	"github.com/sonroyaalmerol/frenchfry/internal/config"
	"github.com/sonroyaalmerol/frenchfry/internal/handlers"
	"github.com/sonroyaalmerol/frenchfry/internal/repository"
	"github.com/sonroyaalmerol/frenchfry/internal/spotify"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	db, err := repository.OpenDB(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	repo := repository.NewRepo(db).WithDefaults(cfg.PlaylistLimit, cfg.IdleSeconds())

	var lookupCache cache.Cache = cache.NewMemoryCache()
	if cfg.RedisURL != "" {
		rc, err := rediscache.FromURL(cfg.RedisURL, "frenchfry:")
		if err != nil {
			log.Fatal(err)
		}
		defer rc.Close()
		if err := rc.Ping(context.Background()); err != nil {
			slog.Warn("redis unreachable, lookups will not be cached until it is back", "err", err)
		}
		lookupCache = rc
	}

	var sp *spotify.Client
	if cfg.SpotifyEnabled() {
		if sp, err = spotify.NewClientCredentials(cfg.SpotifyClientID, cfg.SpotifyClientSecret); err != nil {
			slog.Warn("spotify disabled", "err", err)
			sp = nil
		}
	}

	node := audionode.NewLavalink(audionode.NodeConfig{
		Name:     cfg.LavalinkName,
		Address:  cfg.LavalinkAddress,
		Password: cfg.LavalinkPassword,
		Secure:   cfg.LavalinkSecure,
	})
	bot := handlers.NewBot(cfg, repo, node, lookupCache, sp)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := bot.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
