package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sonroyaalmerol/frenchfry/internal/audionode"
	"github.com/sonroyaalmerol/frenchfry/internal/cache"
	"github.com/sonroyaalmerol/frenchfry/internal/spotify"
)

// SpotifyExpander turns a Spotify link into plain track names.
type SpotifyExpander interface {
	Expand(ctx context.Context, link string, limit int) (string, []spotify.Track, error)
}

type ResolverOptions struct {
	NodeTimeout time.Duration
	CacheTTL    time.Duration
}

// Resolver turns user queries into playable tracks through the node.
type Resolver struct {
	node    audionode.Node
	cache   cache.Cache
	spotify SpotifyExpander
	opts    ResolverOptions

	group singleflight.Group
}

// Lookup is a resolved query. PlaylistName is set for playlists and
// expanded Spotify collections; Tracks is never empty.
type Lookup struct {
	PlaylistName string
	Tracks       []audionode.Track
}

// NewResolver builds a resolver. c and sp may be nil.
func NewResolver(node audionode.Node, c cache.Cache, sp SpotifyExpander, opts ResolverOptions) *Resolver {
	if opts.NodeTimeout <= 0 {
		opts.NodeTimeout = 10 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	return &Resolver{node: node, cache: c, spotify: sp, opts: opts}
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// NormalizeQuery turns user input into a node identifier. URLs pass
// through, "soundcloud <terms>" searches SoundCloud and anything else
// searches YouTube.
func NormalizeQuery(q string) string {
	q = strings.TrimSpace(q)
	q = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(q, "<"), ">"))
	if isURL(q) || strings.HasPrefix(q, "ytsearch:") || strings.HasPrefix(q, "scsearch:") {
		return q
	}
	if rest, ok := cutPrefixFold(q, "soundcloud "); ok {
		return "scsearch:" + strings.TrimSpace(rest)
	}
	return "ytsearch:" + q
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

func (r *Resolver) Resolve(ctx context.Context, query string, limit int) (Lookup, error) {
	q := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(query), "<"), ">"))
	if q == "" {
		return Lookup{}, ErrTrackLookupFailed
	}
	if spotify.IsLink(q) {
		return r.resolveSpotify(ctx, q, limit)
	}

	ident := NormalizeQuery(q)
	res, err := r.load(ctx, ident)
	if err != nil {
		return Lookup{}, err
	}
	if len(res.Tracks) == 0 && strings.HasPrefix(ident, "ytsearch:") {
		ident = "scsearch:" + strings.TrimPrefix(ident, "ytsearch:")
		if res, err = r.load(ctx, ident); err != nil {
			return Lookup{}, err
		}
	}

	switch res.LoadType {
	case audionode.LoadError:
		return Lookup{}, fmt.Errorf("%w: %s", ErrTrackLookupFailed, res.Err)
	case audionode.LoadPlaylist:
		if len(res.Tracks) == 0 {
			return Lookup{}, ErrTrackLookupFailed
		}
		tracks := res.Tracks
		if limit > 0 && len(tracks) > limit {
			tracks = tracks[:limit]
		}
		name := res.PlaylistName
		if name == "" {
			name = "Untitled playlist"
		}
		return Lookup{PlaylistName: name, Tracks: tracks}, nil
	}
	if len(res.Tracks) == 0 {
		return Lookup{}, ErrTrackLookupFailed
	}
	return Lookup{Tracks: res.Tracks[:1]}, nil
}

func (r *Resolver) resolveSpotify(ctx context.Context, link string, limit int) (Lookup, error) {
	if r.spotify == nil {
		return Lookup{}, fmt.Errorf("%w: %w", ErrTrackLookupFailed, ErrSpotifyDisabled)
	}
	name, sts, err := r.spotify.Expand(ctx, link, limit)
	if err != nil {
		return Lookup{}, fmt.Errorf("%w: spotify: %v", ErrTrackLookupFailed, err)
	}

	out := Lookup{PlaylistName: name}
	for _, st := range sts {
		res, err := r.load(ctx, spotify.SearchQuery(st))
		if errors.Is(err, ErrNodeTimeout) {
			return Lookup{}, err
		}
		if err != nil || len(res.Tracks) == 0 {
			slog.Debug("spotify track not found", "name", st.Name, "artist", st.Artist, "err", err)
			continue
		}
		out.Tracks = append(out.Tracks, res.Tracks[0])
	}
	if len(out.Tracks) == 0 {
		return Lookup{}, ErrTrackLookupFailed
	}
	return out, nil
}

// load asks the node for ident. Concurrent lookups of the same identifier
// share one request and successful results are cached.
func (r *Resolver) load(ctx context.Context, ident string) (audionode.LoadResult, error) {
	key := "lookup:" + ident
	if r.cache != nil {
		var cached audionode.LoadResult
		if err := r.cache.GetAndParse(ctx, key, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			slog.Warn("lookup cache get", "key", key, "err", err)
		}
	}

	v, err, _ := r.group.Do(ident, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.NodeTimeout)
		defer cancel()
		res, err := r.node.LoadTracks(lctx, ident)
		if err != nil {
			return audionode.LoadResult{}, audionode.Err(err)
		}
		if r.cache != nil && len(res.Tracks) > 0 {
			if err := r.cache.SetExp(lctx, key, res, r.opts.CacheTTL); err != nil {
				slog.Warn("lookup cache set", "key", key, "err", err)
			}
		}
		return res, nil
	})
	if err != nil {
		if errors.Is(err, ErrNodeTimeout) {
			return audionode.LoadResult{}, err
		}
		return audionode.LoadResult{}, fmt.Errorf("%w: %w", ErrTrackLookupFailed, err)
	}
	return v.(audionode.LoadResult), nil
}
