package audionode

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
)

type NodeConfig struct {
	Name     string
	Address  string
	Password string
	Secure   bool
}

var _ Node = (*Lavalink)(nil)

// Lavalink adapts a disgolink client to Node. It cannot be used before
// Connect, which needs the bot's own user id from the Discord Ready event.
type Lavalink struct {
	cfg    NodeConfig
	events chan Event
	done   chan struct{}

	mu     sync.RWMutex
	client disgolink.Client
	closed bool
}

func NewLavalink(cfg NodeConfig) *Lavalink {
	return &Lavalink{
		cfg:    cfg,
		events: make(chan Event, 256),
		done:   make(chan struct{}),
	}
}

// Events delivers node events in the order the node sent them.
func (l *Lavalink) Events() <-chan Event { return l.events }

func (l *Lavalink) Connect(ctx context.Context, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.client != nil {
		return nil
	}
	id, err := snowflake.Parse(userID)
	if err != nil {
		return fmt.Errorf("parse bot user id: %w", err)
	}

	client := disgolink.New(id,
		disgolink.WithListenerFunc(l.onTrackStart),
		disgolink.WithListenerFunc(l.onTrackEnd),
		disgolink.WithListenerFunc(l.onTrackStuck),
		disgolink.WithListenerFunc(l.onTrackException),
		disgolink.WithListenerFunc(l.onWebSocketClosed),
	)
	node, err := client.AddNode(ctx, disgolink.NodeConfig{
		Name:     l.cfg.Name,
		Address:  l.cfg.Address,
		Password: l.cfg.Password,
		Secure:   l.cfg.Secure,
	})
	if err != nil {
		client.Close()
		return fmt.Errorf("add lavalink node %s: %w", l.cfg.Address, err)
	}
	slog.Info("lavalink node connected", "node", node.Config().Name, "address", l.cfg.Address)
	l.client = client
	return nil
}

func (l *Lavalink) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	close(l.done)
	if l.client != nil {
		l.client.Close()
	}
}

func (l *Lavalink) get() (disgolink.Client, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.client == nil {
		return nil, ErrNotReady
	}
	return l.client, nil
}

func (l *Lavalink) player(guildID string) (disgolink.Player, error) {
	c, err := l.get()
	if err != nil {
		return nil, err
	}
	id, err := snowflake.Parse(guildID)
	if err != nil {
		return nil, fmt.Errorf("parse guild id: %w", err)
	}
	return c.Player(id), nil
}

func (l *Lavalink) existingPlayer(guildID string) disgolink.Player {
	c, err := l.get()
	if err != nil {
		return nil
	}
	id, err := snowflake.Parse(guildID)
	if err != nil {
		return nil
	}
	return c.ExistingPlayer(id)
}

func (l *Lavalink) LoadTracks(ctx context.Context, query string) (LoadResult, error) {
	c, err := l.get()
	if err != nil {
		return LoadResult{}, err
	}
	node := c.BestNode()
	if node == nil {
		return LoadResult{}, ErrNotReady
	}

	var (
		res     LoadResult
		loadErr error
	)
	node.LoadTracksHandler(ctx, query, disgolink.NewResultHandler(
		func(track lavalink.Track) {
			res = LoadResult{LoadType: LoadTrack, Tracks: []Track{fromLavalink(track)}}
		},
		func(playlist lavalink.Playlist) {
			res = LoadResult{LoadType: LoadPlaylist, PlaylistName: playlist.Info.Name, Tracks: fromLavalinkAll(playlist.Tracks)}
		},
		func(tracks []lavalink.Track) {
			res = LoadResult{LoadType: LoadSearch, Tracks: fromLavalinkAll(tracks)}
		},
		func() {
			res = LoadResult{LoadType: LoadEmpty}
		},
		func(err error) {
			loadErr = err
		},
	))
	if loadErr != nil {
		if ctx.Err() != nil {
			return LoadResult{}, Err(ctx.Err())
		}
		// the node answered with a load exception
		return LoadResult{LoadType: LoadError, Err: loadErr.Error()}, nil
	}
	return res, nil
}

func (l *Lavalink) Play(ctx context.Context, guildID string, track Track) error {
	p, err := l.player(guildID)
	if err != nil {
		return err
	}
	return Err(p.Update(ctx, lavalink.WithTrack(lavalink.Track{Encoded: track.Encoded})))
}

func (l *Lavalink) Pause(ctx context.Context, guildID string, paused bool) error {
	p, err := l.player(guildID)
	if err != nil {
		return err
	}
	return Err(p.Update(ctx, lavalink.WithPaused(paused)))
}

func (l *Lavalink) Seek(ctx context.Context, guildID string, position time.Duration) error {
	p, err := l.player(guildID)
	if err != nil {
		return err
	}
	return Err(p.Update(ctx, lavalink.WithPosition(lavalink.Duration(position.Milliseconds()))))
}

func (l *Lavalink) SetVolume(ctx context.Context, guildID string, volume int) error {
	p, err := l.player(guildID)
	if err != nil {
		return err
	}
	return Err(p.Update(ctx, lavalink.WithVolume(volume)))
}

func (l *Lavalink) Stop(ctx context.Context, guildID string) error {
	p := l.existingPlayer(guildID)
	if p == nil {
		return nil
	}
	return Err(p.Update(ctx, lavalink.WithNullTrack()))
}

func (l *Lavalink) Destroy(ctx context.Context, guildID string) error {
	p := l.existingPlayer(guildID)
	if p == nil {
		return nil
	}
	return Err(p.Destroy(ctx))
}

func (l *Lavalink) Position(guildID string) time.Duration {
	p := l.existingPlayer(guildID)
	if p == nil {
		return 0
	}
	return time.Duration(p.Position()) * time.Millisecond
}

// OnVoiceStateUpdate relays the bot's own voice state; an empty channelID
// means the bot left.
func (l *Lavalink) OnVoiceStateUpdate(ctx context.Context, guildID, channelID, sessionID string) {
	c, err := l.get()
	if err != nil {
		return
	}
	gid, err := snowflake.Parse(guildID)
	if err != nil {
		return
	}
	var chID *snowflake.ID
	if channelID != "" {
		id, err := snowflake.Parse(channelID)
		if err != nil {
			return
		}
		chID = &id
	}
	c.OnVoiceStateUpdate(ctx, gid, chID, sessionID)
}

func (l *Lavalink) OnVoiceServerUpdate(ctx context.Context, guildID, token, endpoint string) {
	c, err := l.get()
	if err != nil {
		return
	}
	gid, err := snowflake.Parse(guildID)
	if err != nil {
		return
	}
	c.OnVoiceServerUpdate(ctx, gid, token, endpoint)
}

func (l *Lavalink) emit(ev Event) {
	select {
	case l.events <- ev:
	case <-l.done:
	}
}

func (l *Lavalink) onTrackStart(p disgolink.Player, e lavalink.TrackStartEvent) {
	l.emit(TrackStart{GuildID: p.GuildID().String(), Track: fromLavalink(e.Track)})
}

func (l *Lavalink) onTrackEnd(p disgolink.Player, e lavalink.TrackEndEvent) {
	l.emit(TrackEnd{
		GuildID:      p.GuildID().String(),
		Track:        fromLavalink(e.Track),
		MayStartNext: e.Reason.MayStartNext(),
		Reason:       string(e.Reason),
	})
}

func (l *Lavalink) onTrackStuck(p disgolink.Player, e lavalink.TrackStuckEvent) {
	l.emit(TrackStuck{GuildID: p.GuildID().String(), Track: fromLavalink(e.Track)})
}

func (l *Lavalink) onTrackException(p disgolink.Player, e lavalink.TrackExceptionEvent) {
	l.emit(TrackException{
		GuildID: p.GuildID().String(),
		Track:   fromLavalink(e.Track),
		Message: e.Exception.Message,
	})
}

func (l *Lavalink) onWebSocketClosed(p disgolink.Player, e lavalink.WebSocketClosedEvent) {
	slog.Warn("lavalink voice websocket closed",
		"guildID", p.GuildID().String(),
		"code", e.Code,
		"reason", e.Reason,
		"byRemote", e.ByRemote,
	)
}

func fromLavalink(t lavalink.Track) Track {
	out := Track{
		Encoded:    t.Encoded,
		Identifier: t.Info.Identifier,
		Title:      t.Info.Title,
		Author:     t.Info.Author,
		Length:     time.Duration(t.Info.Length) * time.Millisecond,
		IsStream:   t.Info.IsStream,
	}
	if t.Info.URI != nil {
		out.URI = *t.Info.URI
	}
	if t.Info.ArtworkURL != nil {
		out.ArtworkURL = *t.Info.ArtworkURL
	}
	return out
}

func fromLavalinkAll(in []lavalink.Track) []Track {
	out := make([]Track, 0, len(in))
	for _, t := range in {
		out = append(out, fromLavalink(t))
	}
	return out
}
