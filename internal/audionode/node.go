// Package audionode talks to the external audio node that searches, decodes
// and streams tracks on the bot's behalf.
package audionode

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTimeout reports that the node did not answer within the deadline.
	ErrTimeout = errors.New("audio node timed out")
	// ErrNotReady is returned before the node connection is established.
	ErrNotReady = errors.New("audio node is not connected")
)

type LoadType string

const (
	LoadTrack    LoadType = "track"
	LoadPlaylist LoadType = "playlist"
	LoadSearch   LoadType = "search"
	LoadEmpty    LoadType = "empty"
	LoadError    LoadType = "error"
)

type Track struct {
	Encoded    string        `json:"encoded"`
	Identifier string        `json:"identifier"`
	Title      string        `json:"title"`
	Author     string        `json:"author"`
	URI        string        `json:"uri"`
	ArtworkURL string        `json:"artworkUrl,omitempty"`
	Length     time.Duration `json:"length"`
	IsStream   bool          `json:"isStream"`
}

type LoadResult struct {
	LoadType     LoadType `json:"loadType"`
	PlaylistName string   `json:"playlistName,omitempty"`
	Tracks       []Track  `json:"tracks"`
	Err          string   `json:"error,omitempty"`
}

// Node is the command side of the audio node. Events flow back separately.
type Node interface {
	LoadTracks(ctx context.Context, query string) (LoadResult, error)
	Play(ctx context.Context, guildID string, track Track) error
	Pause(ctx context.Context, guildID string, paused bool) error
	Seek(ctx context.Context, guildID string, position time.Duration) error
	SetVolume(ctx context.Context, guildID string, volume int) error
	Stop(ctx context.Context, guildID string) error
	Destroy(ctx context.Context, guildID string) error
	Position(guildID string) time.Duration
}

// Err maps context expiry onto ErrTimeout and leaves other errors alone.
func Err(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
		return errors.Join(ErrTimeout, err)
	}
	return err
}
