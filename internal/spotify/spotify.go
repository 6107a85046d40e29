// Package spotify turns Spotify links into artist/title pairs that can be
// searched for on other sources.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// topTracksMarket is the market used for artist top tracks.
const topTracksMarket = "US"

var ErrUnsupportedLink = errors.New("unsupported spotify link")

type Track struct {
	Name   string
	Artist string
}

// Link is a parsed Spotify URL or URI.
type Link struct {
	Kind string // album, playlist, track or artist
	ID   spotify.ID
}

type Client struct {
	api *spotify.Client
}

func NewClientCredentials(clientID, clientSecret string) (*Client, error) {
	creds := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	api := spotify.New(creds.Client(context.Background()), spotify.WithRetry(true))
	return &Client{api: api}, nil
}

// ParseLink accepts open.spotify.com URLs and spotify:kind:id URIs.
func ParseLink(raw string) (Link, error) {
	var kind, id string
	if rest, ok := strings.CutPrefix(raw, "spotify:"); ok {
		var found bool
		kind, id, found = strings.Cut(rest, ":")
		if !found || id == "" {
			return Link{}, fmt.Errorf("%w: %s", ErrUnsupportedLink, raw)
		}
	} else {
		u, err := url.Parse(raw)
		if err != nil {
			return Link{}, err
		}
		if strings.TrimPrefix(u.Host, "www.") != "open.spotify.com" {
			return Link{}, fmt.Errorf("%w: %s", ErrUnsupportedLink, raw)
		}
		segs := strings.Split(strings.Trim(u.Path, "/"), "/")
		// localized links look like /intl-de/track/<id>
		if len(segs) > 0 && strings.HasPrefix(segs[0], "intl-") {
			segs = segs[1:]
		}
		if len(segs) < 2 {
			return Link{}, fmt.Errorf("%w: %s", ErrUnsupportedLink, raw)
		}
		kind, id = segs[0], segs[1]
	}
	switch kind {
	case "album", "playlist", "track", "artist":
		return Link{Kind: kind, ID: spotify.ID(id)}, nil
	}
	return Link{}, fmt.Errorf("%w: %s", ErrUnsupportedLink, raw)
}

// collector gathers at most limit tracks, limit <= 0 meaning no bound.
type collector struct {
	limit  int
	tracks []Track
}

func (c *collector) full() bool { return c.limit > 0 && len(c.tracks) >= c.limit }

func (c *collector) add(name string, artists []spotify.SimpleArtist) {
	if c.full() {
		return
	}
	t := Track{Name: name}
	if len(artists) > 0 {
		t.Artist = artists[0].Name
	}
	c.tracks = append(c.tracks, t)
}

// Expand resolves a Spotify link into at most limit tracks. name is the
// album or playlist title, empty for single tracks and artists.
func (c *Client) Expand(ctx context.Context, link string, limit int) (name string, tracks []Track, err error) {
	l, err := ParseLink(link)
	if err != nil {
		return "", nil, err
	}
	col := &collector{limit: limit}

	switch l.Kind {
	case "track":
		t, err := c.api.GetTrack(ctx, l.ID)
		if err != nil {
			return "", nil, err
		}
		col.add(t.Name, t.Artists)

	case "artist":
		top, err := c.api.GetArtistsTopTracks(ctx, l.ID, topTracksMarket)
		if err != nil {
			return "", nil, err
		}
		for _, t := range top {
			col.add(t.Name, t.Artists)
		}

	case "album":
		alb, err := c.api.GetAlbum(ctx, l.ID)
		if err != nil {
			return "", nil, err
		}
		name = alb.Name
		page, err := c.api.GetAlbumTracks(ctx, l.ID)
		if err != nil {
			return "", nil, err
		}
		for {
			for _, t := range page.Tracks {
				col.add(t.Name, t.Artists)
			}
			if page.Next == "" || col.full() || c.api.NextPage(ctx, page) != nil {
				break
			}
		}

	case "playlist":
		pl, err := c.api.GetPlaylist(ctx, l.ID)
		if err != nil {
			return "", nil, err
		}
		name = pl.Name
		page, err := c.api.GetPlaylistItems(ctx, l.ID)
		if err != nil {
			return "", nil, err
		}
		for {
			for _, it := range page.Items {
				// episodes and removed tracks carry no track
				if t := it.Track.Track; t != nil {
					col.add(t.Name, t.Artists)
				}
			}
			if page.Next == "" || col.full() || c.api.NextPage(ctx, page) != nil {
				break
			}
		}
	}
	return name, col.tracks, nil
}

// SearchQuery is the node lookup used to find a Spotify track elsewhere.
func SearchQuery(t Track) string {
	return fmt.Sprintf(`ytsearch:"%s" "%s"`, t.Name, t.Artist)
}

// IsLink reports whether s looks like a Spotify URL or URI.
func IsLink(s string) bool {
	return strings.HasPrefix(s, "spotify:") || strings.Contains(s, "open.spotify.com")
}
