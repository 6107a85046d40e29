package repository

import (
	"database/sql"
	"errors"
)

var ErrFavoriteNotFound = errors.New("favorite not found")

type Repo struct {
	db       *sql.DB
	defaults Settings
}

type Settings struct {
	GuildID               string
	Prefix                string // empty means the configured default
	PlaylistLimit         int
	SecondsWaitAfterEmpty int // 0 never leaves
	AnnounceNowPlaying    bool
}

type Favorite struct {
	ID      int64
	GuildID string
	Author  string
	Name    string
	Query   string
}
