package repository

import (
	"context"
	"database/sql"
	"errors"
)

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db, defaults: Settings{
		PlaylistLimit:         100,
		SecondsWaitAfterEmpty: 30,
		AnnounceNowPlaying:    true,
	}}
}

// WithDefaults sets the values new guilds start with. A playlist limit
// below 1 or a negative wait keeps the built-in value. A zero wait makes
// new guilds never leave on idle.
func (r *Repo) WithDefaults(playlistLimit, secondsWaitAfterEmpty int) *Repo {
	if playlistLimit > 0 {
		r.defaults.PlaylistLimit = playlistLimit
	}
	if secondsWaitAfterEmpty >= 0 {
		r.defaults.SecondsWaitAfterEmpty = secondsWaitAfterEmpty
	}
	return r
}

func (r *Repo) UpsertSettings(ctx context.Context, guild string) (*Settings, error) {
	if _, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings(guild_id, playlist_limit, seconds_wait_after_empty, announce_now_playing) VALUES (?,?,?,?)`,
		guild, r.defaults.PlaylistLimit, r.defaults.SecondsWaitAfterEmpty, boolToInt(r.defaults.AnnounceNowPlaying),
	); err != nil {
		return nil, err
	}
	return r.GetSettings(ctx, guild)
}

func (r *Repo) GetSettings(ctx context.Context, guild string) (*Settings, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT guild_id, prefix, playlist_limit, seconds_wait_after_empty, announce_now_playing
	FROM settings WHERE guild_id = ?`, guild)

	var s Settings
	var announce int
	if err := row.Scan(
		&s.GuildID,
		&s.Prefix,
		&s.PlaylistLimit,
		&s.SecondsWaitAfterEmpty,
		&announce,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	s.AnnounceNowPlaying = announce != 0
	return &s, nil
}

func (r *Repo) UpdateSettings(ctx context.Context, s *Settings) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE settings SET
		  prefix=?,
		  playlist_limit=?,
		  seconds_wait_after_empty=?,
		  announce_now_playing=?
		WHERE guild_id=?`,
		s.Prefix, s.PlaylistLimit, s.SecondsWaitAfterEmpty,
		boolToInt(s.AnnounceNowPlaying), s.GuildID,
	)
	return err
}

func (r *Repo) AddFavorite(ctx context.Context, f *Favorite) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO favorites(guild_id, author_id, name, query) VALUES (?,?,?,?)`,
		f.GuildID, f.Author, f.Name, f.Query,
	)
	return err
}

func (r *Repo) RemoveFavorite(ctx context.Context, guild, name string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE guild_id=? AND name=?`, guild, name)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repo) FindFavorite(ctx context.Context, guild, name string) (*Favorite, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, guild_id, author_id, name, query FROM favorites WHERE guild_id=? AND name=?`, guild, name)
	var f Favorite
	if err := row.Scan(&f.ID, &f.GuildID, &f.Author, &f.Name, &f.Query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFavoriteNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (r *Repo) ListFavorites(ctx context.Context, guild string) ([]Favorite, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, guild_id, author_id, name, query FROM favorites WHERE guild_id=? ORDER BY name ASC`, guild)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Favorite
	for rows.Next() {
		var f Favorite
		if err := rows.Scan(&f.ID, &f.GuildID, &f.Author, &f.Name, &f.Query); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
