package config

import "time"

type Config struct {
	DiscordToken  string `env:"DISCORD_TOKEN,required,notEmpty"`
	CommandPrefix string `env:"COMMAND_PREFIX" envDefault:"f!"`
	DataDir       string `env:"DATA_DIR" envDefault:"./data"`
	BotStatus     string `env:"BOT_STATUS" envDefault:"online"` // online/dnd/idle
	BotActivity   string `env:"BOT_ACTIVITY" envDefault:"music"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	LavalinkName     string `env:"LAVALINK_NAME" envDefault:"default-node"`
	LavalinkAddress  string `env:"LAVALINK_ADDRESS" envDefault:"localhost:2333"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD" envDefault:"youshallnotpass"`
	LavalinkSecure   bool   `env:"LAVALINK_SECURE" envDefault:"false"`

	SpotifyClientID     string `env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`

	RedisURL       string        `env:"REDIS_URL"`
	LookupCacheTTL time.Duration `env:"LOOKUP_CACHE_TTL" envDefault:"10m"`

	NodeTimeout         time.Duration `env:"NODE_TIMEOUT" envDefault:"10s"`
	VoiceConnectTimeout time.Duration `env:"VOICE_CONNECT_TIMEOUT" envDefault:"10s"`
	VoiceSettleDelay    time.Duration `env:"VOICE_SETTLE_DELAY" envDefault:"0s"` // after the voice handshake, 0 skips it

	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"30s"`
	CommandCooldown time.Duration `env:"COMMAND_COOLDOWN" envDefault:"2s"`
	PlaylistLimit   int           `env:"PLAYLIST_LIMIT" envDefault:"100"`
}

func (c *Config) SpotifyEnabled() bool {
	return c.SpotifyClientID != "" && c.SpotifyClientSecret != ""
}
