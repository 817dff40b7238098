package model

import "time"

// Config is the process configuration. Per-guild settings live in the store.
type Config struct {
	BotToken     string   `mapstructure:"bot_token"`
	LogChannelID string   `mapstructure:"log_channel_id"`
	OwnerIDs     []string `mapstructure:"owner_ids"`
	DatabasePath string   `mapstructure:"database_path"`
	LogLevel     string   `mapstructure:"log_level"`
	LogFormat    string   `mapstructure:"log_format"`
	MetricsAddr  string   `mapstructure:"metrics_addr"`

	TimeoutSweepInterval time.Duration `mapstructure:"timeout_sweep_interval"`
	RaidSweepInterval    time.Duration `mapstructure:"raid_sweep_interval"`

	PolicyCacheSize int           `mapstructure:"policy_cache_size"`
	PolicyCacheTTL  time.Duration `mapstructure:"policy_cache_ttl"`
	PlatformRPS     float64       `mapstructure:"platform_rps"`
}

// IsOwner reports whether userID is a configured bot owner.
func (c *Config) IsOwner(userID string) bool {
	for _, id := range c.OwnerIDs {
		if id == userID {
			return true
		}
	}
	return false
}
