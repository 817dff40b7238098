package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"guild-guardian/model"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrMissingToken = errors.New("bot_token is not set")

func defaults(v *viper.Viper) {
	v.SetDefault("bot_token", "")
	v.SetDefault("log_channel_id", "")
	v.SetDefault("owner_ids", []string{})
	v.SetDefault("database_path", "data/guardian.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("timeout_sweep_interval", 60*time.Second)
	v.SetDefault("raid_sweep_interval", time.Hour)
	v.SetDefault("policy_cache_size", 1024)
	v.SetDefault("policy_cache_ttl", 5*time.Minute)
	v.SetDefault("platform_rps", 5.0)
}

// Load reads .env, the environment and, when path is not empty, a config file.
// Environment variables override file values (BOT_TOKEN, DATABASE_PATH, ...).
func Load(path string) (*model.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: .env file not found, relying on environment variables")
	}

	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg model.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	owners := cfg.OwnerIDs[:0]
	for _, id := range cfg.OwnerIDs {
		if id = strings.TrimSpace(id); id != "" {
			owners = append(owners, id)
		}
	}
	cfg.OwnerIDs = owners

	if cfg.BotToken == "" {
		return nil, ErrMissingToken
	}
	if cfg.TimeoutSweepInterval <= 0 || cfg.RaidSweepInterval <= 0 {
		return nil, fmt.Errorf("sweep intervals must be positive (timeout %s, raid %s)", cfg.TimeoutSweepInterval, cfg.RaidSweepInterval)
	}
	return &cfg, nil
}
