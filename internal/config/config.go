// Package config loads the runtime configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds every knob the process reads at startup. Missing required
// values are a fatal configuration error.
type Config struct {
	BotToken    string `env:"TELEGRAM_BOT_TOKEN,required"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// Language selects the locale for all user-visible texts.
	Language string `env:"BOT_LANGUAGE" envDefault:"en"`
	Debug    bool   `env:"BOT_DEBUG" envDefault:"false"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
