// Package config loads client settings from the environment.
package config

import (
	"fmt"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// Config holds the client settings. Each field maps to one environment
// variable; unset variables take the default in the tag.
type Config struct {
	ChatURL      string        `env:"CHAT_WS_URL,default=ws://localhost:8080/ws"`
	LoginURL     string        `env:"LOGIN_WS_URL,default=ws://localhost:8080/login"`
	APIBaseURL   string        `env:"API_BASE_URL,default=http://localhost:8080"`
	IdentityURL  string        `env:"IDENTITY_API_URL,default=https://discord.com/api"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT,default=10s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	HTTPTimeout  time.Duration `env:"HTTP_TIMEOUT,default=10s"`
	LogLevel     string        `env:"LOG_LEVEL,default=INFO"`
	Token        string        `env:"CHAT_TOKEN"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load(files ...string) (Config, error) {
	_ = godotenv.Load(files...)
	return FromEnviron()
}

// FromEnviron reads the process environment only.
func FromEnviron() (Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	return cfg, nil
}
