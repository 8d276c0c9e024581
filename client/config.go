package client

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerAddr string `envconfig:"SERVER_ADDR" default:"localhost:1194"`
	// SPAM_INTERVAL is the minimum delay between two sent lines
	SpamInterval time.Duration `envconfig:"SPAM_INTERVAL" default:"1500ms"`
	// SPAM_GRACE delays the spam guard after connecting, so the nickname
	// and a first message can go out immediately
	SpamGrace time.Duration `envconfig:"SPAM_GRACE" default:"5s"`
	LogLevel  string        `envconfig:"LOG_LEVEL" default:"WARN"`
}

// LoadConfig reads CHATTERM_* variables.
func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("chatterm", &cfg)
	return cfg, err
}
