package internal

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Host              string        `env:"HOST,default=0.0.0.0"`
	Port              int           `env:"PORT,default=1194" validate:"gte=0,lte=65535"`
	LogLevel          string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR debug info warn error"`
	MaxNameAttempts   int           `env:"MAX_NAME_ATTEMPTS,default=64" validate:"gte=1"`
	NameSuffixRange   int           `env:"NAME_SUFFIX_RANGE,default=1000" validate:"gte=1"`
	HandshakeAttempts int           `env:"HANDSHAKE_ATTEMPTS,default=3" validate:"gte=1"`
	HandshakeTimeout  time.Duration `env:"HANDSHAKE_TIMEOUT,default=60s" validate:"gte=0"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT,default=5s" validate:"gte=0"`
	MaxLineLength     int           `env:"MAX_LINE_LENGTH,default=4096" validate:"gte=64"`
	ShowTimestamps    bool          `env:"SHOW_TIMESTAMPS,default=false"`
	CensoredWords     string        `env:"CENSORED_WORDS"`
	CensoredDir       string        `env:"CENSORED_DIR"`
	CharReplacement   string        `env:"CENSOR_CHAR,default=*"`
	MetricsAddr       string        `env:"METRICS_ADDR"`
	StatsInterval     time.Duration `env:"STATS_INTERVAL,default=30s" validate:"gt=0"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s" validate:"gt=0"`
}

var validate = validator.New()

// LoadConfig reads the process environment and validates the result.
func LoadConfig() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if _, err := c.CharacterRune(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// CensoredWordList splits CENSORED_WORDS on commas.
func (c Config) CensoredWordList() []string {
	if strings.TrimSpace(c.CensoredWords) == "" {
		return nil
	}
	return strings.Split(c.CensoredWords, ",")
}

func (c Config) CharacterRune() (rune, error) {
	r := []rune(c.CharReplacement)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CENSOR_CHAR must be a single character, got %q",
			c.CharReplacement,
		)
	}
	return r[0], nil
}
