package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	Secret     string        `mapstructure:"secret"`

	Relay RelayConfig `mapstructure:"relay"`
	Log   LogConfig   `mapstructure:"log"`
}

type RelayConfig struct {
	SendBuffer      int     `mapstructure:"send_buffer"`
	Overflow        string  `mapstructure:"overflow"`
	EventsPerSecond float64 `mapstructure:"events_per_second"`
	Burst           int     `mapstructure:"burst"`
	Autostart       bool    `mapstructure:"autostart"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default), then environment overrides.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFile is Load with an explicit file. A missing file falls back to defaults.
func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("static", cfg.StaticPath).
		Str("overflow", cfg.Relay.Overflow).Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 3000)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "5s")
	v.SetDefault("secret", "change-me")

	v.SetDefault("relay.send_buffer", 64)
	v.SetDefault("relay.overflow", "drop_oldest")
	v.SetDefault("relay.events_per_second", 20)
	v.SetDefault("relay.burst", 40)
	v.SetDefault("relay.autostart", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}

func (c *Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("invalid port %d", c.Port)
	case c.ReadLimit <= 0:
		return fmt.Errorf("read_limit must be positive")
	case c.PingPeriod <= 0 || c.PongWait <= c.PingPeriod:
		return fmt.Errorf("ping_period must be positive and shorter than pong_wait")
	case c.WriteWait <= 0:
		return fmt.Errorf("write_wait must be positive")
	case c.Relay.SendBuffer <= 0:
		return fmt.Errorf("relay.send_buffer must be positive")
	case c.Relay.Overflow != "drop_oldest" && c.Relay.Overflow != "disconnect":
		return fmt.Errorf("relay.overflow must be drop_oldest or disconnect, got %q", c.Relay.Overflow)
	case c.Relay.EventsPerSecond < 0 || c.Relay.Burst < 0:
		return fmt.Errorf("relay rate limits must not be negative")
	}
	return nil
}
