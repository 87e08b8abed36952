package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dkeye/CamBridge/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode     string `mapstructure:"mode"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
	Secret   string `mapstructure:"secret"`

	// DefaultStreamURL is played when a publisher asks for "camera" or
	// gives no stream path.
	DefaultStreamURL string        `mapstructure:"default_stream_url"`
	RTSPTimeout      time.Duration `mapstructure:"rtsp_timeout"`

	CloseTimeout    time.Duration `mapstructure:"close_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	GatherTimeout   time.Duration `mapstructure:"gather_timeout"`
	PingPeriod      time.Duration `mapstructure:"ping_period"`

	OfferRate  float64 `mapstructure:"offer_rate"`
	OfferBurst int     `mapstructure:"offer_burst"`

	CORSAllowOrigins []string           `mapstructure:"cors_allow_origins"`
	ICEServers       []domain.IceServer `mapstructure:"ice_servers"`
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default). A missing
// file is not an error; defaults and CAMBRIDGE_* env vars still apply.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	v.SetEnvPrefix("CAMBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8000)
	v.SetDefault("log_level", "info")
	v.SetDefault("secret", "")
	v.SetDefault("default_stream_url", "rtsp://localhost:8554/camera")
	v.SetDefault("rtsp_timeout", "10s")
	v.SetDefault("close_timeout", "3s")
	v.SetDefault("shutdown_timeout", "5s")
	v.SetDefault("gather_timeout", "10s")
	v.SetDefault("ping_period", "54s")
	v.SetDefault("offer_rate", 1.0)
	v.SetDefault("offer_burst", 5)
	v.SetDefault("cors_allow_origins", []string{"*"})

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if len(cfg.ICEServers) == 0 {
		cfg.ICEServers = domain.DefaultICEServers()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Int("ice_servers", len(cfg.ICEServers)).
		Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.DefaultStreamURL == "" {
		errs = append(errs, errors.New("default_stream_url is empty"))
	}
	for name, d := range map[string]time.Duration{
		"rtsp_timeout":     c.RTSPTimeout,
		"close_timeout":    c.CloseTimeout,
		"shutdown_timeout": c.ShutdownTimeout,
		"gather_timeout":   c.GatherTimeout,
		"ping_period":      c.PingPeriod,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.OfferRate <= 0 || c.OfferBurst <= 0 {
		errs = append(errs, errors.New("offer_rate and offer_burst must be positive"))
	}
	for i, s := range c.ICEServers {
		if err := s.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("ice_servers[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
