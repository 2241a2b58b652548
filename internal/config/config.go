// Package config resolves cuatrace settings from flags, environment, .env and
// an optional .cuatrace.yaml file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configName = ".cuatrace"
	envPrefix  = "CUATRACE"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the resolved settings.
type Config struct {
	// BasePath prefixes relative asset paths, for deployment under a URL prefix.
	BasePath string `mapstructure:"base_path" validate:"omitempty,startswith=/"`
	// DataDir holds trace files. Empty means the bundled traces.
	DataDir string `mapstructure:"data_dir"`
	// Manifest is the manifest file name inside DataDir.
	Manifest         string        `mapstructure:"manifest" validate:"required"`
	AutoplayInterval time.Duration `mapstructure:"autoplay_interval" validate:"gt=0"`
	SettleDuration   time.Duration `mapstructure:"settle_duration" validate:"gte=0"`
	Autoplay         bool          `mapstructure:"autoplay"`
	Concurrency      int           `mapstructure:"concurrency" validate:"gte=1,lte=64"`
	LogLevel         string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat        string        `mapstructure:"log_format" validate:"oneof=text json"`
}

var validate = validator.New()

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("base_path", "")
	v.SetDefault("data_dir", "")
	v.SetDefault("manifest", "manifest.yaml")
	v.SetDefault("autoplay_interval", 10*time.Second)
	v.SetDefault("settle_duration", 300*time.Millisecond)
	v.SetDefault("autoplay", true)
	v.SetDefault("concurrency", 4)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// New returns a viper instance wired for cuatrace: defaults, CUATRACE_ env
// variables, and the config file when one is found. cfgFile overrides the search.
func New(cfgFile string) (*viper.Viper, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
