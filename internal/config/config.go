// Package config turns the viper key space into a typed configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"smartobd/internal/obd"
	"smartobd/internal/obd/elm327"

	"github.com/spf13/viper"
)

const (
	EnvPrefix = "SMARTOBD"
	FileName  = ".smartobd"
)

// Keys shared by flags, environment and config file.
const (
	KeyPort       = "port"
	KeyBaud       = "baud"
	KeyTimeout    = "timeout"
	KeyMock       = "mock"
	KeyDebug      = "debug"
	KeyDTCCatalog = "dtc-catalog"
)

// Config holds the global settings of a run.
type Config struct {
	Port       string // empty means discover
	Baud       int
	Timeout    time.Duration
	Mock       bool
	Debug      bool
	DTCCatalog string
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, "")
	v.SetDefault(KeyBaud, elm327.DefaultBaud)
	v.SetDefault(KeyTimeout, obd.DefaultTimeout)
	v.SetDefault(KeyMock, false)
	v.SetDefault(KeyDebug, false)
	v.SetDefault(KeyDTCCatalog, "")
}

// Init wires environment overrides and reads the config file. An empty
// file means $HOME/.smartobd.yaml, which may be missing.
func Init(v *viper.Viper, file string) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read %s: %w", file, err)
		}
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	v.AddConfigPath(home)
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", filepath.Join(home, FileName+".yaml"), err)
	}
	return nil
}

// Load reads the typed configuration from v and validates it.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:       strings.TrimSpace(v.GetString(KeyPort)),
		Baud:       v.GetInt(KeyBaud),
		Timeout:    v.GetDuration(KeyTimeout),
		Mock:       v.GetBool(KeyMock),
		Debug:      v.GetBool(KeyDebug),
		DTCCatalog: v.GetString(KeyDTCCatalog),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Baud <= 0 {
		return fmt.Errorf("config: baud must be positive, got %d", c.Baud)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: timeout must be positive, got %v", c.Timeout)
	}
	return nil
}

// ELM returns the serial settings for the adapter.
func (c Config) ELM() elm327.Config {
	return elm327.Config{
		Port:    c.Port,
		Baud:    c.Baud,
		Timeout: c.Timeout,
	}
}
