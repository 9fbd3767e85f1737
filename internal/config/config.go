// Package config loads the build-time configuration for the update client:
// server address, polling cadence, TLS options, and the on-disk locations of
// the action log and spare firmware slot.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// defaultPollInterval is used when PollIntervalMinutes is out of the spec's
// valid range (1, 43200) minutes.
const defaultPollInterval = 300 * time.Second

// minPollIntervalMinutes and maxPollIntervalMinutes bound the configured
// polling cadence. Values outside this range fall back to defaultPollInterval.
const (
	minPollIntervalMinutes = 1
	maxPollIntervalMinutes = 43200
)

// IPFamily selects the network family used to dial the server.
type IPFamily string

const (
	IPFamilyV4 IPFamily = "v4"
	IPFamilyV6 IPFamily = "v6"
)

// Config is the build-time configuration enumerated in spec.md §6.
type Config struct {
	// Server is the update server host.
	Server string `mapstructure:"server"`

	// Port is the server's service port.
	Port int `mapstructure:"port"`

	// JSONURLRoot is the path prefix for all JSON resources (e.g. "/default/controller/v1").
	JSONURLRoot string `mapstructure:"json_url_root"`

	// Board identifies the device's hardware board in the URL device-id segment.
	Board string `mapstructure:"board"`

	// PollIntervalMinutes is clamped to (1, 43200); out of range falls back to 300s.
	PollIntervalMinutes int `mapstructure:"poll_interval_minutes"`

	// TLSEnabled enables TLS 1.2 for the update server connection.
	TLSEnabled bool `mapstructure:"tls_enabled"`

	// CATag names the pre-provisioned CA credential used when TLSEnabled is true.
	CATag string `mapstructure:"ca_tag"`

	// IPFamily selects v4 or v6 dialing.
	IPFamily IPFamily `mapstructure:"ip_family"`

	// ActionLogDir is the on-disk directory backing the persistent action log.
	ActionLogDir string `mapstructure:"action_log_dir"`

	// SpareSlotSize is the capacity in bytes of the spare firmware slot.
	SpareSlotSize int64 `mapstructure:"spare_slot_size"`

	// RequestTimeout bounds a single HTTP exchange (spec.md §5: 300s).
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// TelemetryConfig controls the optional OpenTelemetry wiring in internal/otel.
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ExporterType string `mapstructure:"exporter_type"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// Default returns the built-in defaults, used when no config file or env
// override is present.
func Default() *Config {
	return &Config{
		Server:              "localhost",
		Port:                8080,
		JSONURLRoot:         "/default/controller/v1",
		Board:               "board",
		PollIntervalMinutes: 5,
		TLSEnabled:          false,
		IPFamily:            IPFamilyV4,
		ActionLogDir:        "./data/actionlog",
		SpareSlotSize:       1 << 20,
		RequestTimeout:      300 * time.Second,
		Telemetry: TelemetryConfig{
			Enabled:      false,
			ExporterType: "none",
		},
	}
}

// Load reads configuration from file, environment (HAWKBIT_* prefix), and
// defaults, in that precedence order (env overrides file overrides defaults).
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	cfg := Default()
	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("HAWKBIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Bind every key explicitly so Unmarshal sees env values even when no
	// config file supplies the key.
	for _, key := range []string{
		"server", "port", "json_url_root", "board", "poll_interval_minutes",
		"tls_enabled", "ca_tag", "ip_family", "action_log_dir",
		"spare_slot_size", "request_timeout",
		"telemetry.enabled", "telemetry.exporter_type", "telemetry.otlp_endpoint",
	} {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("hawkbit-client")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read config file: %w", err)
	}
	return true, nil
}

// PollInterval returns the effective polling interval, clamping
// PollIntervalMinutes into (1, 43200) minutes per spec.md §3 and falling
// back to 300 seconds when out of range.
func (c *Config) PollInterval() time.Duration {
	if c.PollIntervalMinutes <= minPollIntervalMinutes || c.PollIntervalMinutes >= maxPollIntervalMinutes {
		return defaultPollInterval
	}
	return time.Duration(c.PollIntervalMinutes) * time.Minute
}
