// YAML config loader with CUE validation integration
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"birdnest/internal/telemetry"
	"birdnest/internal/violation"
)

// Default upstream locations.
const (
	DefaultDronesURL  = "https://assignments.reaktor.com/birdnest/drones"
	DefaultPilotsURL  = "https://assignments.reaktor.com/birdnest/pilots"
	DefaultListenAddr = ":8000"
)

// Zone describes the no-drone zone in feed units.
type Zone struct {
	CenterX float64 `yaml:"center_x"`
	CenterY float64 `yaml:"center_y"`
	Radius  float64 `yaml:"radius"`
}

// MonitorConfig is the root configuration of the service.
type MonitorConfig struct {
	DronesURL    string        `yaml:"drones_url"`
	PilotsURL    string        `yaml:"pilots_url"`
	ListenAddr   string        `yaml:"listen_addr"`
	NDZ          Zone          `yaml:"ndz"`
	Retention    time.Duration `yaml:"retention"`
	PollInterval time.Duration `yaml:"poll_interval"`
	HTTPTimeout  time.Duration `yaml:"http_timeout"`
}

// Default returns the configuration used when no file is present.
func Default() *MonitorConfig {
	return &MonitorConfig{
		DronesURL:  DefaultDronesURL,
		PilotsURL:  DefaultPilotsURL,
		ListenAddr: DefaultListenAddr,
		NDZ: Zone{
			CenterX: telemetry.DefaultCenterX,
			CenterY: telemetry.DefaultCenterY,
			Radius:  telemetry.DefaultRadius,
		},
		Retention:    violation.DefaultRetention,
		PollInterval: 2 * time.Second,
		HTTPTimeout:  10 * time.Second,
	}
}

// Load reads a YAML config validated against a CUE schema, then applies
// environment overrides. A missing config file yields the defaults.
func Load(configPath, cueSchemaPath string) (*MonitorConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// run with defaults
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if cueSchemaPath != "" {
			if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
				return nil, err
			}
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *MonitorConfig) applyEnv() error {
	if v := os.Getenv("BIRDNEST_DRONES_URL"); v != "" {
		c.DronesURL = v
	}
	if v := os.Getenv("BIRDNEST_PILOTS_URL"); v != "" {
		c.PilotsURL = v
	}
	if v := os.Getenv("BIRDNEST_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid POLL_INTERVAL: %w", err)
		}
		c.PollInterval = d
	}
	return nil
}

// Validate checks values the schema cannot express.
func (c *MonitorConfig) Validate() error {
	var errs []error
	if c.DronesURL == "" {
		errs = append(errs, errors.New("drones_url is required"))
	}
	if c.PilotsURL == "" {
		errs = append(errs, errors.New("pilots_url is required"))
	}
	if c.NDZ.Radius <= 0 {
		errs = append(errs, fmt.Errorf("ndz.radius must be positive, got %v", c.NDZ.Radius))
	}
	if c.Retention <= 0 {
		errs = append(errs, fmt.Errorf("retention must be positive, got %s", c.Retention))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval))
	}
	if c.HTTPTimeout < 0 {
		errs = append(errs, fmt.Errorf("http_timeout must not be negative, got %s", c.HTTPTimeout))
	}
	return errors.Join(errs...)
}

// TelemetryZone converts the configured zone.
func (c *MonitorConfig) TelemetryZone() telemetry.Zone {
	return telemetry.Zone{CenterX: c.NDZ.CenterX, CenterY: c.NDZ.CenterY, Radius: c.NDZ.Radius}
}
