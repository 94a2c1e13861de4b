// Package config holds per-endpoint-class rate-limit budgets. Budgets come
// from DefaultConfig and may be overridden by a YAML file:
//
//	classes:
//	  ingest:
//	    ip:         {requests_per_window: 120, burst: 30, window: 60s}
//	    credential: {requests_per_window: 600, burst: 100}
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ingestgate/internal/ratelimit/models"
)

// DefaultWindow is the fixed window every limiter uses unless overridden.
const DefaultWindow = 60 * time.Second

// Limit is a steady rate plus a burst allowance for one fixed window.
type Limit struct {
	RequestsPerWindow int           `yaml:"requests_per_window"`
	Burst             int           `yaml:"burst"`
	Window            time.Duration `yaml:"window"`
}

// Budget is the number of requests admitted per window.
func (l Limit) Budget() int {
	return l.RequestsPerWindow + l.Burst
}

func (l Limit) validate() error {
	if l.RequestsPerWindow <= 0 {
		return fmt.Errorf("requests_per_window must be positive, got %d", l.RequestsPerWindow)
	}
	if l.Burst < 0 {
		return fmt.Errorf("burst must not be negative, got %d", l.Burst)
	}
	if l.Window < time.Second || l.Window%time.Second != 0 {
		return fmt.Errorf("window must be a whole number of seconds, got %s", l.Window)
	}
	return nil
}

// ClassLimits pairs the IP and credential limiter budgets for a class.
type ClassLimits struct {
	IP         Limit `yaml:"ip"`
	Credential Limit `yaml:"credential"`
}

type Config struct {
	Classes map[models.EndpointClass]ClassLimits `yaml:"classes"`
}

// DefaultConfig gives ingest the highest budget and admin a materially
// lower one.
func DefaultConfig() *Config {
	return &Config{
		Classes: map[models.EndpointClass]ClassLimits{
			models.ClassIngest: {
				IP:         Limit{RequestsPerWindow: 120, Burst: 30, Window: DefaultWindow},
				Credential: Limit{RequestsPerWindow: 600, Burst: 100, Window: DefaultWindow},
			},
			models.ClassRead: {
				IP:         Limit{RequestsPerWindow: 60, Burst: 10, Window: DefaultWindow},
				Credential: Limit{RequestsPerWindow: 300, Burst: 50, Window: DefaultWindow},
			},
			models.ClassAdmin: {
				IP:         Limit{RequestsPerWindow: 10, Burst: 0, Window: DefaultWindow},
				Credential: Limit{RequestsPerWindow: 10, Burst: 0, Window: DefaultWindow},
			},
		},
	}
}

// GetIPLimit returns the IP limiter budget for class.
func (c *Config) GetIPLimit(class models.EndpointClass) (Limit, bool) {
	if c == nil {
		return Limit{}, false
	}
	cl, ok := c.Classes[class]
	return cl.IP, ok
}

// GetCredentialLimit returns the credential limiter budget for class.
func (c *Config) GetCredentialLimit(class models.EndpointClass) (Limit, bool) {
	if c == nil {
		return Limit{}, false
	}
	cl, ok := c.Classes[class]
	return cl.Credential, ok
}

func (c *Config) Validate() error {
	for class, cl := range c.Classes {
		if !class.IsValid() {
			return fmt.Errorf("unknown endpoint class %q", class)
		}
		if err := cl.IP.validate(); err != nil {
			return fmt.Errorf("%s.ip: %w", class, err)
		}
		if err := cl.Credential.validate(); err != nil {
			return fmt.Errorf("%s.credential: %w", class, err)
		}
	}
	return nil
}

// Load reads a YAML budget file on top of DefaultConfig. Classes absent from
// the file keep their defaults; a limit with no window gets DefaultWindow.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rate limit config %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rate limit config: %w", err)
	}

	cfg := DefaultConfig()
	for class, cl := range file.Classes {
		base := cfg.Classes[class]
		cfg.Classes[class] = ClassLimits{
			IP:         mergeLimit(base.IP, cl.IP),
			Credential: mergeLimit(base.Credential, cl.Credential),
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rate limit config: %w", err)
	}
	return cfg, nil
}

// mergeLimit keeps base when the file omits a limiter entirely.
func mergeLimit(base, override Limit) Limit {
	if override == (Limit{}) {
		return base
	}
	if override.Window == 0 {
		override.Window = DefaultWindow
	}
	return override
}
