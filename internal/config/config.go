// Package config assembles the server configuration from defaults, an
// optional YAML document and environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"skirmish/internal/battle"
	"skirmish/internal/telemetry"
	"skirmish/logging"
)

// Environment variables read by Load.
const (
	EnvFile            = "SKIRMISH_CONFIG"
	EnvAddr            = "ADDR"
	EnvSeatSecret      = "SEAT_SECRET"
	EnvDecisionTimeout = "DECISION_TIMEOUT"
	EnvTurnLimit       = "TURN_LIMIT"
	EnvLogSinks        = "LOG_SINKS"
	EnvLogJSONPath     = "LOG_JSON_PATH"
	EnvOTLPEndpoint    = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvCatalogPaths    = "CATALOG_PATHS"
	EnvPprof           = "ENABLE_PPROF"
)

// Config is the complete server configuration.
type Config struct {
	Addr string `yaml:"addr"`
	// SeatSecret signs seat tokens. Empty generates a random secret at start.
	SeatSecret string `yaml:"seatSecret"`
	// CatalogPaths are directories loaded on top of the built-in catalog.
	CatalogPaths []string `yaml:"catalogPaths"`
	MaxBattles   int      `yaml:"maxBattles"`
	ChoiceBuffer int      `yaml:"choiceBuffer"`
	// DisconnectGrace is how long a dropped player may reconnect before
	// forfeiting. Negative never forfeits.
	DisconnectGrace time.Duration `yaml:"disconnectGrace"`
	// Retention keeps finished battles queryable.
	Retention time.Duration `yaml:"retention"`
	TokenTTL  time.Duration `yaml:"tokenTTL"`
	// Pprof mounts the runtime profiler under /debug/pprof.
	Pprof  bool          `yaml:"pprof"`
	Format battle.Format `yaml:"format"`
	// Formats are extra named formats a battle may ask for.
	Formats []battle.Format `yaml:"formats"`
	Logging logging.Config  `yaml:"logging"`
	Tracing Tracing         `yaml:"tracing"`
}

// Tracing configures span export.
type Tracing struct {
	// Endpoint is the OTLP gRPC collector address. Empty disables export.
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"serviceName"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Addr:            ":8080",
		MaxBattles:      256,
		ChoiceBuffer:    8,
		DisconnectGrace: 30 * time.Second,
		Retention:       10 * time.Minute,
		TokenTTL:        24 * time.Hour,
		Format:          battle.DefaultFormat(),
		Formats:         []battle.Format{battle.DoublesFormat()},
		Logging:         logging.DefaultConfig(),
		Tracing:         Tracing{Insecure: true, ServiceName: "skirmish"},
	}
}

// Decode overlays a YAML document on cfg.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: decode: %w", err)
	}
	cfg.Logging.MinimumSeverity = logging.ParseSeverity(cfg.Logging.Level)
	return nil
}

// Load reads defaults, then the YAML file named by SKIRMISH_CONFIG, then the
// environment. Invalid environment values are reported through logger and
// ignored.
func Load(getenv func(string) string, logger telemetry.Logger) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	cfg := Default()
	if path := getenv(EnvFile); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		defer f.Close()
		if err := Decode(f, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg, getenv, logger)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string, logger telemetry.Logger) {
	if raw := getenv(EnvAddr); raw != "" {
		cfg.Addr = raw
	}
	if raw := getenv(EnvSeatSecret); raw != "" {
		cfg.SeatSecret = raw
	}
	if raw := getenv(EnvDecisionTimeout); raw != "" {
		if value, err := time.ParseDuration(raw); err == nil && value >= 0 {
			cfg.Format.DecisionTimeout = value
		} else {
			logger.Printf("invalid %s=%q: %v", EnvDecisionTimeout, raw, err)
		}
	}
	if raw := getenv(EnvTurnLimit); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.Format.TurnLimit = value
		} else {
			logger.Printf("invalid %s=%q: %v", EnvTurnLimit, raw, err)
		}
	}
	if raw := getenv(EnvLogSinks); raw != "" {
		cfg.Logging.EnabledSinks = splitList(raw)
	}
	if raw := getenv(EnvLogJSONPath); raw != "" {
		cfg.Logging.JSON.FilePath = raw
		if !cfg.Logging.HasSink("json") {
			cfg.Logging.EnabledSinks = append(cfg.Logging.EnabledSinks, "json")
		}
	}
	if raw := getenv(EnvOTLPEndpoint); raw != "" {
		cfg.Tracing.Endpoint = strings.TrimPrefix(strings.TrimPrefix(raw, "http://"), "https://")
	}
	if raw := getenv(EnvCatalogPaths); raw != "" {
		cfg.CatalogPaths = splitList(raw)
	}
	if raw := getenv(EnvPprof); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.Pprof = value
		} else {
			logger.Printf("invalid %s=%q: %v", EnvPprof, raw, err)
		}
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks every format and the host limits.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config: addr is empty")
	}
	if c.MaxBattles < 1 {
		return fmt.Errorf("config: maxBattles must be positive, got %d", c.MaxBattles)
	}
	if c.ChoiceBuffer < 1 {
		return fmt.Errorf("config: choiceBuffer must be positive, got %d", c.ChoiceBuffer)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("config: tokenTTL must be positive, got %s", c.TokenTTL)
	}
	seen := make(map[string]bool)
	for _, f := range append([]battle.Format{c.Format}, c.Formats...) {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("config: format %q: %w", f.Name, err)
		}
		if seen[f.Name] {
			return fmt.Errorf("config: format %q declared twice", f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// LookupFormat returns the named format; the empty name is the default.
func (c Config) LookupFormat(name string) (battle.Format, bool) {
	if name == "" || name == c.Format.Name {
		return c.Format, true
	}
	for _, f := range c.Formats {
		if f.Name == name {
			return f, true
		}
	}
	return battle.Format{}, false
}
