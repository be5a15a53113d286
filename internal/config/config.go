// Package config handles configuration loading and validation for shift-tutor.
//
// Values are layered: built-in defaults, an optional TOML/YAML/JSON file,
// SHIFT_TUTOR_* environment variables, then command-line flags (applied by
// the caller). The hand-zone rule set is not configurable.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"shifttutor/internal/device"
	"shifttutor/internal/logging"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SHIFT_TUTOR_"

// Config holds the complete runtime configuration.
type Config struct {
	// Device selects the physical keyboard.
	Device DeviceConfig `toml:"device" json:"device" yaml:"device"`

	// Systemd sends readiness notifications to the service manager.
	Systemd bool `toml:"systemd" json:"systemd" yaml:"systemd" env:"SYSTEMD"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Metrics configuration.
	Metrics MetricsConfig `toml:"metrics" json:"metrics" yaml:"metrics"`
}

// DeviceConfig holds the device selection. At most one of Path, the
// Vendor/Product pair, or Name may be set.
type DeviceConfig struct {
	// Path is an event device node, e.g. /dev/input/event3.
	Path string `toml:"path" json:"path" yaml:"path" env:"DEVICE"`

	// Vendor and Product are USB IDs in decimal, 0x-hex or 0-octal.
	Vendor  string `toml:"vendor" json:"vendor" yaml:"vendor" env:"VENDOR"`
	Product string `toml:"product" json:"product" yaml:"product" env:"PRODUCT"`

	// Name is the exact device name string.
	Name string `toml:"name" json:"name" yaml:"name" env:"NAME"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" json:"level" yaml:"level" env:"LOG_LEVEL"`

	// Format is text or json.
	Format string `toml:"format" json:"format" yaml:"format" env:"LOG_FORMAT"`

	// Output is stdout or stderr.
	Output string `toml:"output" json:"output" yaml:"output" env:"LOG_OUTPUT"`
}

// MetricsConfig holds the optional Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the address of the /metrics endpoint. Empty disables it.
	Listen string `toml:"listen" json:"listen" yaml:"listen" env:"METRICS_LISTEN"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads configuration from path, applies environment overrides and
// validates the result. An empty path skips the file. Device selection is
// not checked here; see ValidateSelection.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeFile checks the file against the embedded schema, then decodes it
// into cfg according to its extension. Unknown extensions are read as TOML.
func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	format := strings.ToLower(filepath.Ext(path))

	doc, err := decodeDocument(format, data)
	if err != nil {
		return err
	}
	if err := validateDocument(doc); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	switch format {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		_, err = toml.Decode(string(data), cfg)
	}
	if err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// decodeDocument parses data into a generic JSON-compatible value.
func decodeDocument(format string, data []byte) (any, error) {
	var raw map[string]any
	var err error
	switch format {
	case ".json":
		err = json.Unmarshal(data, &raw)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = toml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	// Round-trip through JSON so TOML and YAML scalars get JSON types.
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize config: %w", err)
	}
	var doc any
	if err := json.Unmarshal(buf, &doc); err != nil {
		return nil, fmt.Errorf("normalize config: %w", err)
	}
	return doc, nil
}

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "shift-tutor-config.schema.json"

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	return compiler.Compile(schemaURL)
})

func validateDocument(doc any) error {
	schema, err := compileSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// ApplyEnvOverrides applies SHIFT_TUTOR_* environment variables.
func (c *Config) ApplyEnvOverrides() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// Selector returns the device selector described by the configuration.
func (c *Config) Selector() (device.Selector, error) {
	if err := c.ValidateSelection(); err != nil {
		return nil, err
	}

	d := c.Device
	switch {
	case d.Path != "":
		return device.ByPath{Path: d.Path}, nil
	case d.Name != "":
		return device.ByName{Name: d.Name}, nil
	default:
		vendor, err := ParseID(d.Vendor)
		if err != nil {
			return nil, err
		}
		product, err := ParseID(d.Product)
		if err != nil {
			return nil, err
		}
		return device.ByIDs{Vendor: vendor, Product: product}, nil
	}
}

// LoggerConfig converts the logging section for logging.New. Call after
// Validate.
func (c *Config) LoggerConfig() *logging.Config {
	lc := logging.DefaultConfig()
	lc.Level, _ = logging.ParseLevel(c.Logging.Level)
	lc.Format, _ = logging.ParseFormat(c.Logging.Format)
	if c.Logging.Output != "" {
		lc.Output = c.Logging.Output
	}
	return lc
}

// ParseID parses a vendor or product ID. Like C's strtol with base 0 it
// accepts decimal, 0x-prefixed hex and 0-prefixed octal.
func ParseID(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid device ID %q: %w", s, err)
	}
	return uint16(v), nil
}
