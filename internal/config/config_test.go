package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shifttutor/internal/device"
	"shifttutor/internal/logging"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected level info, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected format text, got %s", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("expected output stderr, got %s", cfg.Logging.Output)
	}
	if cfg.Device != (DeviceConfig{}) {
		t.Error("default config should not select a device")
	}
	if cfg.Systemd {
		t.Error("systemd notification should be off by default")
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default level, got %s", cfg.Logging.Level)
	}
}

func TestLoadNonexistent(t *testing.T) {
	_, err := Load("/nonexistent/path/shift-tutor.toml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "shift-tutor.toml", `
systemd = true

[device]
vendor = "0x046d"
product = "0xc52b"

[logging]
level = "debug"
format = "json"

[metrics]
listen = "127.0.0.1:9464"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.Systemd {
		t.Error("expected systemd true")
	}
	if cfg.Device.Vendor != "0x046d" || cfg.Device.Product != "0xc52b" {
		t.Errorf("unexpected ids %q/%q", cfg.Device.Vendor, cfg.Device.Product)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging %+v", cfg.Logging)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("partial logging section should keep default output, got %q", cfg.Logging.Output)
	}
	if cfg.Metrics.Listen != "127.0.0.1:9464" {
		t.Errorf("unexpected metrics listen %q", cfg.Metrics.Listen)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "shift-tutor.yaml", `
device:
  name: "AT Translated Set 2 keyboard"
logging:
  output: stdout
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Device.Name != "AT Translated Set 2 keyboard" {
		t.Errorf("unexpected name %q", cfg.Device.Name)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("unexpected output %q", cfg.Logging.Output)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "shift-tutor.json", `{"device": {"path": "/dev/input/event3"}}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Device.Path != "/dev/input/event3" {
		t.Errorf("unexpected path %q", cfg.Device.Path)
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	path := writeFile(t, "shift-tutor.toml", "this is not [valid toml")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadSchemaRejects(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown top-level key", "c.toml", "interval = 5\n"},
		{"unknown device key", "c.toml", "[device]\nserial = \"abc\"\n"},
		{"numeric vendor in yaml", "c.yaml", "device:\n  vendor: 0x46d\n  product: 0xc52b\n"},
		{"malformed vendor", "c.json", `{"device": {"vendor": "46dz", "product": "1"}}`},
		{"bad format", "c.toml", "[logging]\nformat = \"xml\"\n"},
		{"bad output", "c.toml", "[logging]\noutput = \"syslog\"\n"},
		{"systemd not a bool", "c.json", `{"systemd": "yes"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected schema error")
			}
			if !strings.Contains(err.Error(), "schema validation failed") {
				t.Errorf("expected schema error, got %v", err)
			}
		})
	}
}

func TestLoadRejectsUnknownLevel(t *testing.T) {
	path := writeFile(t, "c.toml", "[logging]\nlevel = \"verbose\"\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if verrs[0].Field != "logging.level" {
		t.Errorf("unexpected field %s", verrs[0].Field)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeFile(t, "c.toml", "[device]\nname = \"from file\"\n[logging]\nlevel = \"warn\"\n")

	t.Setenv("SHIFT_TUTOR_NAME", "from env")
	t.Setenv("SHIFT_TUTOR_LOG_LEVEL", "debug")
	t.Setenv("SHIFT_TUTOR_SYSTEMD", "true")
	t.Setenv("SHIFT_TUTOR_METRICS_LISTEN", ":9464")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Device.Name != "from env" {
		t.Errorf("env should override file, got %q", cfg.Device.Name)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug, got %s", cfg.Logging.Level)
	}
	if !cfg.Systemd {
		t.Error("expected systemd from env")
	}
	if cfg.Metrics.Listen != ":9464" {
		t.Errorf("unexpected listen %q", cfg.Metrics.Listen)
	}
}

func TestEnvOverrideInvalidBool(t *testing.T) {
	t.Setenv("SHIFT_TUTOR_SYSTEMD", "maybe")
	if _, err := Load(""); err == nil {
		t.Error("expected env parse error")
	}
}

func TestValidateSelection(t *testing.T) {
	tests := []struct {
		name    string
		device  DeviceConfig
		wantErr error
	}{
		{"path", DeviceConfig{Path: "/dev/input/event3"}, nil},
		{"ids", DeviceConfig{Vendor: "0x46d", Product: "0xc52b"}, nil},
		{"name", DeviceConfig{Name: "kbd"}, nil},
		{"nothing", DeviceConfig{}, ErrNoSelection},
		{"vendor only", DeviceConfig{Vendor: "0x46d"}, ErrPartialIDs},
		{"product only", DeviceConfig{Product: "0xc52b"}, ErrPartialIDs},
		{"path and name", DeviceConfig{Path: "/dev/input/event3", Name: "kbd"}, ErrAmbiguousSelection},
		{"ids and name", DeviceConfig{Vendor: "1", Product: "1", Name: "kbd"}, ErrAmbiguousSelection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Device = tt.device
			err := cfg.ValidateSelection()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSelector(t *testing.T) {
	tests := []struct {
		name   string
		device DeviceConfig
		want   device.Selector
	}{
		{"path", DeviceConfig{Path: "/dev/input/event3"}, device.ByPath{Path: "/dev/input/event3"}},
		{"hex ids", DeviceConfig{Vendor: "0x046d", Product: "0xC52B"}, device.ByIDs{Vendor: 0x46d, Product: 0xc52b}},
		{"decimal ids", DeviceConfig{Vendor: "1133", Product: "50475"}, device.ByIDs{Vendor: 0x46d, Product: 0xc52b}},
		{"name", DeviceConfig{Name: "Logitech USB Receiver"}, device.ByName{Name: "Logitech USB Receiver"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Device = tt.device
			got, err := cfg.Selector()
			if err != nil {
				t.Fatalf("Selector failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    uint16
		wantErr bool
	}{
		{"0x46d", 0x46d, false},
		{"0X046D", 0x46d, false},
		{"1133", 1133, false},
		{"017", 15, false},
		{"0", 0, false},
		{" 0x1 ", 1, false},
		{"0xffff", 0xffff, false},
		{"0x10000", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseID(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseID(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseID(%q) = %#x, want %#x", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidateInvalidIDs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Device.Vendor = "0xzz"
	cfg.Device.Product = "70000"

	err := cfg.Validate()
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	if len(verrs) != 2 {
		t.Errorf("expected 2 errors, got %d: %v", len(verrs), err)
	}
}

func TestLoggerConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging = LoggingConfig{Level: "warn", Format: "json", Output: "stdout"}

	lc := cfg.LoggerConfig()
	if lc.Level != logging.LevelWarn {
		t.Errorf("expected warn, got %v", lc.Level)
	}
	if lc.Format != logging.FormatJSON {
		t.Errorf("expected json format, got %v", lc.Format)
	}
	if lc.Output != "stdout" {
		t.Errorf("expected stdout, got %s", lc.Output)
	}
}
