package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig writes a YAML config to a temp file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "site:\n  id: test-site\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}
	if cfg.MQTT.Broker.Port != 8883 {
		t.Errorf("MQTT.Broker.Port = %d, want 8883", cfg.MQTT.Broker.Port)
	}
	if !cfg.MQTT.Broker.TLS {
		t.Error("MQTT.Broker.TLS = false, want true by default")
	}
	if cfg.Simulation.CheckInterval != 600 {
		t.Errorf("Simulation.CheckInterval = %d, want 600", cfg.Simulation.CheckInterval)
	}
	if cfg.Simulation.DefaultInterval != 15 {
		t.Errorf("Simulation.DefaultInterval = %d, want 15", cfg.Simulation.DefaultInterval)
	}
	if got := cfg.Simulation.SensorTypes; len(got) != 2 || got[0] != "temperature" || got[1] != "humidity" {
		t.Errorf("Simulation.SensorTypes = %v, want [temperature humidity]", got)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
site:
  id: maison-01
mqtt:
  broker:
    host: broker.example.com
    port: 1883
    tls: false
simulation:
  check_interval: 60
  default_interval: 5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "broker.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want broker.example.com", cfg.MQTT.Broker.Host)
	}
	if cfg.MQTT.Broker.TLS {
		t.Error("MQTT.Broker.TLS = true, want false from file")
	}
	if got := cfg.Simulation.CheckIntervalDuration(); got != 60*time.Second {
		t.Errorf("CheckIntervalDuration() = %v, want 60s", got)
	}
	if got := cfg.Simulation.DefaultIntervalDuration(); got != 5*time.Second {
		t.Errorf("DefaultIntervalDuration() = %v, want 5s", got)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
site:
  id: maison-01
mqtt:
  broker:
    host: from-file
`)

	t.Setenv("DOMOVOX_MQTT_HOST", "from-env")
	t.Setenv("DOMOVOX_MQTT_USERNAME", "domovox")
	t.Setenv("DOMOVOX_SPEECH_API_KEY", "sk-test")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "from-env" {
		t.Errorf("MQTT.Broker.Host = %q, want from-env", cfg.MQTT.Broker.Host)
	}
	if cfg.MQTT.Auth.Username != "domovox" {
		t.Errorf("MQTT.Auth.Username = %q, want domovox", cfg.MQTT.Auth.Username)
	}
	if cfg.Speech.APIKey != "sk-test" {
		t.Errorf("Speech.APIKey = %q, want sk-test", cfg.Speech.APIKey)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name:    "missing site id",
			mutate:  func(c *Config) { c.Site.ID = "" },
			wantErr: "site.id",
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "invalid broker port",
			mutate:  func(c *Config) { c.MQTT.Broker.Port = 0 },
			wantErr: "mqtt.broker.port",
		},
		{
			name:    "invalid api port",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: "api.port",
		},
		{
			name:    "zero check interval",
			mutate:  func(c *Config) { c.Simulation.CheckInterval = 0 },
			wantErr: "simulation.check_interval",
		},
		{
			name:    "zero default interval",
			mutate:  func(c *Config) { c.Simulation.DefaultInterval = 0 },
			wantErr: "simulation.default_interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
