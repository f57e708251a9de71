package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Logging.Level != "debug" {
			t.Errorf("expected debug log level, got %q", cfg.Logging.Level)
		}
	})

	t.Run("production environment keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("expected info log level, got %q", cfg.Logging.Level)
		}
	})

	t.Run("name propagates to logging", func(t *testing.T) {
		cfg := ServiceConfig{Name: "ssectl"}
		cfg.ApplyDefaults()
		if cfg.Logging.ServiceName != "ssectl" {
			t.Errorf("expected logging service name 'ssectl', got %q", cfg.Logging.ServiceName)
		}
		if cfg.Version != "dev" {
			t.Errorf("expected version 'dev', got %q", cfg.Version)
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr bool
		errMsg  string
	}{
		{"valid development", ServiceConfig{Name: "svc", Environment: "development"}, false, ""},
		{"valid staging", ServiceConfig{Name: "svc", Environment: "staging"}, false, ""},
		{"valid production", ServiceConfig{Name: "svc", Environment: "production"}, false, ""},
		{"missing name", ServiceConfig{Environment: "production"}, true, "config.name is required"},
		{"invalid environment", ServiceConfig{Name: "svc", Environment: "invalid"}, true, "config.environment must be one of"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !strings.Contains(err.Error(), tc.errMsg) {
					t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

type testStreamConfig struct {
	KeepaliveInterval time.Duration `mapstructure:"keepalive_interval"`
	QueueSize         int           `mapstructure:"queue_size"`
}

type testConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	SSE           testStreamConfig `yaml:"sse" mapstructure:"sse"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigWithYAML(t *testing.T) {
	path := writeConfig(t, `
name: test-service
environment: staging
version: "1.0.0"
sse:
  keepalive_interval: 15s
  queue_size: 32
`)

	var cfg testConfig
	if err := LoadConfig("test-service", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Name != "test-service" {
		t.Errorf("expected name 'test-service', got %q", cfg.Name)
	}
	if cfg.Environment != "staging" {
		t.Errorf("expected environment 'staging', got %q", cfg.Environment)
	}
	if cfg.SSE.KeepaliveInterval != 15*time.Second {
		t.Errorf("expected keepalive 15s, got %v", cfg.SSE.KeepaliveInterval)
	}
	if cfg.SSE.QueueSize != 32 {
		t.Errorf("expected queue size 32, got %d", cfg.SSE.QueueSize)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeConfig(t, `
name: test-service
sse:
  queue_size: 32
`)
	t.Setenv("SSEKIT_SSE_QUEUE_SIZE", "128")
	t.Setenv("SSEKIT_SSE_KEEPALIVE_INTERVAL", "5s")

	var cfg testConfig
	if err := LoadConfig("test-service", &cfg, WithConfigFile(path), WithEnvPrefix("SSEKIT_")); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.SSE.QueueSize != 128 {
		t.Errorf("expected env override 128, got %d", cfg.SSE.QueueSize)
	}
	if cfg.SSE.KeepaliveInterval != 5*time.Second {
		t.Errorf("expected env override 5s, got %v", cfg.SSE.KeepaliveInterval)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("test-service", &cfg,
		WithFileSystem(&mockFS{}),
		WithDefaults(map[string]any{"name": "fallback", "sse.queue_size": 8}),
	)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "fallback" {
		t.Errorf("expected default name, got %q", cfg.Name)
	}
	if cfg.SSE.QueueSize != 8 {
		t.Errorf("expected default queue size 8, got %d", cfg.SSE.QueueSize)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg testConfig
	// A config path that does not exist is skipped rather than treated as an error.
	err := LoadConfig("nonexistent-service", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := writeConfig(t, "name: [unterminated")
	var cfg testConfig
	if err := LoadConfig("svc", &cfg, WithConfigFile(path)); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./cmd/my-svc/config.yml": true,
		"./.env":                  true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("my-svc", LoaderConfig{})
	if files.ConfigFile != "./cmd/my-svc/config.yml" {
		t.Errorf("expected config file at ./cmd/my-svc/config.yml, got %q", files.ConfigFile)
	}
	if files.EnvFile != "./.env" {
		t.Errorf("expected env file at ./.env, got %q", files.EnvFile)
	}

	explicit := resolver.ResolveFiles("my-svc", LoaderConfig{ConfigFile: "/etc/ssekit.yml"})
	if explicit.ConfigFile != "/etc/ssekit.yml" {
		t.Errorf("explicit config file should win, got %q", explicit.ConfigFile)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool  { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }

func TestEnvKeyVariants(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"PORT", []string{"port"}},
		{"SERVER_PORT", []string{"server_port", "server.port"}},
		{"SSE_QUEUE_SIZE", []string{
			"sse_queue_size", "sse.queue.size",
			"sse.queue_size", "sse_queue.size",
		}},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got := envKeyVariants(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("envKeyVariants(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	WithFileSystem(&mockFS{})(&lc)
	WithConfigFile("/path/to/config.yml")(&lc)
	WithEnvFile("/path/to/.env")(&lc)
	WithEnvPrefix("SSEKIT_")(&lc)

	if lc.FileSystem == nil {
		t.Error("expected FileSystem to be set")
	}
	if lc.ConfigFile != "/path/to/config.yml" {
		t.Errorf("expected config file path, got %q", lc.ConfigFile)
	}
	if lc.EnvFile != "/path/to/.env" {
		t.Errorf("expected env file path, got %q", lc.EnvFile)
	}
	if lc.EnvPrefix != "SSEKIT_" {
		t.Errorf("expected env prefix, got %q", lc.EnvPrefix)
	}
}
