package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Transport:      TransportREST,
			HTTPPort:       8080,
			RateLimitRPS:   10,
			RateLimitBurst: 20,
		},
		Sandbox: SandboxConfig{
			TimeoutMs:              5000,
			MaxConcurrentProcesses: 4,
			Locale:                 "en",
		},
		Logging: LoggingConfig{
			Mode:  "production",
			Level: "info",
		},
		Languages: DefaultLanguages(),
	}
}

func TestConfigValidation(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		require.NoError(t, validConfig().validate())
	})

	tests := []struct {
		name     string
		mutate   func(*Config)
		expected string
	}{
		{"InvalidServerTransport", func(c *Config) { c.Server.Transport = "invalid" }, "invalid server.transport"},
		{"InvalidHTTPPort", func(c *Config) { c.Server.HTTPPort = 0 }, "server.http_port must be positive"},
		{"InvalidRateLimit", func(c *Config) { c.Server.RateLimitRPS = 0 }, "server.rate_limit_rps must be positive"},
		{"InvalidRateLimitBurst", func(c *Config) { c.Server.RateLimitBurst = -1 }, "server.rate_limit_burst must be positive"},
		{"InvalidSandboxTimeout", func(c *Config) { c.Sandbox.TimeoutMs = 0 }, "sandbox.timeout_ms must be positive, got: 0"},
		{"InvalidConcurrency", func(c *Config) { c.Sandbox.MaxConcurrentProcesses = 0 }, "sandbox.max_concurrent_processes must be positive"},
		{"InvalidLocale", func(c *Config) { c.Sandbox.Locale = "fr" }, "unsupported sandbox.locale"},
		{"InvalidLoggingMode", func(c *Config) { c.Logging.Mode = "verbose" }, "invalid logging.mode"},
		{"InvalidLoggingLevel", func(c *Config) { c.Logging.Level = "loud" }, "invalid logging.level"},
		{"MissingRunCmd", func(c *Config) { c.Languages["ruby"] = Language{Extension: ".rb"} }, "languages.ruby.run_cmd is required"},
		{"InvalidEntryPattern", func(c *Config) {
			java := c.Languages["java"]
			java.EntryPattern = `(unclosed`
			c.Languages["java"] = java
		}, "invalid languages.java.entry_pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expected)
		})
	}

	t.Run("StdioIgnoresPortAndRateLimits", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.Transport = TransportStdio
		cfg.Server.HTTPPort = 0
		cfg.Server.RateLimitRPS = 0
		require.NoError(t, cfg.validate())
	})
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, TransportStdio, cfg.Server.Transport)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 5000, cfg.Sandbox.TimeoutMs)
	assert.Equal(t, 5*time.Second, cfg.GetTimeout())
	assert.Equal(t, 8, cfg.Sandbox.MaxConcurrentProcesses)
	assert.Equal(t, "en", cfg.Sandbox.Locale)
	assert.Equal(t, []string{"cpp", "go", "java", "nodejs", "python"}, cfg.LanguageNames())
	assert.Equal(t, []string{"python3", "{source}"}, cfg.Languages["python"].RunCmd)
	assert.Equal(t, []string{"javac", "{source}"}, cfg.Languages["java"].CompileCmd)
}

func TestLoadFile(t *testing.T) {
	doc := map[string]any{
		"server": map[string]any{
			"transport": "rest",
			"http_port": 9090,
		},
		"sandbox": map[string]any{
			"timeout_ms": 1500,
			"locale":     "ko",
		},
		"languages": map[string]any{
			"python": map[string]any{
				"run_cmd": []string{"python3", "-u", "{source}"},
			},
			"ruby": map[string]any{
				"extension": ".rb",
				"run_cmd":   []string{"ruby", "{source}"},
			},
		},
	}
	data, err := yaml.Marshal(doc)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "coderun.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, TransportREST, cfg.Server.Transport)
	assert.Equal(t, 9090, cfg.Server.HTTPPort)
	assert.Equal(t, 1500*time.Millisecond, cfg.GetTimeout())
	assert.Equal(t, "ko", cfg.Sandbox.Locale)

	python := cfg.Languages["python"]
	assert.Equal(t, []string{"python3", "-u", "{source}"}, python.RunCmd)
	assert.Equal(t, ".py", python.Extension, "unset keys keep their defaults")

	assert.Contains(t, cfg.LanguageNames(), "ruby")
	assert.Equal(t, ".rb", cfg.Languages["ruby"].Extension)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("CODERUN_SANDBOX_TIMEOUT_MS", "750")
	t.Setenv("CODERUN_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 750, cfg.Sandbox.TimeoutMs)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadErrors(t *testing.T) {
	t.Run("MissingExplicitFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading config file")
	})

	t.Run("InvalidValues", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("sandbox:\n  timeout_ms: -5\n"), 0o600))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config validation error")
	})
}

func TestDump(t *testing.T) {
	out, err := validConfig().Dump()
	require.NoError(t, err)

	var back Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &back))
	assert.Equal(t, TransportREST, back.Server.Transport)
	assert.Equal(t, []string{"g++", "{source}", "-o", "{binary}"}, back.Languages["cpp"].CompileCmd)
}
