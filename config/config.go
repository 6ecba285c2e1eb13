package config

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. CODERUN_SANDBOX_TIMEOUT_MS.
const EnvPrefix = "CODERUN"

// Config represents the application configuration
type Config struct {
	Server    ServerConfig        `mapstructure:"server" yaml:"server"`
	Sandbox   SandboxConfig       `mapstructure:"sandbox" yaml:"sandbox"`
	Logging   LoggingConfig       `mapstructure:"logging" yaml:"logging"`
	Languages map[string]Language `mapstructure:"languages" yaml:"languages"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Transport      string  `mapstructure:"transport" yaml:"transport"`
	HTTPPort       int     `mapstructure:"http_port" yaml:"http_port"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst"`
}

// SandboxConfig holds execution engine configuration
type SandboxConfig struct {
	TimeoutMs              int    `mapstructure:"timeout_ms" yaml:"timeout_ms"`
	ScratchDir             string `mapstructure:"scratch_dir" yaml:"scratch_dir"`
	MaxConcurrentProcesses int    `mapstructure:"max_concurrent_processes" yaml:"max_concurrent_processes"`
	Locale                 string `mapstructure:"locale" yaml:"locale"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode" yaml:"mode"`
	Level string `mapstructure:"level" yaml:"level"`
}

// Language holds the recipe for one externally run language. Commands are
// argument vectors; {source}, {binary}, {dir} and {entry} are substituted.
type Language struct {
	Extension       string            `mapstructure:"extension" yaml:"extension"`
	FilePrefix      string            `mapstructure:"file_prefix" yaml:"file_prefix"`
	EntryPattern    string            `mapstructure:"entry_pattern" yaml:"entry_pattern,omitempty"`
	CompileCmd      []string          `mapstructure:"compile_cmd" yaml:"compile_cmd,omitempty"`
	RunCmd          []string          `mapstructure:"run_cmd" yaml:"run_cmd"`
	BinaryExtension string            `mapstructure:"binary_extension" yaml:"binary_extension,omitempty"`
	Environment     map[string]string `mapstructure:"environment" yaml:"environment,omitempty"`
}

// Transports accepted by server.transport
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
	TransportREST  = "rest"
)

var supportedLocales = map[string]bool{"en": true, "ko": true}

// DefaultLanguages returns the built-in recipe table.
func DefaultLanguages() map[string]Language {
	return map[string]Language{
		"python": {
			Extension:  ".py",
			FilePrefix: "python_code",
			RunCmd:     []string{"python3", "{source}"},
		},
		"nodejs": {
			Extension:  ".js",
			FilePrefix: "node_code",
			RunCmd:     []string{"node", "{source}"},
		},
		"java": {
			Extension:       ".java",
			FilePrefix:      "java_code",
			EntryPattern:    `public\s+class\s+(\w+)`,
			CompileCmd:      []string{"javac", "{source}"},
			RunCmd:          []string{"java", "-cp", "{dir}", "{entry}"},
			BinaryExtension: ".class",
		},
		"cpp": {
			Extension:  ".cpp",
			FilePrefix: "cpp_code",
			CompileCmd: []string{"g++", "{source}", "-o", "{binary}"},
			RunCmd:     []string{"{binary}"},
		},
		"go": {
			Extension:  ".go",
			FilePrefix: "go_code",
			CompileCmd: []string{"go", "build", "-o", "{binary}", "{source}"},
			RunCmd:     []string{"{binary}"},
		},
	}
}

// New loads and validates the application configuration from the default
// search path.
func New() (*Config, error) {
	return Load("")
}

// Load reads configuration from path, or from config.yaml in . or ./config
// when path is empty. A .env file in the working directory is loaded first
// and CODERUN_* environment variables override file values.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
			// If config file not found, continue with defaults
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.transport", TransportStdio)
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.rate_limit_rps", 20.0)
	v.SetDefault("server.rate_limit_burst", 40)

	v.SetDefault("sandbox.timeout_ms", 5000)
	v.SetDefault("sandbox.scratch_dir", "")
	v.SetDefault("sandbox.max_concurrent_processes", 8)
	v.SetDefault("sandbox.locale", "en")

	v.SetDefault("logging.mode", "production")
	v.SetDefault("logging.level", "info")

	for name, lang := range DefaultLanguages() {
		prefix := "languages." + name + "."
		v.SetDefault(prefix+"extension", lang.Extension)
		v.SetDefault(prefix+"file_prefix", lang.FilePrefix)
		v.SetDefault(prefix+"run_cmd", lang.RunCmd)
		if lang.EntryPattern != "" {
			v.SetDefault(prefix+"entry_pattern", lang.EntryPattern)
		}
		if len(lang.CompileCmd) > 0 {
			v.SetDefault(prefix+"compile_cmd", lang.CompileCmd)
		}
		if lang.BinaryExtension != "" {
			v.SetDefault(prefix+"binary_extension", lang.BinaryExtension)
		}
	}
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	switch c.Server.Transport {
	case TransportStdio, TransportHTTP, TransportREST:
	default:
		return fmt.Errorf("invalid server.transport: %s, must be 'stdio', 'http' or 'rest'", c.Server.Transport)
	}

	if c.Server.Transport != TransportStdio && c.Server.HTTPPort <= 0 {
		return fmt.Errorf("server.http_port must be positive, got: %d", c.Server.HTTPPort)
	}

	if c.Server.Transport == TransportREST {
		if c.Server.RateLimitRPS <= 0 {
			return fmt.Errorf("server.rate_limit_rps must be positive, got: %v", c.Server.RateLimitRPS)
		}
		if c.Server.RateLimitBurst <= 0 {
			return fmt.Errorf("server.rate_limit_burst must be positive, got: %d", c.Server.RateLimitBurst)
		}
	}

	if c.Sandbox.TimeoutMs <= 0 {
		return fmt.Errorf("sandbox.timeout_ms must be positive, got: %d", c.Sandbox.TimeoutMs)
	}

	if c.Sandbox.MaxConcurrentProcesses <= 0 {
		return fmt.Errorf("sandbox.max_concurrent_processes must be positive, got: %d", c.Sandbox.MaxConcurrentProcesses)
	}

	if !supportedLocales[c.Sandbox.Locale] {
		return fmt.Errorf("unsupported sandbox.locale: %s", c.Sandbox.Locale)
	}

	if c.Logging.Mode != "production" && c.Logging.Mode != "development" {
		return fmt.Errorf("invalid logging.mode: %s, must be 'production' or 'development'", c.Logging.Mode)
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	for _, name := range c.LanguageNames() {
		lang := c.Languages[name]
		if len(lang.RunCmd) == 0 {
			return fmt.Errorf("languages.%s.run_cmd is required", name)
		}
		if lang.EntryPattern != "" {
			if _, err := regexp.Compile(lang.EntryPattern); err != nil {
				return fmt.Errorf("invalid languages.%s.entry_pattern: %w", name, err)
			}
		}
	}

	return nil
}

// LanguageNames returns the configured language tags, sorted.
func (c *Config) LanguageNames() []string {
	names := make([]string, 0, len(c.Languages))
	for name := range c.Languages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetTimeout returns the per-step execution timeout as a duration
func (c *Config) GetTimeout() time.Duration {
	return time.Duration(c.Sandbox.TimeoutMs) * time.Millisecond
}

// Dump renders the effective configuration as YAML.
func (c *Config) Dump() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("error marshaling config: %w", err)
	}
	return string(out), nil
}
