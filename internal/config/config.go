package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ensigniasec/hf-pick/internal/invoker"
	"github.com/ensigniasec/hf-pick/internal/registry"
	"github.com/ensigniasec/hf-pick/internal/selector"
	"github.com/ensigniasec/hf-pick/internal/validate"
)

const envPrefix = "HF_PICK"

// DefaultEnvFile is loaded from the working directory when present.
const DefaultEnvFile = ".env"

type Config struct {
	Registry RegistryConfig `mapstructure:"registry"`
	Selector SelectorConfig `mapstructure:"selector"`
	Retry    invoker.Policy `mapstructure:"retry"`
	Tools    ToolsConfig    `mapstructure:"tools"`
}

type RegistryConfig struct {
	Endpoint string `mapstructure:"endpoint" validate:"required,url"`
	Token    string `mapstructure:"token"`
	// SearchLimit of 0 returns every match.
	SearchLimit int `mapstructure:"search_limit" validate:"gte=0"`
	ListLimit   int `mapstructure:"list_limit" validate:"gt=0"`
}

type SelectorConfig struct {
	PageSize int `mapstructure:"page_size" validate:"gt=0"`
}

type ToolsConfig struct {
	DownloadBin   string `mapstructure:"download_bin" validate:"required"`
	PythonBin     string `mapstructure:"python_bin" validate:"required"`
	ConvertScript string `mapstructure:"convert_script" validate:"required"`
	OutputName    string `mapstructure:"output_name" validate:"required"`
}

// flagKeys maps command-line flag names to config keys.
//
//nolint:gochecknoglobals // immutable lookup table.
var flagKeys = map[string]string{
	"endpoint":  "registry.endpoint",
	"token":     "registry.token",
	"page-size": "selector.page_size",
	"retries":   "retry.max_retries",
	"timeout":   "retry.timeout_seconds",
	"backoff":   "retry.backoff_seconds",
}

// SetDefaults registers every key so environment overrides reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	p := invoker.DefaultPolicy()

	v.SetDefault("registry.endpoint", registry.DefaultBaseURL)
	v.SetDefault("registry.token", "")
	v.SetDefault("registry.search_limit", 0)
	v.SetDefault("registry.list_limit", registry.DefaultListLimit)
	v.SetDefault("selector.page_size", selector.DefaultPageSize)
	v.SetDefault("retry.max_retries", p.MaxRetries)
	v.SetDefault("retry.timeout_seconds", p.TimeoutSeconds)
	v.SetDefault("retry.backoff_seconds", p.BackoffSeconds)
	v.SetDefault("tools.download_bin", "huggingface-cli")
	v.SetDefault("tools.python_bin", "python3")
	v.SetDefault("tools.convert_script", "llama.cpp/convert_hf_to_gguf.py")
	v.SetDefault("tools.output_name", "model_converted.gguf")
}

// BindFlags binds the known flags present in fs to their config keys.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// LoadEnvFile loads path into the process environment without overriding
// variables already set. An empty path means DefaultEnvFile, which may be absent.
func LoadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to stat env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	logrus.Debugf("Loaded environment from %s", path)
	return nil
}

// Load resolves configuration with precedence flags > HF_PICK_* env > file > defaults.
// HF_TOKEN is honoured as a fallback for the registry token.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(
		`-`, `_`,
		`.`, `_`,
	))
	v.AutomaticEnv()
	if err := v.BindEnv("registry.token", envPrefix+"_REGISTRY_TOKEN", "HF_TOKEN"); err != nil {
		return nil, err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
		logrus.Debugf("Using config file %s", v.ConfigFileUsed())
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ErrInvalidConfig wraps validation failures of a loaded Config.
var ErrInvalidConfig = errors.New("invalid config")

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
