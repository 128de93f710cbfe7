package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Ning0612/xrdgate/internal/domain"
)

// EnvPrefix prefixes environment overrides, e.g. XRDGATE_XROOTD_PARALLEL_COPIES
const EnvPrefix = "XRDGATE"

// DefaultConfigPaths returns the default paths to search for config files
func DefaultConfigPaths() []string {
	paths := []string{
		".",
		"./configs",
	}

	// Add user config directory
	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "xrdgate"))
	}

	// Add home directory
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", "xrdgate"))
		paths = append(paths, filepath.Join(homeDir, ".xrdgate"))
	}

	return paths
}

// newViper returns a viper instance with defaults and env overrides applied
func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault(optionKey(Group, KeyChecksumMode), DefaultChecksumMode)
	v.SetDefault(optionKey(Group, KeyParallelCopies), DefaultParallelCopies)
	v.SetDefault(optionKey(Group, KeyListingTimeout), DefaultListingTimeout)
	v.SetDefault(optionKey(Group, KeyEngineProtocol), DefaultEngineProtocol)
	v.SetDefault(optionKey(Group, KeyXrdcpBinary), DefaultXrdcpBinary)
	v.SetDefault(optionKey(Group, KeyProgressInterval), DefaultProgressInterval)
	v.SetDefault(optionKey(Group, KeyConnectTimeout), DefaultConnectTimeout)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only covers keys viper already knows about
	_ = v.BindEnv(optionKey(Group, KeyChecksumType))

	return v
}

// Load reads and parses a configuration file
// If path is empty, searches default locations for config.yaml.
// A missing file is not an error when searching: defaults and env apply.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		// Use specific file
		v.SetConfigFile(path)
	} else {
		// Search default paths
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, p := range DefaultConfigPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound) && path == "":
			// nothing in the search path, defaults and env apply
		case errors.As(err, &notFound), os.IsNotExist(err):
			return nil, domain.ErrConfigNotFound
		default:
			return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
		}
	}

	return decode(v)
}

// LoadFromString parses configuration from a YAML string
func LoadFromString(yamlContent string) (*Config, error) {
	v := newViper()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(strings.NewReader(yamlContent)); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	return decode(v)
}

// Default returns a configuration holding the built-in defaults only
func Default() *Config {
	return &Config{
		Xrootd: XrootdConfig{
			ChecksumMode:     DefaultChecksumMode,
			ParallelCopies:   DefaultParallelCopies,
			ListingTimeout:   DefaultListingTimeout,
			EngineProtocol:   DefaultEngineProtocol,
			XrdcpBinary:      DefaultXrdcpBinary,
			ProgressInterval: DefaultProgressInterval,
			ConnectTimeout:   DefaultConnectTimeout,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}
	cfg.Xrootd.ChecksumMode = strings.ToLower(cfg.Xrootd.ChecksumMode)
	cfg.Xrootd.EngineProtocol = strings.ToLower(cfg.Xrootd.EngineProtocol)
	if cfg.Log.File.Path != "" {
		cfg.Log.File.Path = ExpandPath(cfg.Log.File.Path)
	}
	cfg.options = &viperOptions{v: v}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
