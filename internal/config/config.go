package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Ning0612/xrdgate/internal/domain"
)

// Group is the option group read by the plugin
const Group = "xrootd"

// Option keys inside Group
const (
	KeyChecksumType     = "copy_checksum_type"
	KeyChecksumMode     = "copy_checksum_mode"
	KeyParallelCopies   = "parallel_copies"
	KeyListingTimeout   = "listing_timeout"
	KeyEngineProtocol   = "engine_protocol"
	KeyXrdcpBinary      = "xrdcp_binary"
	KeyProgressInterval = "progress_interval"
	KeyConnectTimeout   = "connect_timeout"
)

// Defaults
const (
	DefaultChecksumMode     = "end2end"
	DefaultParallelCopies   = 20
	DefaultListingTimeout   = 60 * time.Second
	DefaultEngineProtocol   = "v4"
	DefaultXrdcpBinary      = "xrdcp"
	DefaultProgressInterval = time.Second
	DefaultConnectTimeout   = 30 * time.Second
)

// Config represents the complete configuration for xrdgate
type Config struct {
	// Xrootd holds the plugin options
	Xrootd XrootdConfig `mapstructure:"xrootd"`

	// Log configures the logger
	Log LogConfig `mapstructure:"log"`

	options Options
}

// XrootdConfig holds the third-party copy and listing options
type XrootdConfig struct {
	// ChecksumType is used when verification is requested without a type
	ChecksumType string `mapstructure:"copy_checksum_type"`

	// ChecksumMode is end2end, source or target
	ChecksumMode string `mapstructure:"copy_checksum_mode"`

	// ParallelCopies is the number of concurrent jobs in a batch
	ParallelCopies int `mapstructure:"parallel_copies"`

	// ListingTimeout bounds the wait for an asynchronous directory listing
	ListingTimeout time.Duration `mapstructure:"listing_timeout"`

	// EngineProtocol selects the copy engine generation (v4, legacy)
	EngineProtocol string `mapstructure:"engine_protocol"`

	// XrdcpBinary is the copy engine executable
	XrdcpBinary string `mapstructure:"xrdcp_binary"`

	// ProgressInterval is how often running jobs are sampled
	ProgressInterval time.Duration `mapstructure:"progress_interval"`

	// ConnectTimeout bounds opening a client connection
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// LogConfig configures logging output
type LogConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"`
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig configures the rotated log file
type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// Validate checks if the configuration is complete and consistent
func (c *Config) Validate() error {
	x := c.Xrootd
	if x.ParallelCopies < 1 {
		return fmt.Errorf("%w: %s must be at least 1, got %d",
			domain.ErrConfigInvalid, KeyParallelCopies, x.ParallelCopies)
	}
	if x.ListingTimeout <= 0 {
		return fmt.Errorf("%w: %s must be positive", domain.ErrConfigInvalid, KeyListingTimeout)
	}
	if x.ProgressInterval <= 0 {
		return fmt.Errorf("%w: %s must be positive", domain.ErrConfigInvalid, KeyProgressInterval)
	}
	if x.ConnectTimeout <= 0 {
		return fmt.Errorf("%w: %s must be positive", domain.ErrConfigInvalid, KeyConnectTimeout)
	}
	switch strings.ToLower(x.EngineProtocol) {
	case "v4", "legacy":
	default:
		return fmt.Errorf("%w: unknown %s: %s", domain.ErrConfigInvalid, KeyEngineProtocol, x.EngineProtocol)
	}
	if !IsValidChecksumMode(x.ChecksumMode) {
		return fmt.Errorf("%w: unknown %s: %s", domain.ErrConfigInvalid, KeyChecksumMode, x.ChecksumMode)
	}
	if x.XrdcpBinary == "" {
		return fmt.Errorf("%w: %s cannot be empty", domain.ErrConfigInvalid, KeyXrdcpBinary)
	}
	if c.Log.File.Enabled && c.Log.File.Path == "" {
		return fmt.Errorf("%w: log file enabled without a path", domain.ErrConfigInvalid)
	}
	return nil
}

// IsValidChecksumMode reports whether mode is a known checksum verification mode
func IsValidChecksumMode(mode string) bool {
	switch mode {
	case "end2end", "source", "target":
		return true
	}
	return false
}

// Options returns the group/key lookup backing this configuration
func (c *Config) Options() Options {
	if c.options == nil {
		return &structOptions{cfg: c}
	}
	return c.options
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	// Expand ~ to home directory
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
				path = filepath.Join(home, path[2:])
			} else if len(path) == 1 {
				path = home
			}
		}
	}
	// Expand environment variables
	path = os.ExpandEnv(path)
	return filepath.Clean(path)
}
