package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ning0612/xrdgate/internal/domain"
)

func TestLoadFromString_Defaults(t *testing.T) {
	cfg, err := LoadFromString("log:\n  level: debug\n")
	require.NoError(t, err)

	assert.Equal(t, DefaultChecksumMode, cfg.Xrootd.ChecksumMode)
	assert.Equal(t, DefaultParallelCopies, cfg.Xrootd.ParallelCopies)
	assert.Equal(t, DefaultListingTimeout, cfg.Xrootd.ListingTimeout)
	assert.Equal(t, "v4", cfg.Xrootd.EngineProtocol)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFromString_Overrides(t *testing.T) {
	yaml := `
xrootd:
  copy_checksum_type: ADLER32
  copy_checksum_mode: SOURCE
  parallel_copies: 4
  listing_timeout: 5s
  engine_protocol: legacy
`
	cfg, err := LoadFromString(yaml)
	require.NoError(t, err)

	assert.Equal(t, "ADLER32", cfg.Xrootd.ChecksumType)
	assert.Equal(t, "source", cfg.Xrootd.ChecksumMode)
	assert.Equal(t, 4, cfg.Xrootd.ParallelCopies)
	assert.Equal(t, 5*time.Second, cfg.Xrootd.ListingTimeout)
	assert.Equal(t, "legacy", cfg.Xrootd.EngineProtocol)
}

func TestLoadFromString_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero parallel", "xrootd:\n  parallel_copies: 0\n"},
		{"unknown protocol", "xrootd:\n  engine_protocol: v9\n"},
		{"unknown checksum mode", "xrootd:\n  copy_checksum_mode: sometimes\n"},
		{"log file without path", "log:\n  file:\n    enabled: true\n"},
		{"malformed yaml", "xrootd: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromString(tt.yaml)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrConfigInvalid)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, domain.ErrConfigNotFound)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("xrootd:\n  parallel_copies: 7\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Xrootd.ParallelCopies)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("XRDGATE_XROOTD_COPY_CHECKSUM_TYPE", "MD5")
	t.Setenv("XRDGATE_XROOTD_PARALLEL_COPIES", "3")

	cfg, err := LoadFromString("log:\n  level: info\n")
	require.NoError(t, err)

	typ, err := cfg.Options().String(Group, KeyChecksumType)
	require.NoError(t, err)
	assert.Equal(t, "MD5", typ)
	assert.Equal(t, 3, cfg.Options().IntDefault(Group, KeyParallelCopies, 20))
}

func TestOptions_Viper(t *testing.T) {
	cfg, err := LoadFromString("xrootd:\n  copy_checksum_mode: target\n")
	require.NoError(t, err)
	opts := cfg.Options()

	_, err = opts.String(Group, KeyChecksumType)
	assert.ErrorIs(t, err, domain.ErrConfigKeyNotFound)

	assert.Equal(t, "target", opts.StringDefault(Group, KeyChecksumMode, "end2end"))
	assert.Equal(t, "fallback", opts.StringDefault(Group, "unknown_key", "fallback"))
	assert.Equal(t, 20, opts.IntDefault(Group, KeyParallelCopies, 1))
	assert.Equal(t, time.Minute, opts.DurationDefault(Group, KeyListingTimeout, time.Second))
}

func TestOptions_Struct(t *testing.T) {
	cfg := Default()
	cfg.Xrootd.ChecksumType = "ADLER32"
	cfg.Xrootd.ParallelCopies = 5
	opts := cfg.Options()

	typ, err := opts.String(Group, KeyChecksumType)
	require.NoError(t, err)
	assert.Equal(t, "ADLER32", typ)
	assert.Equal(t, 5, opts.IntDefault(Group, KeyParallelCopies, 20))
	assert.Equal(t, DefaultListingTimeout, opts.DurationDefault(Group, KeyListingTimeout, time.Second))

	_, err = opts.String("other", KeyChecksumType)
	assert.ErrorIs(t, err, domain.ErrConfigKeyNotFound)

	assert.NoError(t, cfg.Validate())
}
