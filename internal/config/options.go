package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Ning0612/xrdgate/internal/domain"
)

// Options is the group/key option lookup the plugin reads at call time
type Options interface {
	// String returns a required string option.
	// Returns domain.ErrConfigKeyNotFound if the key has no value.
	String(group, key string) (string, error)

	// StringDefault returns a string option or def if unset
	StringDefault(group, key, def string) string

	// IntDefault returns an integer option or def if unset or malformed
	IntDefault(group, key string, def int) int

	// DurationDefault returns a duration option or def if unset or malformed
	DurationDefault(group, key string, def time.Duration) time.Duration
}

// viperOptions reads options straight from a loaded viper instance
type viperOptions struct {
	v *viper.Viper
}

func optionKey(group, key string) string {
	return strings.ToLower(group) + "." + strings.ToLower(key)
}

func (o *viperOptions) String(group, key string) (string, error) {
	k := optionKey(group, key)
	if !o.v.IsSet(k) || o.v.GetString(k) == "" {
		return "", fmt.Errorf("%w: %s", domain.ErrConfigKeyNotFound, k)
	}
	return o.v.GetString(k), nil
}

func (o *viperOptions) StringDefault(group, key, def string) string {
	k := optionKey(group, key)
	if !o.v.IsSet(k) || o.v.GetString(k) == "" {
		return def
	}
	return o.v.GetString(k)
}

func (o *viperOptions) IntDefault(group, key string, def int) int {
	k := optionKey(group, key)
	if !o.v.IsSet(k) {
		return def
	}
	n, err := strconv.Atoi(o.v.GetString(k))
	if err != nil {
		return def
	}
	return n
}

// DurationDefault accepts Go duration strings such as "90s"
func (o *viperOptions) DurationDefault(group, key string, def time.Duration) time.Duration {
	k := optionKey(group, key)
	if !o.v.IsSet(k) {
		return def
	}
	d := o.v.GetDuration(k)
	if d <= 0 {
		return def
	}
	return d
}

// structOptions serves a Config built in code rather than loaded
type structOptions struct {
	cfg *Config
}

func (o *structOptions) lookup(group, key string) (string, bool) {
	if !strings.EqualFold(group, Group) {
		return "", false
	}
	x := o.cfg.Xrootd
	var value string
	switch strings.ToLower(key) {
	case KeyChecksumType:
		value = x.ChecksumType
	case KeyChecksumMode:
		value = x.ChecksumMode
	case KeyParallelCopies:
		if x.ParallelCopies != 0 {
			value = strconv.Itoa(x.ParallelCopies)
		}
	case KeyListingTimeout:
		if x.ListingTimeout != 0 {
			value = x.ListingTimeout.String()
		}
	case KeyEngineProtocol:
		value = x.EngineProtocol
	case KeyXrdcpBinary:
		value = x.XrdcpBinary
	case KeyProgressInterval:
		if x.ProgressInterval != 0 {
			value = x.ProgressInterval.String()
		}
	case KeyConnectTimeout:
		if x.ConnectTimeout != 0 {
			value = x.ConnectTimeout.String()
		}
	}
	return value, value != ""
}

func (o *structOptions) String(group, key string) (string, error) {
	value, ok := o.lookup(group, key)
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrConfigKeyNotFound, optionKey(group, key))
	}
	return value, nil
}

func (o *structOptions) StringDefault(group, key, def string) string {
	if value, ok := o.lookup(group, key); ok {
		return value
	}
	return def
}

func (o *structOptions) IntDefault(group, key string, def int) int {
	value, ok := o.lookup(group, key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return n
}

func (o *structOptions) DurationDefault(group, key string, def time.Duration) time.Duration {
	value, ok := o.lookup(group, key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}
