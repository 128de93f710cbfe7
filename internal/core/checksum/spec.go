// Package checksum parses checksum specifications and server checksum
// replies, and computes checksums of local streams.
package checksum

import (
	"fmt"
	"strings"

	"github.com/Ning0612/xrdgate/internal/domain"
)

// Length limits of a checksum specification. Longer input is rejected.
const (
	MaxTypeLen  = 64
	MaxValueLen = 512
)

// predefined types are case-folded; any other type name is passed as given
var predefined = []Algorithm{Adler32, CRC32, CRC32C, MD5, SHA256, "sha1", "zcrc32"}

// Spec is a checksum type with an optional expected value
type Spec struct {
	Type  string
	Value string
}

// String renders "type:value"
func (s Spec) String() string {
	return s.Type + ":" + s.Value
}

// IsZero reports whether neither type nor value is set
func (s Spec) IsZero() bool {
	return s.Type == "" && s.Value == ""
}

// Parse splits "TYPE:value" on the first colon. Either side may be empty.
// A spec without a colon is a bare type.
func Parse(raw string) (Spec, error) {
	typ, value, _ := strings.Cut(strings.TrimSpace(raw), ":")
	if err := checkLen(typ, value); err != nil {
		return Spec{}, err
	}
	return Spec{Type: typ, Value: value}, nil
}

// New builds a Spec from a separate type and value, enforcing the same limits as Parse
func New(typ, value string) (Spec, error) {
	if err := checkLen(typ, value); err != nil {
		return Spec{}, err
	}
	return Spec{Type: typ, Value: value}, nil
}

func checkLen(typ, value string) error {
	if len(typ) >= MaxTypeLen {
		return fmt.Errorf("%w: type longer than %d bytes", domain.ErrInvalidChecksum, MaxTypeLen-1)
	}
	if len(value) >= MaxValueLen {
		return fmt.Errorf("%w: value longer than %d bytes", domain.ErrInvalidChecksum, MaxValueLen-1)
	}
	return nil
}

// NormalizeType lower-cases well known checksum type names.
// Unknown names are returned unchanged.
func NormalizeType(typ string) string {
	for _, p := range predefined {
		if strings.EqualFold(typ, string(p)) {
			return string(p)
		}
	}
	return typ
}

// ParseReply extracts the checksum value from a server reply of the form
// "type value". The reply type must start with the expected type.
func ParseReply(reply, expected string) (string, error) {
	reply = strings.TrimRight(reply, "\x00\n ")
	got, value, ok := strings.Cut(reply, " ")
	if !ok {
		return "", fmt.Errorf("%w: could not get the checksum (wrong format)", domain.ErrInvalidChecksum)
	}
	expected = NormalizeType(expected)
	if !strings.HasPrefix(got, expected) {
		return "", fmt.Errorf("%w: got '%s' while expecting '%s'", domain.ErrChecksumMismatch, got, expected)
	}
	return strings.TrimSpace(value), nil
}
