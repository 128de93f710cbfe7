package checksum

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/adler32"
	"hash/crc32"
	"io"
	"strings"

	"github.com/Ning0612/xrdgate/internal/domain"
)

// Algorithm is a checksum type name as the server spells it
type Algorithm string

const (
	Adler32 Algorithm = "adler32"
	CRC32   Algorithm = "crc32"
	CRC32C  Algorithm = "crc32c"
	MD5     Algorithm = "md5"
	SHA256  Algorithm = "sha256"
)

// Options configures the local checksum calculator
type Options struct {
	// MaxSize: streams larger than this are rejected (0 = unlimited)
	MaxSize int64

	// BufferSize: size of buffer for streaming reads
	BufferSize int
}

// DefaultOptions returns the options used by the CLI upload path
func DefaultOptions() Options {
	return Options{
		MaxSize:    0,
		BufferSize: 1024 * 1024, // 1MB, the xrdcp default chunk
	}
}

// Calculator computes the checksum of data uploaded through the plugin so it
// can be compared with what the server reports afterwards.
type Calculator interface {
	Calculate(ctx context.Context, reader io.Reader, algo Algorithm) (string, error)
}

// DefaultCalculator implements Calculator with streaming support
type DefaultCalculator struct {
	opts Options
}

// NewCalculator creates a new calculator with the given options
func NewCalculator(opts Options) *DefaultCalculator {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultOptions().BufferSize
	}
	return &DefaultCalculator{opts: opts}
}

// NewDefaultCalculator creates a calculator with default options
func NewDefaultCalculator() *DefaultCalculator {
	return NewCalculator(DefaultOptions())
}

func newHash(algo Algorithm) (hash.Hash, error) {
	switch Algorithm(strings.ToLower(string(algo))) {
	case Adler32:
		return adler32.New(), nil
	case CRC32:
		return crc32.NewIEEE(), nil
	case CRC32C:
		return crc32.New(crc32.MakeTable(crc32.Castagnoli)), nil
	case MD5:
		return md5.New(), nil
	case SHA256:
		return sha256.New(), nil
	}
	return nil, fmt.Errorf("%w: unsupported algorithm %q", domain.ErrNotSupported, algo)
}

// Calculate streams reader through algo and returns the lower-case hex digest.
// 32-bit sums come out as 8 hex digits, matching the server's format.
func (c *DefaultCalculator) Calculate(ctx context.Context, reader io.Reader, algo Algorithm) (string, error) {
	h, err := newHash(algo)
	if err != nil {
		return "", err
	}

	var limited io.Reader = reader
	if c.opts.MaxSize > 0 {
		limited = io.LimitReader(reader, c.opts.MaxSize+1)
	}

	buffer := make([]byte, c.opts.BufferSize)
	var total int64

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		n, err := limited.Read(buffer)
		if n > 0 {
			total += int64(n)
			if c.opts.MaxSize > 0 && total > c.opts.MaxSize {
				return "", fmt.Errorf("stream exceeds maximum checksum size (%d bytes)", c.opts.MaxSize)
			}
			h.Write(buffer[:n])
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read error: %w", err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// IsSupported reports whether algo can be computed locally
func IsSupported(algo Algorithm) bool {
	_, err := newHash(algo)
	return err == nil
}
