package adapter

import (
	"context"
	"io"
	"os"

	"github.com/Ning0612/xrdgate/internal/domain"
)

// Access modes understood by FileSystem.Access
const (
	AccessExists  = 0 // F_OK
	AccessExecute = 1 // X_OK
	AccessWrite   = 2 // W_OK
	AccessRead    = 4 // R_OK
)

// FileSystem is the POSIX-like surface of a remote storage endpoint.
// Every path argument is a full URL. Implementations return *domain.Error
// values carrying a POSIX errno.
type FileSystem interface {
	// Stat returns metadata for a single path
	// Returns ENOENT if path doesn't exist
	Stat(ctx context.Context, url string) (domain.FileInfo, error)

	// StatEntry returns metadata for the entry name listed in dirURL. name is
	// taken literally and dirURL's opaque parameters are kept.
	StatEntry(ctx context.Context, dirURL, name string) (domain.FileInfo, error)

	// Open opens a file with os.O_* flags and perm for newly created files
	// Caller is responsible for closing the file
	Open(ctx context.Context, url string, flag int, perm os.FileMode) (File, error)

	// Mkdir creates a single directory
	// Returns EEXIST if it already exists
	Mkdir(ctx context.Context, url string, perm os.FileMode) error

	// Rmdir removes an empty directory
	// Returns ENOTEMPTY if it has entries, ENOTDIR if url is a file
	Rmdir(ctx context.Context, url string) error

	// Unlink removes a file
	Unlink(ctx context.Context, url string) error

	// Rename moves oldURL to newURL on the same endpoint
	Rename(ctx context.Context, oldURL, newURL string) error

	// Chmod sets owner, group and other permission triplets
	Chmod(ctx context.Context, url string, perm os.FileMode) error

	// Access checks mode (a combination of Access*) against the server's flags
	// Returns EACCES when a requested permission is missing
	Access(ctx context.Context, url string, mode int) error

	// List starts an asynchronous listing of a directory; done is called
	// exactly once unless List returns an error
	List(ctx context.Context, url string, done func(entries []domain.EntryStat, err error)) error

	// Checksum asks the server for the checksum of url and returns its raw
	// "type value" reply
	Checksum(ctx context.Context, url string) (string, error)

	// Close releases any resources held by the filesystem
	Close() error
}

// File is an open remote file with a current offset
type File interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
}
