// Package local serves root:// URLs from a local directory. The host part of
// the URL is ignored; paths are resolved inside the root directory.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Ning0612/xrdgate/internal/adapter"
	"github.com/Ning0612/xrdgate/internal/core/checksum"
	"github.com/Ning0612/xrdgate/internal/domain"
	"github.com/Ning0612/xrdgate/internal/xrdurl"
)

// Adapter implements adapter.FileSystem on the local filesystem
type Adapter struct {
	root     string
	checksum checksum.Algorithm
	calc     checksum.Calculator
}

var _ adapter.FileSystem = (*Adapter)(nil)

// New creates a new local filesystem adapter
// root must be an absolute path to an existing directory
func New(root string) (*Adapter, error) {
	// Convert to absolute path
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	// Verify root exists and is a directory
	info, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, domain.ErrNotDirectory
	}

	return &Adapter{
		root:     absRoot,
		checksum: checksum.Adler32,
		calc:     checksum.NewDefaultCalculator(),
	}, nil
}

// resolvePath safely resolves the path of a URL inside root
// Returns error if path attempts to escape root directory
func (a *Adapter) resolvePath(op, rawURL string) (string, error) {
	u, err := xrdurl.Parse(rawURL)
	if err != nil {
		return "", domain.Wrap(err, syscall.EINVAL, op, "%v", err)
	}
	return a.jail(op, u.Path)
}

// jail maps an absolute URL path onto the root directory
func (a *Adapter) jail(op, urlPath string) (string, error) {
	relPath := strings.TrimLeft(urlPath, "/")
	// Handle empty path as root
	if relPath == "" || relPath == "." {
		return a.root, nil
	}

	// Normalize path separators
	relPath = filepath.Clean(filepath.FromSlash(relPath))

	// Join with root
	fullPath := filepath.Join(a.root, relPath)

	// Use filepath.Rel to safely verify the path is within root
	rel, err := filepath.Rel(a.root, fullPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", domain.Wrap(domain.ErrPermissionDenied, syscall.EACCES, op, "path escapes root: %s", urlPath)
	}

	return fullPath, nil
}

// Stat returns metadata for a single path
func (a *Adapter) Stat(ctx context.Context, url string) (domain.FileInfo, error) {
	fullPath, err := a.resolvePath("Stat", url)
	if err != nil {
		return domain.FileInfo{}, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return domain.FileInfo{}, a.mapError("Stat", err)
	}

	return fileInfoFromOS(info), nil
}

// StatEntry returns metadata for the entry name of the directory dirURL
func (a *Adapter) StatEntry(ctx context.Context, dirURL, name string) (domain.FileInfo, error) {
	u, err := xrdurl.Parse(dirURL)
	if err != nil {
		return domain.FileInfo{}, domain.Wrap(err, syscall.EINVAL, "Stat", "%v", err)
	}
	fullPath, err := a.jail("Stat", u.Join(name).Path)
	if err != nil {
		return domain.FileInfo{}, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return domain.FileInfo{}, a.mapError("Stat", err)
	}
	return fileInfoFromOS(info), nil
}

// Open opens a file with os.O_* flags, creating parents for new files
func (a *Adapter) Open(ctx context.Context, url string, flag int, perm os.FileMode) (adapter.File, error) {
	fullPath, err := a.resolvePath("Open", url)
	if err != nil {
		return nil, err
	}
	if flag&os.O_CREATE != 0 {
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return nil, a.mapError("Open", err)
		}
	}
	f, err := os.OpenFile(fullPath, flag, perm)
	if err != nil {
		return nil, a.mapError("Open", err)
	}
	return f, nil
}

// Mkdir creates a single directory
func (a *Adapter) Mkdir(ctx context.Context, url string, perm os.FileMode) error {
	fullPath, err := a.resolvePath("Mkdir", url)
	if err != nil {
		return err
	}
	return a.mapError("Mkdir", os.Mkdir(fullPath, perm))
}

// Rmdir removes an empty directory
func (a *Adapter) Rmdir(ctx context.Context, url string) error {
	fullPath, err := a.resolvePath("Rmdir", url)
	if err != nil {
		return err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		return a.mapError("Rmdir", err)
	}
	if !info.IsDir() {
		return domain.Wrap(domain.ErrNotDirectory, syscall.ENOTDIR, "Rmdir", "not a directory")
	}
	return a.mapError("Rmdir", os.Remove(fullPath))
}

// Unlink removes a file
func (a *Adapter) Unlink(ctx context.Context, url string) error {
	fullPath, err := a.resolvePath("Unlink", url)
	if err != nil {
		return err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		return a.mapError("Unlink", err)
	}
	if info.IsDir() {
		return domain.Wrap(domain.ErrNotFile, syscall.EISDIR, "Unlink", "is a directory")
	}
	return a.mapError("Unlink", os.Remove(fullPath))
}

// Rename moves a path inside root
func (a *Adapter) Rename(ctx context.Context, oldURL, newURL string) error {
	from, err := a.resolvePath("Rename", oldURL)
	if err != nil {
		return err
	}
	to, err := a.resolvePath("Rename", newURL)
	if err != nil {
		return err
	}
	return a.mapError("Rename", os.Rename(from, to))
}

// Chmod sets permission bits
func (a *Adapter) Chmod(ctx context.Context, url string, perm os.FileMode) error {
	fullPath, err := a.resolvePath("Chmod", url)
	if err != nil {
		return err
	}
	return a.mapError("Chmod", os.Chmod(fullPath, perm.Perm()))
}

// Access checks the owner permission bits of a path
func (a *Adapter) Access(ctx context.Context, url string, mode int) error {
	fullPath, err := a.resolvePath("Access", url)
	if err != nil {
		return err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		return a.mapError("Access", err)
	}
	perm := info.Mode().Perm()
	if (mode&adapter.AccessRead != 0 && perm&0400 == 0) ||
		(mode&adapter.AccessWrite != 0 && perm&0200 == 0) ||
		(mode&adapter.AccessExecute != 0 && perm&0100 == 0) {
		return domain.Wrap(domain.ErrPermissionDenied, syscall.EACCES, "Access", "access denied")
	}
	return nil
}

// List reads the directory in the background and reports through done
func (a *Adapter) List(ctx context.Context, url string, done func([]domain.EntryStat, error)) error {
	fullPath, err := a.resolvePath("Dirlist", url)
	if err != nil {
		return err
	}

	go func() {
		entries, err := os.ReadDir(fullPath)
		if err != nil {
			done(nil, a.mapError("Dirlist", err))
			return
		}

		result := make([]domain.EntryStat, 0, len(entries))
		for _, entry := range entries {
			if ctx.Err() != nil {
				done(nil, domain.Wrap(ctx.Err(), syscall.ECANCELED, "Dirlist", "%v", ctx.Err()))
				return
			}
			info, err := entry.Info()
			if err != nil {
				// Entry vanished or is unreadable; list it without metadata
				result = append(result, domain.EntryStat{Name: entry.Name()})
				continue
			}
			result = append(result, entryStatFromOS(info))
		}
		done(result, nil)
	}()
	return nil
}

// Checksum computes an adler32 checksum and answers like a server would
func (a *Adapter) Checksum(ctx context.Context, url string) (string, error) {
	fullPath, err := a.resolvePath("Checksum", url)
	if err != nil {
		return "", err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		return "", a.mapError("Checksum", err)
	}
	defer f.Close()

	value, err := a.calc.Calculate(ctx, f, a.checksum)
	if err != nil {
		return "", domain.Wrap(err, domain.Errno(err), "Checksum", "%v", err)
	}
	return fmt.Sprintf("%s %s", a.checksum, value), nil
}

// Close releases any resources (no-op for local adapter)
func (a *Adapter) Close() error {
	return nil
}

// Root returns the root path of this adapter
func (a *Adapter) Root() string {
	return a.root
}

func flagsFromOS(info os.FileInfo) domain.StatFlags {
	perm := info.Mode().Perm()
	return domain.StatFlags{
		IsDir:      info.IsDir(),
		Readable:   perm&0400 != 0,
		Writable:   perm&0200 != 0,
		Executable: perm&0100 != 0,
	}
}

func entryStatFromOS(info os.FileInfo) domain.EntryStat {
	return domain.EntryStat{
		Name:    info.Name(),
		HasStat: true,
		Flags:   flagsFromOS(info),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}

// fileInfoFromOS converts os.FileInfo to domain.FileInfo
func fileInfoFromOS(info os.FileInfo) domain.FileInfo {
	fileType := domain.FileTypeRegular
	if info.IsDir() {
		fileType = domain.FileTypeDirectory
	} else if !info.Mode().IsRegular() {
		fileType = domain.FileTypeOther
	}

	return domain.FileInfo{
		Name:    info.Name(),
		Type:    fileType,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Mode:    info.Mode().Perm() | (info.Mode() & os.ModeDir),
	}
}

// mapError converts OS errors to domain errors
func (a *Adapter) mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ENOENT:
			return domain.Wrap(domain.ErrNotFound, errno, op, "%v", err)
		case syscall.EACCES, syscall.EPERM:
			return domain.Wrap(domain.ErrPermissionDenied, errno, op, "%v", err)
		case syscall.EEXIST:
			return domain.Wrap(domain.ErrAlreadyExists, errno, op, "%v", err)
		}
		return domain.Wrap(err, errno, op, "%v", err)
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		return domain.Wrap(err, syscall.EIO, op, "%v", err)
	}
	return domain.Wrap(err, domain.Errno(err), op, "%v", err)
}

