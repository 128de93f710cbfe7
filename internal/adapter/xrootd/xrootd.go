// Package xrootd implements adapter.FileSystem on top of the go-hep XRootD client.
package xrootd

import (
	"context"
	"os"
	"syscall"
	"time"

	"go-hep.org/x/hep/xrootd/xrdfs"
	"go-hep.org/x/hep/xrootd/xrdproto/query"

	"github.com/Ning0612/xrdgate/internal/adapter"
	"github.com/Ning0612/xrdgate/internal/domain"
	"github.com/Ning0612/xrdgate/internal/logger"
	"github.com/Ning0612/xrdgate/internal/xrdurl"
)

// DefaultConnectTimeout bounds opening a client connection
const DefaultConnectTimeout = 30 * time.Second

// Options configures the filesystem
type Options struct {
	// User is sent at login when the URL carries none
	User string

	// ConnectTimeout bounds dialing a server; zero means DefaultConnectTimeout
	ConnectTimeout time.Duration
}

// FS implements adapter.FileSystem for root:// URLs
type FS struct {
	user string
	pool *pool
}

var _ adapter.FileSystem = (*FS)(nil)

// New creates a filesystem with an empty connection pool
func New(opts Options) *FS {
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	user := opts.User
	if user == "" {
		user = currentUser()
	}
	return &FS{user: user, pool: newPool(timeout)}
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "xrdgate"
}

// session resolves url and borrows a client for its server
func (f *FS) session(ctx context.Context, op, rawURL string) (*conn, *xrdurl.URL, error) {
	u, err := xrdurl.Parse(rawURL)
	if err != nil {
		return nil, nil, domain.Wrap(err, syscall.EINVAL, op, "%v", err)
	}
	user := u.User
	if user == "" {
		user = f.user
	}
	c, err := f.pool.get(ctx, u.Addr(), user)
	if err != nil {
		return nil, nil, mapError(op, err)
	}
	return c, u, nil
}

// Stat returns metadata for url
func (f *FS) Stat(ctx context.Context, url string) (domain.FileInfo, error) {
	c, u, err := f.session(ctx, "Stat", url)
	if err != nil {
		return domain.FileInfo{}, err
	}
	st, err := c.client.FS().Stat(ctx, u.Path)
	f.pool.put(c, err)
	if err != nil {
		return domain.FileInfo{}, mapError("Stat", err)
	}
	return fileInfoOf(st), nil
}

// StatEntry stats name inside dirURL on the same server, with dirURL's credentials
func (f *FS) StatEntry(ctx context.Context, dirURL, name string) (domain.FileInfo, error) {
	c, u, err := f.session(ctx, "Stat", dirURL)
	if err != nil {
		return domain.FileInfo{}, err
	}
	st, err := c.client.FS().Stat(ctx, u.Join(name).Path)
	f.pool.put(c, err)
	if err != nil {
		return domain.FileInfo{}, mapError("Stat", err)
	}
	return fileInfoOf(st), nil
}

// Open opens url with os.O_* flags
func (f *FS) Open(ctx context.Context, url string, flag int, perm os.FileMode) (adapter.File, error) {
	c, u, err := f.session(ctx, "Open", url)
	if err != nil {
		return nil, err
	}
	fd, err := c.client.FS().Open(ctx, u.Path, openMode(perm), openOptions(flag))
	if err != nil {
		f.pool.put(c, err)
		return nil, mapError("Open", err)
	}
	return newFile(f.pool, c, fd, u.Path, flag&os.O_APPEND != 0), nil
}

// Mkdir creates a single directory
func (f *FS) Mkdir(ctx context.Context, url string, perm os.FileMode) error {
	c, u, err := f.session(ctx, "Mkdir", url)
	if err != nil {
		return err
	}
	err = c.client.FS().Mkdir(ctx, u.Path, openMode(perm))
	f.pool.put(c, err)
	if err != nil {
		e := asDomainError(mapError("Mkdir", err))
		// the server reports an existing directory as a cancelled request
		if e.Code == syscall.ECANCELED {
			e.Code = syscall.EEXIST
		}
		return e
	}
	return nil
}

// Rmdir removes an empty directory
func (f *FS) Rmdir(ctx context.Context, url string) error {
	c, u, err := f.session(ctx, "Rmdir", url)
	if err != nil {
		return err
	}
	err = c.client.FS().RemoveDir(ctx, u.Path)
	f.pool.put(c, err)
	if err != nil {
		e := asDomainError(mapError("Rmdir", err))
		switch e.Code {
		case syscall.ECANCELED:
			e.Code = syscall.ENOTEMPTY
		case syscall.ENOSYS:
			e.Code = syscall.ENOTDIR
		}
		return e
	}
	return nil
}

// Unlink removes a file
func (f *FS) Unlink(ctx context.Context, url string) error {
	c, u, err := f.session(ctx, "Unlink", url)
	if err != nil {
		return err
	}
	err = c.client.FS().RemoveFile(ctx, u.Path)
	f.pool.put(c, err)
	return mapError("Unlink", err)
}

// Rename moves oldURL to newURL. Both must name the same server.
func (f *FS) Rename(ctx context.Context, oldURL, newURL string) error {
	to, err := xrdurl.Parse(newURL)
	if err != nil {
		return domain.Wrap(err, syscall.EINVAL, "Rename", "%v", err)
	}
	c, from, err := f.session(ctx, "Rename", oldURL)
	if err != nil {
		return err
	}
	if from.Addr() != to.Addr() {
		f.pool.put(c, nil)
		return domain.Errorf(syscall.EXDEV, "Rename", "cannot rename across servers: %s -> %s", from.Addr(), to.Addr())
	}
	err = c.client.FS().Rename(ctx, from.Path, to.Path)
	f.pool.put(c, err)
	return mapError("Rename", err)
}

// Chmod sets the owner, group and other permission triplets
func (f *FS) Chmod(ctx context.Context, url string, perm os.FileMode) error {
	c, u, err := f.session(ctx, "Chmod", url)
	if err != nil {
		return err
	}
	mode := openMode(perm)
	logger.Get().Debug("chmod", "path", u.Path, "perm", perm.Perm().String(), "mode", int(mode))
	err = c.client.FS().Chmod(ctx, u.Path, mode)
	f.pool.put(c, err)
	return mapError("Chmod", err)
}

// Access checks mode against the permission flags of url
func (f *FS) Access(ctx context.Context, url string, mode int) error {
	c, u, err := f.session(ctx, "Access", url)
	if err != nil {
		return err
	}
	st, err := c.client.FS().Stat(ctx, u.Path)
	f.pool.put(c, err)
	if err != nil {
		return mapError("Access", err)
	}
	return checkAccess(statFlagsOf(st.Flags), mode)
}

// checkAccess fails with EACCES when a requested permission is missing
func checkAccess(flags domain.StatFlags, mode int) error {
	if mode&adapter.AccessRead != 0 && !flags.Readable {
		return domain.Wrap(domain.ErrPermissionDenied, syscall.EACCES, "Access", "read access denied")
	}
	if mode&adapter.AccessWrite != 0 && !flags.Writable {
		return domain.Wrap(domain.ErrPermissionDenied, syscall.EACCES, "Access", "write access denied")
	}
	if mode&adapter.AccessExecute != 0 && !flags.Executable {
		return domain.Wrap(domain.ErrPermissionDenied, syscall.EACCES, "Access", "execute access denied")
	}
	return nil
}

// List runs the directory listing in the background and reports through done
func (f *FS) List(ctx context.Context, url string, done func([]domain.EntryStat, error)) error {
	c, u, err := f.session(ctx, "Dirlist", url)
	if err != nil {
		return err
	}
	go func() {
		entries, err := c.client.FS().Dirlist(ctx, u.Path)
		f.pool.put(c, err)
		if err != nil {
			done(nil, mapError("Dirlist", err))
			return
		}
		out := make([]domain.EntryStat, 0, len(entries))
		for _, e := range entries {
			out = append(out, entryStatOf(e))
		}
		done(out, nil)
	}()
	return nil
}

// Checksum asks the server for the checksum of url and returns the raw reply
func (f *FS) Checksum(ctx context.Context, url string) (string, error) {
	c, u, err := f.session(ctx, "Checksum", url)
	if err != nil {
		return "", err
	}
	var resp query.Response
	_, err = c.client.Send(ctx, &resp, &query.Request{Query: query.Checksum, Args: []byte(u.Path)})
	f.pool.put(c, err)
	if err != nil {
		return "", mapError("Checksum", err)
	}
	return string(resp.Data), nil
}

// Close closes every pooled connection
func (f *FS) Close() error {
	return f.pool.close()
}

func asDomainError(err error) *domain.Error {
	if e, ok := err.(*domain.Error); ok {
		return e
	}
	return domain.Wrap(err, domain.Errno(err), "", "%v", err)
}

// openMode converts POSIX permission bits into XRootD access mode bits.
// XRootD has no write bit for others; it is dropped.
func openMode(perm os.FileMode) xrdfs.OpenMode {
	var mode xrdfs.OpenMode
	bits := []struct {
		perm os.FileMode
		mode xrdfs.OpenMode
	}{
		{0400, xrdfs.OpenModeOwnerRead},
		{0200, xrdfs.OpenModeOwnerWrite},
		{0100, xrdfs.OpenModeOwnerExecute},
		{0040, xrdfs.OpenModeGroupRead},
		{0020, xrdfs.OpenModeGroupWrite},
		{0010, xrdfs.OpenModeGroupExecute},
		{0004, xrdfs.OpenModeOtherRead},
		{0001, xrdfs.OpenModeOtherExecute},
	}
	for _, b := range bits {
		if perm&b.perm != 0 {
			mode |= b.mode
		}
	}
	return mode
}

// openOptions converts os.O_* flags into XRootD open options
func openOptions(flag int) xrdfs.OpenOptions {
	var opts xrdfs.OpenOptions
	switch flag & (os.O_RDONLY | os.O_WRONLY | os.O_RDWR) {
	case os.O_RDONLY:
		opts |= xrdfs.OpenOptionsOpenRead
	default:
		opts |= xrdfs.OpenOptionsOpenUpdate
	}
	switch {
	case flag&os.O_CREATE != 0 && flag&os.O_EXCL != 0:
		opts |= xrdfs.OpenOptionsNew | xrdfs.OpenOptionsMkPath
	case flag&os.O_CREATE != 0, flag&os.O_TRUNC != 0:
		opts |= xrdfs.OpenOptionsDelete | xrdfs.OpenOptionsMkPath
	}
	if flag&os.O_APPEND != 0 {
		opts |= xrdfs.OpenOptionsOpenAppend
	}
	return opts
}

func statFlagsOf(f xrdfs.StatFlags) domain.StatFlags {
	return domain.StatFlags{
		IsDir:      f&xrdfs.StatIsDir != 0,
		Readable:   f&xrdfs.StatIsReadable != 0,
		Writable:   f&xrdfs.StatIsWritable != 0,
		Executable: f&xrdfs.StatIsExecutable != 0,
	}
}

func entryStatOf(e xrdfs.EntryStat) domain.EntryStat {
	return domain.EntryStat{
		Name:    e.EntryName,
		HasStat: e.HasStatInfo,
		Flags:   statFlagsOf(e.Flags),
		Size:    e.EntrySize,
		ModTime: time.Unix(e.Mtime, 0),
	}
}

func fileInfoOf(st xrdfs.EntryStat) domain.FileInfo {
	e := entryStatOf(st)
	e.HasStat = true
	return e.FileInfo()
}
