package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/Ning0612/xrdgate/internal/adapter"
	"github.com/Ning0612/xrdgate/internal/adapter/xrootd"
	"github.com/Ning0612/xrdgate/internal/config"
	"github.com/Ning0612/xrdgate/internal/core/checksum"
	"github.com/Ning0612/xrdgate/internal/core/dirlist"
	"github.com/Ning0612/xrdgate/internal/domain"
	"github.com/Ning0612/xrdgate/internal/engine/xrdcp"
	"github.com/Ning0612/xrdgate/internal/logger"
	"github.com/Ning0612/xrdgate/internal/tpc"
	"github.com/Ning0612/xrdgate/internal/xrdurl"
)

// Name is the plugin name reported to the host
const Name = "xrootd"

// Operation is the kind of request the host asks eligibility for
type Operation int

const (
	OpCopy Operation = iota
	OpBulkCopy
	OpList
	OpStat
	OpChecksum
)

// String returns the string representation of the operation
func (o Operation) String() string {
	switch o {
	case OpCopy:
		return "copy"
	case OpBulkCopy:
		return "bulk-copy"
	case OpList:
		return "list"
	case OpStat:
		return "stat"
	case OpChecksum:
		return "checksum"
	default:
		return "unknown"
	}
}

// Plugin is the call surface exposed to the host middleware
type Plugin struct {
	fs     adapter.FileSystem
	copier *tpc.Copier
	opts   config.Options
}

// New creates a plugin on fs, running copies through engines from newEngine
func New(fs adapter.FileSystem, newEngine tpc.EngineFactory, opts config.Options) *Plugin {
	return &Plugin{
		fs:     fs,
		copier: tpc.NewCopier(newEngine, opts),
		opts:   opts,
	}
}

// NewFromConfig wires the go-hep filesystem and the xrdcp engine from cfg.
// fs overrides the XRootD filesystem when non-nil.
func NewFromConfig(cfg *config.Config, fs adapter.FileSystem) (*Plugin, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	opts := cfg.Options()

	if fs == nil {
		fs = xrootd.New(xrootd.Options{
			ConnectTimeout: opts.DurationDefault(config.Group, config.KeyConnectTimeout, config.DefaultConnectTimeout),
		})
	}

	level := logger.CurrentLevel()
	engine := xrdcp.Factory(xrdcp.Options{
		Binary:       opts.StringDefault(config.Group, config.KeyXrdcpBinary, config.DefaultXrdcpBinary),
		Protocol:     opts.StringDefault(config.Group, config.KeyEngineProtocol, config.DefaultEngineProtocol),
		Verbosity:    logger.ClientVerbosity(level),
		LogLevel:     logger.ClientLogLevel(level),
		PollInterval: opts.DurationDefault(config.Group, config.KeyProgressInterval, config.DefaultProgressInterval),
		Stater:       fs,
	})

	logger.Get().Debug("plugin ready", "name", Name, "log_level", level.String())
	return New(fs, engine, opts), nil
}

// CheckCapability reports whether the plugin serves op from src to dst.
// Only copies between two XRootD endpoints are eligible.
func (p *Plugin) CheckCapability(src, dst string, op Operation) bool {
	switch op {
	case OpCopy, OpBulkCopy:
		return xrdurl.IsXrootd(src) && xrdurl.IsXrootd(dst)
	}
	return false
}

// Copy copies src to dst with the user-defined checksum in params
func (p *Plugin) Copy(ctx context.Context, params *tpc.TransferParams, src, dst string) error {
	logger.Get().Debug("copy", "source", src, "destination", dst)
	err := p.copier.Copy(ctx, params, src, dst)
	if err != nil {
		p.logFailure("Copy", src, err)
	}
	return err
}

// CopyBulk copies srcs[i] to dsts[i]. See tpc.Copier.CopyBulk.
func (p *Plugin) CopyBulk(ctx context.Context, params *tpc.TransferParams, srcs, dsts, checksums []string) (*tpc.BulkResult, error) {
	logger.Get().Debug("bulk copy", "files", len(srcs))
	res, err := p.copier.CopyBulk(ctx, params, srcs, dsts, checksums)
	if err != nil {
		p.logFailure("CopyBulk", "", err)
	}
	return res, err
}

// CopyRequests copies a batch described by requests. Options shared by the
// batch are taken from the first request.
func (p *Plugin) CopyRequests(ctx context.Context, reqs []domain.CopyRequest, params *tpc.TransferParams) (*tpc.BulkResult, error) {
	if len(reqs) == 0 {
		return p.CopyBulk(ctx, params, nil, nil, nil)
	}
	base := tpc.ParamsFromRequest(reqs[0])
	if params != nil {
		base.Monitor = params.Monitor
		base.Events = params.Events
	}

	srcs := make([]string, len(reqs))
	dsts := make([]string, len(reqs))
	sums := make([]string, len(reqs))
	for i, r := range reqs {
		srcs[i], dsts[i], sums[i] = r.Source, r.Destination, r.Checksum
	}
	return p.CopyBulk(ctx, base, srcs, dsts, sums)
}

// Stat returns metadata for url
func (p *Plugin) Stat(ctx context.Context, url string) (domain.FileInfo, error) {
	logger.Get().Debug("stat", "url", url)
	fi, err := p.fs.Stat(ctx, url)
	if err != nil {
		p.logFailure("Stat", url, err)
	}
	return fi, err
}

// Open opens url with os.O_* flags
func (p *Plugin) Open(ctx context.Context, url string, flag int, perm os.FileMode) (adapter.File, error) {
	logger.Get().Debug("open", "url", url, "flag", flag)
	f, err := p.fs.Open(ctx, url, flag, perm)
	if err != nil {
		p.logFailure("Open", url, err)
		return nil, err
	}
	return f, nil
}

func badFileHandle(op string) error {
	return domain.Wrap(domain.ErrBadHandle, syscall.EBADF, op, "Bad file handle")
}

// Read reads from an open file
func (p *Plugin) Read(f adapter.File, buf []byte) (int, error) {
	if f == nil {
		return 0, badFileHandle("Read")
	}
	return f.Read(buf)
}

// Write writes to an open file
func (p *Plugin) Write(f adapter.File, buf []byte) (int, error) {
	if f == nil {
		return 0, badFileHandle("Write")
	}
	return f.Write(buf)
}

// Seek moves the offset of an open file
func (p *Plugin) Seek(f adapter.File, offset int64, whence int) (int64, error) {
	if f == nil {
		return 0, badFileHandle("Seek")
	}
	return f.Seek(offset, whence)
}

// Close closes an open file
func (p *Plugin) Close(f adapter.File) error {
	if f == nil {
		return badFileHandle("Close")
	}
	return f.Close()
}

// Mkdir creates a directory
func (p *Plugin) Mkdir(ctx context.Context, url string, perm os.FileMode) error {
	logger.Get().Debug("mkdir", "url", url, "mode", perm.String())
	return p.logged("Mkdir", url, p.fs.Mkdir(ctx, url, perm))
}

// Rmdir removes an empty directory
func (p *Plugin) Rmdir(ctx context.Context, url string) error {
	logger.Get().Debug("rmdir", "url", url)
	return p.logged("Rmdir", url, p.fs.Rmdir(ctx, url))
}

// Unlink removes a file
func (p *Plugin) Unlink(ctx context.Context, url string) error {
	logger.Get().Debug("unlink", "url", url)
	return p.logged("Unlink", url, p.fs.Unlink(ctx, url))
}

// Rename moves oldURL to newURL
func (p *Plugin) Rename(ctx context.Context, oldURL, newURL string) error {
	logger.Get().Debug("rename", "from", oldURL, "to", newURL)
	return p.logged("Rename", oldURL, p.fs.Rename(ctx, oldURL, newURL))
}

// Chmod sets the permission bits of url
func (p *Plugin) Chmod(ctx context.Context, url string, perm os.FileMode) error {
	logger.Get().Debug("chmod", "url", url, "mode", perm.String())
	return p.logged("Chmod", url, p.fs.Chmod(ctx, url, perm))
}

// Access checks mode (adapter.Access*) on url
func (p *Plugin) Access(ctx context.Context, url string, mode int) error {
	logger.Get().Debug("access", "url", url, "mode", mode)
	return p.logged("Access", url, p.fs.Access(ctx, url, mode))
}

// Opendir starts listing url. It fails with ENOTDIR before listing when url
// is not a directory.
func (p *Plugin) Opendir(ctx context.Context, url string) (*dirlist.Cursor, error) {
	logger.Get().Debug("opendir", "url", url)

	fi, err := p.fs.Stat(ctx, url)
	if err != nil {
		return nil, p.logged("Opendir", url, err)
	}
	if !fi.IsDir() {
		return nil, p.logged("Opendir", url,
			domain.Wrap(domain.ErrNotDirectory, syscall.ENOTDIR, "Opendir", "Not a directory"))
	}

	timeout := p.opts.DurationDefault(config.Group, config.KeyListingTimeout, config.DefaultListingTimeout)
	c, err := dirlist.Open(ctx, p.fs, p.fs, url, timeout)
	if err != nil {
		return nil, p.logged("Opendir", url, err)
	}
	return c, nil
}

func badDirHandle(op string) error {
	return domain.Wrap(domain.ErrBadHandle, syscall.EBADF, op, "Bad dir handle")
}

// Readdir returns the next entry of d, or nil at the end
func (p *Plugin) Readdir(ctx context.Context, d *dirlist.Cursor) (*domain.DirEntry, error) {
	if d == nil {
		return nil, badDirHandle("Readdir")
	}
	return d.Next(ctx)
}

// ReaddirWithStat returns the next entry of d with its metadata
func (p *Plugin) ReaddirWithStat(ctx context.Context, d *dirlist.Cursor) (*domain.DirEntry, *domain.FileInfo, error) {
	if d == nil {
		return nil, nil, badDirHandle("Readdir")
	}
	return d.NextWithStat(ctx)
}

// Closedir releases d
func (p *Plugin) Closedir(d *dirlist.Cursor) error {
	if d == nil {
		return badDirHandle("Closedir")
	}
	return d.Close()
}

// Checksum returns the checksum of url computed by the server. Only whole
// file checksums are supported.
func (p *Plugin) Checksum(ctx context.Context, url, typ string, offset, length int64) (string, error) {
	logger.Get().Debug("checksum", "url", url, "type", typ)

	if offset != 0 || length != 0 {
		return "", domain.Wrap(domain.ErrNotSupported, syscall.ENOTSUP, "Checksum",
			"XROOTD does not support partial checksums")
	}

	reply, err := p.fs.Checksum(ctx, url)
	if err != nil {
		return "", p.logged("Checksum", url, err)
	}
	value, err := checksum.ParseReply(reply, typ)
	if err != nil {
		return "", p.logged("Checksum", url, domain.Wrap(err, domain.Errno(err), "Checksum", "%v", err))
	}
	return value, nil
}

// ReadAll reads a whole remote file into w
func (p *Plugin) ReadAll(ctx context.Context, url string, w io.Writer) (int64, error) {
	f, err := p.Open(ctx, url, os.O_RDONLY, 0)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(w, f)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	return n, p.logged("Read", url, err)
}

// Shutdown releases the filesystem's connections
func (p *Plugin) Shutdown() error {
	return p.fs.Close()
}

func (p *Plugin) logged(op, url string, err error) error {
	if err != nil {
		p.logFailure(op, url, err)
	}
	return err
}

func (p *Plugin) logFailure(op, url string, err error) {
	// cancellation comes from the caller, not the server
	log := logger.Get().Error
	if errors.Is(err, domain.ErrCanceled) || errors.Is(err, context.Canceled) {
		log = logger.Get().Warn
	}
	log("operation failed", "op", op, "url", url, "errno", int(domain.Errno(err)), "error", err)
}
