package xrootd

import (
	"context"
	"io"
	"sync"
	"syscall"

	"go-hep.org/x/hep/xrootd/xrdfs"

	"github.com/Ning0612/xrdgate/internal/domain"
)

// file is an open remote file. It keeps its client borrowed until Close.
type file struct {
	pool   *pool
	conn   *conn
	fd     xrdfs.File
	path   string
	append bool

	mu     sync.Mutex
	offset int64
	err    error
	closed bool
}

func newFile(p *pool, c *conn, fd xrdfs.File, path string, appendMode bool) *file {
	return &file{pool: p, conn: c, fd: fd, path: path, append: appendMode}
}

func (f *file) check(op string) error {
	if f.closed {
		return domain.Wrap(domain.ErrBadHandle, syscall.EBADF, op, "Bad file handle")
	}
	return nil
}

// Read reads from the current offset
func (f *file) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("Read"); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	n, err := f.fd.ReadAt(p, f.offset)
	f.offset += int64(n)
	if err != nil && err != io.EOF {
		f.err = err
		return n, mapError("Read", err)
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write writes at the current offset, or at the end in append mode
func (f *file) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("Write"); err != nil {
		return 0, err
	}
	if f.append {
		size, err := f.size()
		if err != nil {
			return 0, err
		}
		f.offset = size
	}
	n, err := f.fd.WriteAt(p, f.offset)
	f.offset += int64(n)
	if err != nil {
		f.err = err
		return n, mapError("Write", err)
	}
	return n, nil
}

// Seek moves the offset; io.SeekEnd asks the server for the size
func (f *file) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check("Seek"); err != nil {
		return 0, err
	}

	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = f.offset
	case io.SeekEnd:
		size, err := f.size()
		if err != nil {
			return 0, err
		}
		base = size
	default:
		return 0, domain.Errorf(syscall.EINVAL, "Seek", "invalid whence %d", whence)
	}
	if base+offset < 0 {
		return 0, domain.Errorf(syscall.EINVAL, "Seek", "negative offset %d", base+offset)
	}
	f.offset = base + offset
	return f.offset, nil
}

func (f *file) size() (int64, error) {
	st, err := f.fd.Stat(context.Background())
	if err != nil {
		f.err = err
		return 0, mapError("Stat", err)
	}
	return st.EntrySize, nil
}

// Close releases the handle and gives the client back to the pool
func (f *file) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return domain.Wrap(domain.ErrBadHandle, syscall.EBADF, "Close", "Bad file handle")
	}
	f.closed = true
	closeErr := f.fd.Close(context.Background())
	poolErr := closeErr
	if poolErr == nil {
		poolErr = f.err
	}
	f.pool.put(f.conn, poolErr)
	return mapError("Close", closeErr)
}
