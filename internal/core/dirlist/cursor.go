// Package dirlist turns one asynchronous directory listing into a
// forward-only cursor with a bounded wait and lazy per-entry stat.
package dirlist

import (
	"context"
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/Ning0612/xrdgate/internal/domain"
	"github.com/Ning0612/xrdgate/internal/xrdurl"
)

// DefaultTimeout bounds the wait for the listing response
const DefaultTimeout = 60 * time.Second

const opReaddir = "Readdir"

// Lister issues an asynchronous listing. done is called exactly once, from
// any goroutine, unless List itself returns an error.
type Lister interface {
	List(ctx context.Context, url string, done func(entries []domain.EntryStat, err error)) error
}

// Stater resolves metadata of a single entry of the listed directory.
// dirURL is passed as opened, name exactly as listed.
type Stater interface {
	StatEntry(ctx context.Context, dirURL, name string) (domain.FileInfo, error)
}

// Cursor serves the entries of one directory listing. It cannot be rewound.
type Cursor struct {
	dirURL  string
	url     *xrdurl.URL
	stater  Stater
	timeout time.Duration
	cancel  context.CancelFunc

	done     chan struct{}
	respOnce sync.Once

	mu      sync.Mutex
	pending []domain.EntryStat
	err     error
	closed  bool
}

// Open starts listing dirURL. The caller has already checked that dirURL is
// a directory. A zero timeout means DefaultTimeout.
func Open(ctx context.Context, lister Lister, stater Stater, dirURL string, timeout time.Duration) (*Cursor, error) {
	u, err := xrdurl.Parse(dirURL)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	listCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := &Cursor{
		dirURL:  dirURL,
		url:     u,
		stater:  stater,
		timeout: timeout,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	if err := lister.List(listCtx, dirURL, c.handleResponse); err != nil {
		cancel()
		return nil, err
	}
	return c, nil
}

// handleResponse records the single listing response and wakes waiters
func (c *Cursor) handleResponse(entries []domain.EntryStat, err error) {
	c.respOnce.Do(func() {
		c.mu.Lock()
		if !c.closed {
			if err != nil {
				c.err = err
			} else {
				c.pending = append(c.pending, entries...)
			}
		}
		c.mu.Unlock()
		close(c.done)
	})
}

// wait blocks until the response arrived, the timeout elapsed or ctx ended
func (c *Cursor) wait(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	default:
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case <-c.done:
		return nil
	case <-timer.C:
		return domain.Wrap(domain.ErrTimeout, syscall.ETIMEDOUT, opReaddir,
			"no listing response for %s after %v", c.url.Path, c.timeout)
	case <-ctx.Done():
		return domain.Wrap(ctx.Err(), syscall.ECANCELED, opReaddir, "%v", ctx.Err())
	}
}

// pop removes the first pending entry. ok is false at end of sequence.
func (c *Cursor) pop(ctx context.Context) (domain.EntryStat, bool, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return domain.EntryStat{}, false, domain.Wrap(domain.ErrBadHandle, syscall.EBADF, opReaddir, "Bad dir handle")
	}

	if err := c.wait(ctx); err != nil {
		return domain.EntryStat{}, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.EntryStat{}, false, domain.Wrap(domain.ErrBadHandle, syscall.EBADF, opReaddir, "Bad dir handle")
	}
	if c.err != nil {
		return domain.EntryStat{}, false, domain.Wrap(c.err, domain.Errno(c.err), opReaddir,
			"Failed reading directory: %v", c.err)
	}
	if len(c.pending) == 0 {
		return domain.EntryStat{}, false, nil
	}

	e := c.pending[0]
	c.pending[0] = domain.EntryStat{}
	c.pending = c.pending[1:]
	return e, true, nil
}

func direntOf(e domain.EntryStat) *domain.DirEntry {
	t := domain.FileTypeRegular
	if e.HasStat && e.Flags.IsDir {
		t = domain.FileTypeDirectory
	}
	return &domain.DirEntry{Name: e.Name, Type: t}
}

// Next returns the next entry, or nil at end of sequence
func (c *Cursor) Next(ctx context.Context) (*domain.DirEntry, error) {
	e, ok, err := c.pop(ctx)
	if err != nil || !ok {
		return nil, err
	}
	return direntOf(e), nil
}

// NextWithStat returns the next entry with its metadata. Entries listed
// without metadata are stat'ed one by one.
func (c *Cursor) NextWithStat(ctx context.Context) (*domain.DirEntry, *domain.FileInfo, error) {
	e, ok, err := c.pop(ctx)
	if err != nil || !ok {
		return nil, nil, err
	}

	if e.HasStat {
		fi := e.FileInfo()
		return direntOf(e), &fi, nil
	}

	fi, err := c.stater.StatEntry(ctx, c.dirURL, e.Name)
	if err != nil {
		return nil, nil, domain.Wrap(err, domain.Errno(err), opReaddir,
			"Failed reading directory: %v", err)
	}
	fi.Name = e.Name

	ent := &domain.DirEntry{Name: e.Name, Type: fi.Type}
	if ent.Type != domain.FileTypeDirectory {
		ent.Type = domain.FileTypeRegular
	}
	return ent, &fi, nil
}

// Close drops the remaining entries and abandons the listing. Safe to call twice.
func (c *Cursor) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.pending = nil
	c.cancel()
	return nil
}

// String identifies the cursor in logs
func (c *Cursor) String() string {
	return fmt.Sprintf("dirlist(%s)", c.url.Path)
}
