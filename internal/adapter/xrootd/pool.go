package xrootd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-hep.org/x/hep/xrootd"

	"github.com/Ning0612/xrdgate/internal/logger"
)

// conn is one pooled client connection
type conn struct {
	key    string
	client *xrootd.Client
}

// pool keeps idle clients per server and user.
// Clients live on the pool's context: a client dialed with a request context
// stops reading responses once that context ends.
type pool struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	idle           map[string][]*conn
	connectTimeout time.Duration
	closed         bool
}

func newPool(connectTimeout time.Duration) *pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &pool{
		ctx:            ctx,
		cancel:         cancel,
		idle:           make(map[string][]*conn),
		connectTimeout: connectTimeout,
	}
}

type dialResult struct {
	client *xrootd.Client
	err    error
}

func poolKey(addr, user string) string {
	return user + "@" + addr
}

// get reuses an idle client or dials a new one
func (p *pool) get(ctx context.Context, addr, user string) (*conn, error) {
	key := poolKey(addr, user)

	p.mu.Lock()
	if idle := p.idle[key]; len(idle) > 0 {
		c := idle[len(idle)-1]
		p.idle[key] = idle[:len(idle)-1]
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	logger.Get().Debug("opening xrootd client", "addr", addr)
	client, err := p.dial(ctx, addr, user)
	if err != nil {
		return nil, err
	}
	return &conn{key: key, client: client}, nil
}

// dial connects on the pool context. ctx and the connect timeout only bound
// the wait; a dial that finishes after the caller gave up is closed.
func (p *pool) dial(ctx context.Context, addr, user string) (*xrootd.Client, error) {
	res := make(chan dialResult, 1)
	go func() {
		client, err := xrootd.NewClient(p.ctx, addr, user)
		res <- dialResult{client: client, err: err}
	}()

	var timeout <-chan time.Time
	if p.connectTimeout > 0 {
		timer := time.NewTimer(p.connectTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	abandon := func() {
		go func() {
			if r := <-res; r.client != nil {
				r.client.Close()
			}
		}()
	}

	select {
	case r := <-res:
		return r.client, r.err
	case <-timeout:
		abandon()
		return nil, fmt.Errorf("connect to %s: %w", addr, context.DeadlineExceeded)
	case <-ctx.Done():
		abandon()
		return nil, ctx.Err()
	}
}

// put returns c to the pool. A client that failed at transport level is closed.
func (p *pool) put(c *conn, err error) {
	if c == nil {
		return
	}
	p.mu.Lock()
	if p.closed || (err != nil && !isServerError(err)) {
		p.mu.Unlock()
		c.client.Close()
		return
	}
	p.idle[c.key] = append(p.idle[c.key], c)
	p.mu.Unlock()
}

// close shuts every idle client down
func (p *pool) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for key, idle := range p.idle {
		for _, c := range idle {
			if err := c.client.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		delete(p.idle, key)
	}
	p.closed = true
	p.cancel()
	return firstErr
}
