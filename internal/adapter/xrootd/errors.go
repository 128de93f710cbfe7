package xrootd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"go-hep.org/x/hep/xrootd/xrdproto"

	"github.com/Ning0612/xrdgate/internal/domain"
)

func serverError(err error) (xrdproto.ServerError, bool) {
	var se xrdproto.ServerError
	if errors.As(err, &se) {
		return se, true
	}
	var sep *xrdproto.ServerError
	if errors.As(err, &sep) && sep != nil {
		return *sep, true
	}
	return xrdproto.ServerError{}, false
}

// isServerError reports whether the server answered; the connection is still usable
func isServerError(err error) bool {
	_, ok := serverError(err)
	return ok
}

// mapError converts a client error into a *domain.Error for op
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}

	if se, ok := serverError(err); ok {
		return domain.Wrap(err, domain.ErrnoFromXrootd(int(se.Code)), op, "[%d] %s", int(se.Code), se.Message)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return domain.Wrap(domain.ErrTimeout, syscall.ETIMEDOUT, op, "%v", err)
	case errors.Is(err, context.Canceled):
		return domain.Wrap(domain.ErrCanceled, syscall.ECANCELED, op, "%v", err)
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return domain.Wrap(err, errno, op, "%v", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		code := syscall.ECONNREFUSED
		if netErr.Timeout() {
			code = syscall.ETIMEDOUT
		}
		return domain.Wrap(fmt.Errorf("%w: %v", domain.ErrNetworkError, err), code, op, "%v", err)
	}

	return domain.Wrap(err, domain.Errno(err), op, "%v", err)
}
