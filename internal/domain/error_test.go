package domain

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestErrnoFromXrootd(t *testing.T) {
	tests := []struct {
		code int
		want syscall.Errno
	}{
		{0, syscall.EIO},
		{XrdNotFound, syscall.ENOENT},
		{XrdNotAuthorized, syscall.EACCES},
		{XrdIsDirectory, syscall.EISDIR},
		{XrdOverQuota, syscall.EDQUOT},
		{3999, syscall.EIO},
		{int(syscall.EEXIST), syscall.EEXIST},
	}

	for _, tt := range tests {
		if got := ErrnoFromXrootd(tt.code); got != tt.want {
			t.Errorf("ErrnoFromXrootd(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestErrno(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want syscall.Errno
	}{
		{"nil", nil, 0},
		{"domain error", Errorf(syscall.ENOTDIR, "Opendir", "not a dir"), syscall.ENOTDIR},
		{"wrapped domain error", fmt.Errorf("outer: %w", Errorf(syscall.EACCES, "Stat", "denied")), syscall.EACCES},
		{"raw errno", syscall.ENOSPC, syscall.ENOSPC},
		{"sentinel", fmt.Errorf("lookup: %w", ErrNotFound), syscall.ENOENT},
		{"bad handle", ErrBadHandle, syscall.EBADF},
		{"invalid checksum", ErrInvalidChecksum, syscall.EINVAL},
		{"canceled", ErrCanceled, syscall.ECANCELED},
		{"unknown", errors.New("boom"), syscall.EIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Errno(tt.err); got != tt.want {
				t.Errorf("Errno() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestError_Format(t *testing.T) {
	e := Errorf(syscall.EIO, "", "plain")
	if e.Error() != "plain" {
		t.Errorf("Error() = %q", e.Error())
	}
	if e.Domain != ErrorDomain {
		t.Errorf("Domain = %q, want %q", e.Domain, ErrorDomain)
	}

	e = Errorf(syscall.EIO, "CopyBulk", "Error on CopyProcess::Run(): %s", "boom")
	if want := "[CopyBulk] Error on CopyProcess::Run(): boom"; e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
}

func TestError_Prefixed(t *testing.T) {
	inner := Errorf(syscall.EACCES, "CopyBulk", "denied")
	outer := inner.Prefixed("Copy")

	if want := "[Copy][CopyBulk] denied"; outer.Error() != want {
		t.Errorf("Error() = %q, want %q", outer.Error(), want)
	}
	if inner.Op != "CopyBulk" {
		t.Errorf("Prefixed modified the original: Op = %q", inner.Op)
	}
	if got := Errorf(syscall.EIO, "", "x").Prefixed("Stat").Op; got != "Stat" {
		t.Errorf("Op = %q, want Stat", got)
	}
}

func TestError_Is(t *testing.T) {
	err := Wrap(ErrNotFound, syscall.ENOENT, "Stat", "no such file")

	if !errors.Is(err, syscall.ENOENT) {
		t.Error("expected match on errno")
	}
	if errors.Is(err, syscall.EACCES) {
		t.Error("unexpected match on a different errno")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected match on the wrapped cause")
	}
}
