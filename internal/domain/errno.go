package domain

import "syscall"

// XRootD server error codes (kXR_*)
const (
	XrdArgInvalid     = 3000
	XrdArgMissing     = 3001
	XrdArgTooLong     = 3002
	XrdFileLocked     = 3003
	XrdFileNotOpen    = 3004
	XrdFSError        = 3005
	XrdInvalidRequest = 3006
	XrdIOError        = 3007
	XrdNoMemory       = 3008
	XrdNoSpace        = 3009
	XrdNotAuthorized  = 3010
	XrdNotFound       = 3011
	XrdServerError    = 3012
	XrdUnsupported    = 3013
	XrdNoServer       = 3014
	XrdNotFile        = 3015
	XrdIsDirectory    = 3016
	XrdCancelled      = 3017
	XrdChkLenErr      = 3018
	XrdChkSumErr      = 3019
	XrdInProgress     = 3020
	XrdOverQuota      = 3021
	XrdSigVerErr      = 3022
	XrdDecryptErr     = 3023
	XrdOverloaded     = 3024
)

var xrootdErrno = map[int]syscall.Errno{
	XrdArgInvalid:     syscall.EINVAL,
	XrdArgMissing:     syscall.EINVAL,
	XrdArgTooLong:     syscall.ENAMETOOLONG,
	XrdFileLocked:     syscall.EBUSY,
	XrdFileNotOpen:    syscall.EBADF,
	XrdFSError:        syscall.EIO,
	XrdInvalidRequest: syscall.EINVAL,
	XrdIOError:        syscall.EIO,
	XrdNoMemory:       syscall.ENOMEM,
	XrdNoSpace:        syscall.ENOSPC,
	XrdNotAuthorized:  syscall.EACCES,
	XrdNotFound:       syscall.ENOENT,
	XrdServerError:    syscall.EIO,
	XrdUnsupported:    syscall.ENOTSUP,
	XrdNoServer:       syscall.EHOSTUNREACH,
	XrdNotFile:        syscall.EISDIR,
	XrdIsDirectory:    syscall.EISDIR,
	XrdCancelled:      syscall.ECANCELED,
	XrdChkLenErr:      syscall.EIO,
	XrdChkSumErr:      syscall.EIO,
	XrdInProgress:     syscall.EINPROGRESS,
	XrdOverQuota:      syscall.EDQUOT,
	XrdSigVerErr:      syscall.EACCES,
	XrdDecryptErr:     syscall.EACCES,
	XrdOverloaded:     syscall.EBUSY,
}

// ErrnoFromXrootd translates an XRootD error number into a POSIX errno.
// Values outside the kXR_* range are already POSIX errnos and pass through;
// zero (a failure without a number) becomes EIO.
func ErrnoFromXrootd(code int) syscall.Errno {
	if code == 0 {
		return syscall.EIO
	}
	if errno, ok := xrootdErrno[code]; ok {
		return errno
	}
	if code >= XrdArgInvalid && code < 4000 {
		return syscall.EIO
	}
	return syscall.Errno(code)
}
