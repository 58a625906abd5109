package posix

import (
	"fmt"

	"github.com/pkg/errors"
)

const UINT64_MAX = 0xFFFFFFFFFFFFFFFF

// Errno is a kernel error number. Syscalls return it negated.
type Errno int

const (
	EPERM   Errno = 1
	ENOENT  Errno = 2
	ESRCH   Errno = 3
	EINTR   Errno = 4
	EIO     Errno = 5
	E2BIG   Errno = 7
	ENOEXEC Errno = 8
	EBADF   Errno = 9
	ECHILD  Errno = 10
	EAGAIN  Errno = 11
	ENOMEM  Errno = 12
	EACCES  Errno = 13
	EFAULT  Errno = 14
	EBUSY   Errno = 16
	EEXIST  Errno = 17
	ENODEV  Errno = 19
	ENOTDIR Errno = 20
	EISDIR  Errno = 21
	EINVAL  Errno = 22
	ENFILE  Errno = 23
	EMFILE  Errno = 24
	ENOTTY  Errno = 25
	ENOSYS  Errno = 38
)

var errnoNames = map[Errno]string{
	EPERM:   "operation not permitted",
	ENOENT:  "no such file or directory",
	ESRCH:   "no such process",
	EINTR:   "interrupted system call",
	EIO:     "input/output error",
	E2BIG:   "argument list too long",
	ENOEXEC: "exec format error",
	EBADF:   "bad file descriptor",
	ECHILD:  "no child processes",
	EAGAIN:  "resource temporarily unavailable",
	ENOMEM:  "cannot allocate memory",
	EACCES:  "permission denied",
	EFAULT:  "bad address",
	EBUSY:   "device or resource busy",
	EEXIST:  "file exists",
	ENODEV:  "no such device",
	ENOTDIR: "not a directory",
	EISDIR:  "is a directory",
	EINVAL:  "invalid argument",
	ENFILE:  "too many open files in system",
	EMFILE:  "too many open files",
	ENOTTY:  "inappropriate ioctl for device",
	ENOSYS:  "function not implemented",
}

func (e Errno) Error() string {
	if s, ok := errnoNames[e]; ok {
		return s
	}
	return fmt.Sprintf("errno %d", int(e))
}

// Is reports whether err is (or wraps) the errno e.
func Is(err error, e Errno) bool {
	if err == nil {
		return false
	}
	n, ok := errors.Cause(err).(Errno)
	return ok && n == e
}

// Ret converts a syscall result into the register convention: the value on
// success, -errno on failure.
func Ret(ret int, err error) uint64 {
	if err != nil {
		if n, ok := errors.Cause(err).(Errno); ok {
			return uint64(int64(-n))
		}
		return UINT64_MAX
	}
	return uint64(int64(ret))
}

// Code returns the negative errno of err, or -1 for errors that carry no errno.
func Code(err error) int {
	if n, ok := errors.Cause(err).(Errno); ok {
		return -int(n)
	}
	return -1
}
