package vkernel

import (
	"io"
	"os"
	"runtime"

	"github.com/lunixbochs/bootcorn/go/kernel/posix"
	"github.com/lunixbochs/bootcorn/go/models"
)

// inode is a file in the in-memory filesystem.
type inode struct {
	path string
	mode uint32
	data []byte
	prog models.Program
	// dev marks the console device
	dev bool
}

func (i *inode) readable() bool   { return i.mode&0444 != 0 }
func (i *inode) writable() bool   { return i.mode&0222 != 0 }
func (i *inode) executable() bool { return i.mode&0111 != 0 }

// file is an open file, shared between fds after dup and fork.
type file struct {
	ino   *inode
	host  *os.File
	flags int
	pos   int
	refs  int
}

func (f *file) canRead() bool  { return f.flags&models.O_ACCMODE != models.O_WRONLY }
func (f *file) canWrite() bool { return f.flags&models.O_ACCMODE != models.O_RDONLY }

func (k *Kernel) getFd(t *task, fd int) (*file, error) {
	if fd < 0 || fd >= NR_OPEN || t.fds[fd] == nil {
		return nil, posix.EBADF
	}
	return t.fds[fd], nil
}

func freeFd(t *task) (int, error) {
	for fd, f := range t.fds {
		if f == nil {
			return fd, nil
		}
	}
	return -1, posix.EMFILE
}

// open resolves path in the in-memory filesystem, falling back to the host
// directory configured as RootPrefix for read-only access.
func (k *Kernel) open(t *task, path string, flags int) (int, error) {
	fd, err := freeFd(t)
	if err != nil {
		return -1, err
	}
	write := flags&models.O_ACCMODE != models.O_RDONLY
	f := &file{flags: flags, refs: 1}
	ino, ok := k.files[path]
	switch {
	case ok:
		if f.canRead() && !ino.readable() || write && !ino.writable() {
			return -1, posix.EACCES
		}
		if ino.prog != nil && write {
			return -1, posix.EACCES
		}
		if write && flags&models.O_TRUNC != 0 && !ino.dev {
			ino.data = nil
		}
		f.ino = ino
	case flags&models.O_CREAT != 0:
		ino = &inode{path: path, mode: 0644}
		k.files[path] = ino
		f.ino = ino
	default:
		host := k.Config.PrefixPath(path, false)
		if host == "" {
			return -1, posix.ENOENT
		}
		if write {
			return -1, posix.EACCES
		}
		hf, err := os.Open(host)
		if err != nil {
			return -1, posix.ENOENT
		}
		f.host = hf
	}
	if f.ino != nil && f.ino.dev && t.session == t.pid && !t.tty {
		// a session leader opening the console acquires it
		t.tty = true
	}
	t.fds[fd] = f
	return fd, nil
}

func (k *Kernel) closeFd(t *task, fd int) error {
	f, err := k.getFd(t, fd)
	if err != nil {
		return err
	}
	t.fds[fd] = nil
	f.refs--
	if f.refs == 0 && f.host != nil {
		f.host.Close()
	}
	return nil
}

func (k *Kernel) dup(t *task, fd int) (int, error) {
	f, err := k.getFd(t, fd)
	if err != nil {
		return -1, err
	}
	n, err := freeFd(t)
	if err != nil {
		return -1, err
	}
	f.refs++
	t.fds[n] = f
	return n, nil
}

// read is called with k.mu held. Console reads drop the lock while blocked.
func (k *Kernel) read(t *task, fd int, p []byte) (int, error) {
	f, err := k.getFd(t, fd)
	if err != nil {
		return -1, err
	}
	if !f.canRead() {
		return -1, posix.EBADF
	}
	switch {
	case f.host != nil:
		return f.host.Read(p)
	case f.ino.dev:
		if k.console == nil {
			return 0, io.EOF
		}
		k.setState(t, StateWaiting)
		k.mu.Unlock()
		n, err := k.console.Read(p)
		k.mu.Lock()
		if k.halted {
			k.mu.Unlock()
			runtime.Goexit()
		}
		k.setState(t, StateReady)
		k.setState(t, StateRunning)
		return n, err
	case f.ino.prog != nil:
		return -1, posix.EACCES
	default:
		if f.pos >= len(f.ino.data) {
			return 0, io.EOF
		}
		n := copy(p, f.ino.data[f.pos:])
		f.pos += n
		return n, nil
	}
}

func (k *Kernel) write(t *task, fd int, p []byte) (int, error) {
	f, err := k.getFd(t, fd)
	if err != nil {
		return -1, err
	}
	if !f.canWrite() || f.host != nil {
		return -1, posix.EBADF
	}
	if f.ino.dev {
		if k.console == nil {
			return len(p), nil
		}
		return k.console.Write(p)
	}
	if f.flags&models.O_APPEND != 0 {
		f.pos = len(f.ino.data)
	}
	if end := f.pos + len(p); end > len(f.ino.data) {
		grown := make([]byte, end)
		copy(grown, f.ino.data)
		f.ino.data = grown
	}
	copy(f.ino.data[f.pos:], p)
	f.pos += len(p)
	return len(p), nil
}

// exec looks up an executable image.
func (k *Kernel) exec(path string) (models.Program, error) {
	ino, ok := k.files[path]
	if !ok {
		if k.Config.PrefixPath(path, false) != "" {
			return nil, posix.ENOEXEC
		}
		return nil, posix.ENOENT
	}
	if !ino.executable() {
		return nil, posix.EACCES
	}
	if ino.prog == nil {
		return nil, posix.ENOEXEC
	}
	return ino.prog, nil
}
