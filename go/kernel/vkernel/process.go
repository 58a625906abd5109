package vkernel

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/lunixbochs/bootcorn/go/kernel/posix"
	"github.com/lunixbochs/bootcorn/go/models"
)

// Proc is the system call interface of one process.
type Proc struct {
	k *Kernel
	t *task
}

var (
	_ models.Process  = &Proc{}
	_ models.Identity = &Proc{}
	_ models.Setupper = &Proc{}
)

// Kernel returns the machine the process runs on.
func (p *Proc) Kernel() *Kernel { return p.k }

func (p *Proc) Getpid() int {
	p.k.enter()
	p.k.leave(p.t, "getpid", uint64(p.t.pid), "")
	return p.t.pid
}

// Getppid returns the parent pid.
func (p *Proc) Getppid() int {
	p.k.enter()
	ppid := p.t.ppid
	p.k.leave(p.t, "getppid", uint64(ppid), "")
	return ppid
}

func (p *Proc) Fork(entry models.Entry) (int, error) {
	k := p.k
	k.enter()
	child, err := k.fork(p.t)
	if err != nil {
		k.leave(p.t, "fork", posix.Ret(-1, err), "")
		return -1, err
	}
	k.leave(p.t, "fork", uint64(child.pid), "")
	k.start(child, entry)
	return child.pid, nil
}

func (p *Proc) Execve(path string, argv, envp []string) error {
	k := p.k
	k.enter()
	prog, err := k.exec(path)
	desc := fmt.Sprintf("%s [%s]", path, strings.Join(argv, " "))
	k.leave(p.t, "execve", posix.Ret(0, err), desc)
	if err != nil {
		return err
	}
	p.Exit(prog(p, append([]string(nil), argv...), append([]string(nil), envp...)))
	return nil
}

func (p *Proc) Exit(code int) {
	k := p.k
	k.enter()
	k.exit(p.t, code)
	k.leave(p.t, "exit", 0, "", uint64(code))
	runtime.Goexit()
}

// Wait blocks until a child exits and reaps it.
func (p *Proc) Wait() (int, models.WaitStatus, error) {
	k := p.k
	k.enter()
	for {
		zombie, children := k.reap(p.t)
		if zombie != nil {
			status := models.Exited(zombie.code)
			k.leave(p.t, "waitpid", uint64(zombie.pid), status.String())
			return zombie.pid, status, nil
		}
		if !children {
			k.leave(p.t, "waitpid", posix.Ret(-1, posix.ECHILD), "")
			return -1, 0, posix.ECHILD
		}
		k.block(p.t, func() bool { return k.waitable(p.t) })
	}
}

func (p *Proc) Open(path string, flags int) (int, error) {
	k := p.k
	k.enter()
	fd, err := k.open(p.t, path, flags)
	k.leave(p.t, "open", posix.Ret(fd, err), path, uint64(flags))
	return fd, err
}

func (p *Proc) Close(fd int) error {
	k := p.k
	k.enter()
	err := k.closeFd(p.t, fd)
	k.leave(p.t, "close", posix.Ret(0, err), "", uint64(fd))
	return err
}

func (p *Proc) Dup(fd int) (int, error) {
	k := p.k
	k.enter()
	n, err := k.dup(p.t, fd)
	k.leave(p.t, "dup", posix.Ret(n, err), "", uint64(fd))
	return n, err
}

// Read returns io.EOF at end of file.
func (p *Proc) Read(fd int, b []byte) (int, error) {
	k := p.k
	k.enter()
	n, err := k.read(p.t, fd, b)
	ret := posix.Ret(n, err)
	if err == io.EOF {
		ret = 0
	}
	k.leave(p.t, "read", ret, "", uint64(fd), uint64(len(b)))
	return n, err
}

func (p *Proc) Write(fd int, b []byte) (int, error) {
	k := p.k
	k.enter()
	n, err := k.write(p.t, fd, b)
	k.leave(p.t, "write", posix.Ret(n, err), "", uint64(fd), uint64(len(b)))
	return n, err
}

// Setsid fails for a process that already leads a process group.
func (p *Proc) Setsid() (int, error) {
	k := p.k
	k.enter()
	t := p.t
	if t.pgrp == t.pid {
		k.leave(t, "setsid", posix.Ret(-1, posix.EPERM), "")
		return -1, posix.EPERM
	}
	t.pgrp = t.pid
	t.session = t.pid
	t.tty = false
	k.leave(t, "setsid", uint64(t.pid), "")
	return t.pid, nil
}

// Sync flushes the trace and the process log.
func (p *Proc) Sync() error {
	k := p.k
	k.enter()
	k.syncs++
	var err error
	if k.trace != nil {
		err = k.trace.Flush()
	}
	if k.procLog != nil {
		if e := k.procLog.Flush(); err == nil {
			err = e
		}
	}
	k.leave(p.t, "sync", 0, "")
	return err
}

// Pause sleeps until a signal arrives. Nothing here sends signals, so it
// only returns by unwinding when the machine halts.
func (p *Proc) Pause() {
	k := p.k
	k.enter()
	k.syscall(p.t, "pause", 0, "")
	k.block(p.t, func() bool { return false })
}
