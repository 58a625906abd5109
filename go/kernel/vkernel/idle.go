package vkernel

import (
	"runtime"

	"github.com/lunixbochs/bootcorn/go/kernel/posix"
	"github.com/lunixbochs/bootcorn/go/models"
)

// Idle is task 0 after the move to user mode.
type Idle struct {
	k      *Kernel
	t      *task
	forked bool
	seen   uint64
}

var _ models.IdleProcess = &Idle{}

func (i *Idle) Getpid() int { return 0 }

// Fork works once: task 0 can only create init.
func (i *Idle) Fork(entry models.Entry) (int, error) {
	k := i.k
	k.enter()
	if i.forked {
		k.leave(i.t, "fork", posix.Ret(-1, posix.EPERM), "")
		return -1, posix.EPERM
	}
	i.forked = true
	child, err := k.fork(i.t)
	if err != nil {
		k.leave(i.t, "fork", posix.Ret(-1, err), "")
		return -1, err
	}
	k.leave(i.t, "fork", uint64(child.pid), "")
	k.start(child, entry)
	return child.pid, nil
}

// Idle returns once nothing else is runnable. Each return corresponds to a
// new quiet point, so the idle loop doesn't spin while every process is
// blocked.
func (i *Idle) Idle() {
	k := i.k
	k.mu.Lock()
	for !k.halted && (k.runnable() > 0 || k.events == i.seen) {
		k.cond.Wait()
	}
	if k.halted {
		k.mu.Unlock()
		runtime.Goexit()
	}
	i.seen = k.events
	k.idles++
	k.jiffies++
	k.mu.Unlock()
}

// Idles counts returns from Idle.
func (k *Kernel) Idles() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.idles
}
