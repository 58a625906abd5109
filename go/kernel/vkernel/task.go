package vkernel

import (
	"fmt"
	"runtime"
	"sort"

	"github.com/lunixbochs/bootcorn/go/kernel/posix"
	"github.com/lunixbochs/bootcorn/go/models"
	"github.com/lunixbochs/bootcorn/go/models/trace"
)

// Process states, as written to the process log.
const (
	StateNew     = 'N'
	StateReady   = 'J'
	StateRunning = 'R'
	StateWaiting = 'W'
	StateExited  = 'E'
)

// NR_OPEN is the size of a process's fd table.
const NR_OPEN = 20

type task struct {
	pid, ppid     int
	pgrp, session int
	// tty is set while the process has a controlling terminal
	tty   bool
	state byte
	code  int
	fds   [NR_OPEN]*file
}

// setState must be called with k.mu held. Sleepers are woken when a task
// exits or when the last runnable task stops, the only changes Wait and
// Idle look for.
func (k *Kernel) setState(t *task, state byte) {
	if t.state == state {
		return
	}
	t.state = state
	k.events++
	if k.procLog != nil {
		fmt.Fprintf(k.procLog, "%d\t%c\t%d\n", t.pid, state, k.jiffies)
	}
	if state == StateExited || k.runnable() == 0 {
		k.cond.Broadcast()
	}
}

// runnable counts processes other than task 0 that could use the CPU.
func (k *Kernel) runnable() int {
	n := 0
	for _, t := range k.tasks {
		if t.pid != 0 && (t.state == StateReady || t.state == StateRunning) {
			n++
		}
	}
	return n
}

// enter starts a system call. Calls made after the machine halted unwind the
// calling process.
func (k *Kernel) enter() {
	k.mu.Lock()
	if k.halted {
		k.mu.Unlock()
		runtime.Goexit()
	}
	k.jiffies++
}

// block sleeps until ready reports true. The caller holds k.mu. Wakeups
// that leave ready false don't touch t's state.
func (k *Kernel) block(t *task, ready func() bool) {
	k.setState(t, StateWaiting)
	for !k.halted && !ready() {
		k.cond.Wait()
	}
	if k.halted {
		k.mu.Unlock()
		runtime.Goexit()
	}
	k.setState(t, StateReady)
	k.setState(t, StateRunning)
}

// waitable reports whether Wait on t would return now: a child has exited
// or there are no children left.
func (k *Kernel) waitable(t *task) bool {
	children := false
	for _, c := range k.tasks {
		if c.ppid == t.pid && c != t {
			if c.state == StateExited {
				return true
			}
			children = true
		}
	}
	return !children
}

func (k *Kernel) nextPid() int {
	for {
		k.lastPid++
		if k.lastPid < 0 {
			k.lastPid = 1
		}
		if _, used := k.tasks[k.lastPid]; !used {
			return k.lastPid
		}
	}
}

// fork copies parent into a new ready task.
func (k *Kernel) fork(parent *task) (*task, error) {
	if len(k.tasks) >= k.Config.MaxProcs {
		return nil, posix.EAGAIN
	}
	child := &task{
		pid:     k.nextPid(),
		ppid:    parent.pid,
		pgrp:    parent.pgrp,
		session: parent.session,
		tty:     parent.tty,
		fds:     parent.fds,
	}
	for _, f := range child.fds {
		if f != nil {
			f.refs++
		}
	}
	k.tasks[child.pid] = child
	k.setState(child, StateNew)
	k.setState(child, StateReady)
	return child, nil
}

// start runs entry as t on a new goroutine. A process that returns from its
// entry point exits with status 0.
func (k *Kernel) start(t *task, entry models.Entry) {
	go func() {
		k.mu.Lock()
		if k.halted {
			k.mu.Unlock()
			return
		}
		k.setState(t, StateRunning)
		k.mu.Unlock()
		defer func() {
			k.mu.Lock()
			if !k.halted && t.state != StateExited {
				k.exit(t, 0)
			}
			k.mu.Unlock()
		}()
		entry(&Proc{k: k, t: t})
	}()
}

// exit releases t's files, hands its children to init and leaves a zombie
// for the parent to reap.
func (k *Kernel) exit(t *task, code int) {
	for fd := range t.fds {
		k.closeFd(t, fd)
	}
	for _, c := range k.tasks {
		if c.ppid == t.pid {
			c.ppid = 1
		}
	}
	t.code = code
	k.setState(t, StateExited)
	if k.trace != nil {
		k.trace.Pack(&trace.OpExit{Pid: uint32(t.pid), Status: uint32(models.Exited(code))})
	}
	if t.pid == 1 {
		k.Log.Errorf("init exited with code %d", code)
	}
}

// reap finds a zombie child of t, lowest pid first.
func (k *Kernel) reap(t *task) (zombie *task, children bool) {
	var pids []int
	for pid, c := range k.tasks {
		if c.ppid == t.pid && c != t {
			pids = append(pids, pid)
		}
	}
	sort.Ints(pids)
	for _, pid := range pids {
		if c := k.tasks[pid]; c.state == StateExited {
			delete(k.tasks, pid)
			return c, true
		}
	}
	return nil, len(pids) > 0
}

// Procs lists the process table.
func (p *Proc) Procs() []models.ProcInfo {
	k := p.k
	k.enter()
	out := make([]models.ProcInfo, 0, len(k.tasks))
	for _, t := range k.tasks {
		out = append(out, models.ProcInfo{Pid: t.pid, Ppid: t.ppid, Session: t.session, State: t.state})
	}
	k.leave(p.t, "ps", uint64(len(out)), "")
	return out
}
