// Package mock provides scripted collaborators for testing the boot core and
// init. Exits and the end of a scripted run unwind the calling goroutine with
// runtime.Goexit, so use Run to drive code that never returns.
package mock

import (
	"bytes"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	"github.com/lunixbochs/bootcorn/go/kernel/posix"
	"github.com/lunixbochs/bootcorn/go/models"
)

// Run calls f on a new goroutine and waits until it returns or exits.
func Run(f func()) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		f()
	}()
	<-done
}

type Call struct {
	Pid  int
	Name string
	Args string
}

func (c Call) String() string {
	if c.Args == "" {
		return fmt.Sprintf("%d:%s", c.Pid, c.Name)
	}
	return fmt.Sprintf("%d:%s %s", c.Pid, c.Name, c.Args)
}

// World is the shared state of every mock process.
type World struct {
	// ForkErrs is consumed one entry per Fork; nil entries succeed.
	ForkErrs []error
	// OpenErrs fails Open for the given paths.
	OpenErrs map[string]error
	// Programs run on Execve. Paths without a program fail with ExecErr.
	Programs map[string]models.Program
	ExecErr  error
	// SyncLimit unwinds the syncing process after this many syncs.
	SyncLimit int

	mu      sync.Mutex
	calls   []Call
	out     bytes.Buffer
	nextPid int
	syncs   int
}

func NewWorld() *World {
	return &World{
		OpenErrs: make(map[string]error),
		Programs: make(map[string]models.Program),
		ExecErr:  posix.ENOENT,
		nextPid:  1,
	}
}

func (w *World) record(pid int, name string, format string, args ...interface{}) {
	w.mu.Lock()
	w.calls = append(w.calls, Call{Pid: pid, Name: name, Args: fmt.Sprintf(format, args...)})
	w.mu.Unlock()
}

// Calls returns the calls made so far, optionally filtered by name.
func (w *World) Calls(names ...string) []Call {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []Call
	for _, c := range w.calls {
		if len(names) == 0 {
			out = append(out, c)
			continue
		}
		for _, n := range names {
			if c.Name == n {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// CallsBy returns the calls made by pid.
func (w *World) CallsBy(pid int) []Call {
	var out []Call
	for _, c := range w.Calls() {
		if c.Pid == pid {
			out = append(out, c)
		}
	}
	return out
}

// Output is everything written to any fd.
func (w *World) Output() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.out.String()
}

func (w *World) Syncs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.syncs
}

// NewProcess creates a parentless process.
func (w *World) NewProcess(pid int) *Process {
	return &Process{w: w, pid: pid, reaped: make(chan reap, 64)}
}

type reap struct {
	pid    int
	status models.WaitStatus
}

type Process struct {
	w      *World
	pid    int
	fds    [20]bool
	status models.WaitStatus
	live   int
	reaped chan reap
}

var _ models.Process = &Process{}
var _ models.Setupper = &Process{}

func (p *Process) Getpid() int { return p.pid }

func (p *Process) Fork(entry models.Entry) (int, error) {
	w := p.w
	w.mu.Lock()
	if len(w.ForkErrs) > 0 {
		err := w.ForkErrs[0]
		w.ForkErrs = w.ForkErrs[1:]
		if err != nil {
			w.mu.Unlock()
			w.record(p.pid, "fork", "= %v", err)
			return -1, err
		}
	}
	w.nextPid++
	child := &Process{w: w, pid: w.nextPid, fds: p.fds, reaped: make(chan reap, 64)}
	p.live++
	w.mu.Unlock()
	w.record(p.pid, "fork", "= %d", child.pid)

	go func() {
		defer func() {
			p.reaped <- reap{child.pid, child.status}
		}()
		entry(child)
		child.status = models.Exited(0)
	}()
	return child.pid, nil
}

// Inject queues a terminated child the caller never forked.
func (p *Process) Inject(pid int, status models.WaitStatus) {
	p.w.mu.Lock()
	p.live++
	p.w.mu.Unlock()
	p.reaped <- reap{pid, status}
}

func (p *Process) Execve(path string, argv, envp []string) error {
	p.w.record(p.pid, "execve", "%s [%s] [%s]", path, strings.Join(argv, " "), strings.Join(envp, " "))
	p.w.mu.Lock()
	prog, ok := p.w.Programs[path]
	err := p.w.ExecErr
	p.w.mu.Unlock()
	if !ok {
		return err
	}
	p.Exit(prog(p, argv, envp))
	return nil
}

func (p *Process) Exit(code int) {
	p.w.record(p.pid, "exit", "%d", code)
	p.status = models.Exited(code)
	runtime.Goexit()
}

func (p *Process) Wait() (int, models.WaitStatus, error) {
	p.w.mu.Lock()
	if p.live == 0 {
		p.w.mu.Unlock()
		p.w.record(p.pid, "wait", "= %v", posix.ECHILD)
		return -1, 0, posix.ECHILD
	}
	p.w.mu.Unlock()
	r := <-p.reaped
	p.w.mu.Lock()
	p.live--
	p.w.mu.Unlock()
	p.w.record(p.pid, "wait", "= %d %s", r.pid, r.status)
	return r.pid, r.status, nil
}

func (p *Process) Open(path string, flags int) (int, error) {
	p.w.mu.Lock()
	err := p.w.OpenErrs[path]
	p.w.mu.Unlock()
	if err != nil {
		p.w.record(p.pid, "open", "%s = %v", path, err)
		return -1, err
	}
	for fd, used := range p.fds {
		if !used {
			p.fds[fd] = true
			p.w.record(p.pid, "open", "%s = %d", path, fd)
			return fd, nil
		}
	}
	return -1, posix.EMFILE
}

func (p *Process) Close(fd int) error {
	p.w.record(p.pid, "close", "%d", fd)
	if fd < 0 || fd >= len(p.fds) || !p.fds[fd] {
		return posix.EBADF
	}
	p.fds[fd] = false
	return nil
}

func (p *Process) Dup(fd int) (int, error) {
	if fd < 0 || fd >= len(p.fds) || !p.fds[fd] {
		return -1, posix.EBADF
	}
	for n, used := range p.fds {
		if !used {
			p.fds[n] = true
			p.w.record(p.pid, "dup", "%d = %d", fd, n)
			return n, nil
		}
	}
	return -1, posix.EMFILE
}

func (p *Process) Read(fd int, b []byte) (int, error) {
	return 0, io.EOF
}

func (p *Process) Write(fd int, b []byte) (int, error) {
	if fd < 0 || fd >= len(p.fds) || !p.fds[fd] {
		return -1, posix.EBADF
	}
	p.w.mu.Lock()
	defer p.w.mu.Unlock()
	return p.w.out.Write(b)
}

func (p *Process) Setsid() (int, error) {
	p.w.record(p.pid, "setsid", "")
	return p.pid, nil
}

func (p *Process) Sync() error {
	p.w.record(p.pid, "sync", "")
	p.w.mu.Lock()
	p.w.syncs++
	done := p.w.SyncLimit > 0 && p.w.syncs >= p.w.SyncLimit
	p.w.mu.Unlock()
	if done {
		runtime.Goexit()
	}
	return nil
}

// Pause unwinds the caller: nothing ever signals a mock process.
func (p *Process) Pause() {
	p.w.record(p.pid, "pause", "")
	runtime.Goexit()
}

func (p *Process) Setup(driveInfo [32]byte) error {
	p.w.record(p.pid, "setup", "%x", driveInfo[:4])
	return nil
}
