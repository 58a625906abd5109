package mock

import (
	"runtime"
	"sync"

	"github.com/lunixbochs/bootcorn/go/kernel/posix"
	"github.com/lunixbochs/bootcorn/go/models"
)

// Machine records privileged calls in order. Halt unwinds the caller.
type Machine struct {
	// Fail makes the named call return an error.
	Fail    map[string]error
	Buffers int
	Task0   *Idle

	mu     sync.Mutex
	calls  []string
	user   bool
	halted bool
}

var _ models.Machine = &Machine{}

func NewMachine(w *World) *Machine {
	return &Machine{
		Fail:    make(map[string]error),
		Buffers: 1000,
		Task0:   &Idle{W: w},
	}
}

func (m *Machine) call(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user {
		panic(models.ErrNotPrivileged)
	}
	m.calls = append(m.calls, name)
	return m.Fail[name]
}

func (m *Machine) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *Machine) Halted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.halted
}

func (m *Machine) MemInit(start, end uint64) error { return m.call("mem") }
func (m *Machine) RamdiskInit(start, length uint64) (uint64, error) {
	if err := m.call("ramdisk"); err != nil {
		return 0, err
	}
	return length, nil
}
func (m *Machine) TrapInit() error   { return m.call("trap") }
func (m *Machine) BlkDevInit() error { return m.call("blk_dev") }
func (m *Machine) ChrDevInit() error { return m.call("chr_dev") }
func (m *Machine) TtyInit() error    { return m.call("tty") }
func (m *Machine) TimeInit() error   { return m.call("time") }
func (m *Machine) SchedInit() error  { return m.call("sched") }
func (m *Machine) BufferInit(end uint64) (int, error) {
	if err := m.call("buffer"); err != nil {
		return 0, err
	}
	return m.Buffers, nil
}
func (m *Machine) HdInit() error     { return m.call("hd") }
func (m *Machine) FloppyInit() error { return m.call("floppy") }
func (m *Machine) Sti()              { m.call("sti") }

func (m *Machine) MoveToUserMode() (models.IdleProcess, error) {
	if err := m.call("usermode"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.user = true
	m.mu.Unlock()
	return m.Task0, nil
}

func (m *Machine) Halt() {
	m.mu.Lock()
	m.calls = append(m.calls, "halt")
	m.halted = true
	m.mu.Unlock()
	runtime.Goexit()
}

// Idle is a process-0 capability. Its single fork starts the child as pid 1
// in W.
type Idle struct {
	W       *World
	ForkErr error
	// MaxIdle unwinds the idle loop after this many calls.
	MaxIdle int
	// Child is set once the fork succeeds.
	Child *Process

	mu     sync.Mutex
	forked bool
	idles  int
}

var _ models.IdleProcess = &Idle{}

func (i *Idle) Getpid() int { return 0 }

func (i *Idle) Fork(entry models.Entry) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.forked {
		return -1, posix.EPERM
	}
	i.forked = true
	if i.ForkErr != nil {
		return -1, i.ForkErr
	}
	i.Child = i.W.NewProcess(1)
	go entry(i.Child)
	return 1, nil
}

func (i *Idle) Idle() {
	i.mu.Lock()
	i.idles++
	done := i.MaxIdle > 0 && i.idles >= i.MaxIdle
	i.mu.Unlock()
	if done {
		runtime.Goexit()
	}
	runtime.Gosched()
}

func (i *Idle) Idles() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.idles
}
