// Package vkernel is a simulated machine and process model. It implements
// the privileged boot surface and the process primitives the boot core and
// init run on, with every process on its own goroutine.
package vkernel

import (
	"bufio"
	"io"
	"io/ioutil"
	"sync"

	"github.com/lunixbochs/bootcorn/go/klog"
	"github.com/lunixbochs/bootcorn/go/models"
	"github.com/lunixbochs/bootcorn/go/models/trace"
)

// Kernel is a simulated machine. Create it with New, hand it to boot.Main
// and wait on Done.
type Kernel struct {
	Config *models.Config
	Log    *klog.Logger

	mu   sync.Mutex
	cond *sync.Cond

	privileged bool
	steps      map[string]bool
	order      []string
	interrupts bool
	halted     bool
	haltCalled bool
	done       chan struct{}
	jiffies    uint64
	events     uint64
	idles      int

	memStart, memEnd uint64
	ramdisk          uint64
	buffers          int

	tasks   map[int]*task
	lastPid int
	task0   *task

	files   map[string]*inode
	console io.ReadWriter

	setupDone bool
	drives    [2]models.DriveParams
	ident     string
	syncs     int

	trace   *trace.TraceWriter
	procLog *bufio.Writer
	procW   io.Closer
	hooks   []models.SysHook
}

// New builds a powered-on machine in kernel mode. console backs /dev/tty0.
func New(config *models.Config, console io.ReadWriter) *Kernel {
	if config == nil {
		config = models.NewConfig()
	}
	k := &Kernel{
		Config:     config,
		Log:        klog.New(ioutil.Discard),
		privileged: true,
		steps:      make(map[string]bool),
		done:       make(chan struct{}),
		tasks:      make(map[int]*task),
		files:      make(map[string]*inode),
		console:    console,
	}
	k.cond = sync.NewCond(&k.mu)
	k.files[config.Console] = &inode{path: config.Console, mode: 0666, dev: true}
	if config.RcScript != "" {
		k.WriteFile(config.Rc, []byte(config.RcScript), 0644)
	}
	return k
}

// Install registers an executable image at path.
func (k *Kernel) Install(path string, prog models.Program) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.files[path] = &inode{path: path, mode: 0755, prog: prog}
}

// WriteFile creates or replaces a regular file.
func (k *Kernel) WriteFile(path string, data []byte, mode uint32) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.files[path] = &inode{path: path, mode: mode, data: append([]byte(nil), data...)}
}

// ReadFile returns a copy of a regular file's contents.
func (k *Kernel) ReadFile(path string) ([]byte, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	ino, ok := k.files[path]
	if !ok || ino.dev || ino.prog != nil {
		return nil, false
	}
	return append([]byte(nil), ino.data...), true
}

// Done is closed when the machine halts.
func (k *Kernel) Done() <-chan struct{} {
	return k.done
}

// Steps returns the subsystem initializers run so far, in order.
func (k *Kernel) Steps() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]string(nil), k.order...)
}

// Syncs is the number of sync calls so far.
func (k *Kernel) Syncs() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.syncs
}

// Ident returns the name stored by iam.
func (k *Kernel) Ident() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.ident
}

// Shutdown halts the machine from outside. Blocked processes unwind; the
// trace and process log are flushed and closed.
func (k *Kernel) Shutdown() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.halted {
		return
	}
	k.halted = true
	close(k.done)
	k.cond.Broadcast()
	if k.trace != nil {
		if err := k.trace.Close(); err != nil {
			k.Log.Errorf("trace: %v", err)
		}
		k.trace = nil
	}
	if k.procLog != nil {
		k.procLog.Flush()
		if k.procW != nil {
			k.procW.Close()
		}
		k.procLog = nil
	}
}
