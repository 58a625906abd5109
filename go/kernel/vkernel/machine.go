package vkernel

import (
	"runtime"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bootcorn/go/kernel/posix"
	"github.com/lunixbochs/bootcorn/go/models"
	"github.com/lunixbochs/bootcorn/go/models/trace"
)

var _ models.Machine = &Kernel{}

const (
	blockSize  = 1024
	bufferHead = 36
	// video and BIOS memory, never used for buffers
	holeStart = 640 * models.KB
	holeEnd   = models.MB
)

// step marks a one-shot initializer as done. deps must already have run.
func (k *Kernel) step(name string, deps ...string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.privileged {
		panic(models.ErrNotPrivileged)
	}
	if k.steps[name] {
		return errors.Errorf("%s: already initialized", name)
	}
	for _, dep := range deps {
		if !k.steps[dep] {
			return errors.Errorf("%s: %s not initialized", name, dep)
		}
	}
	k.steps[name] = true
	k.order = append(k.order, name)
	if k.trace != nil {
		k.trace.Pack(&trace.OpBoot{Step: name})
	}
	k.Log.Debugf("%s_init", name)
	return nil
}

func (k *Kernel) MemInit(start, end uint64) error {
	if err := k.step("mem"); err != nil {
		return err
	}
	// paging starts on the next page boundary
	start = (start + models.PageSize - 1) &^ (models.PageSize - 1)
	if start > end || end > models.MaxMemory {
		return errors.Wrapf(posix.EINVAL, "mem_init(%#x, %#x)", start, end)
	}
	k.mu.Lock()
	k.memStart, k.memEnd = start, end
	k.mu.Unlock()
	return nil
}

func (k *Kernel) RamdiskInit(start, length uint64) (uint64, error) {
	if err := k.step("ramdisk", "mem"); err != nil {
		return 0, err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if start+length > k.memEnd {
		return 0, errors.Wrapf(posix.ENOMEM, "ramdisk at %#x", start)
	}
	k.ramdisk = length
	return length, nil
}

func (k *Kernel) TrapInit() error   { return k.step("trap") }
func (k *Kernel) BlkDevInit() error { return k.step("blk_dev", "trap") }
func (k *Kernel) ChrDevInit() error { return k.step("chr_dev", "trap") }
func (k *Kernel) TtyInit() error    { return k.step("tty", "chr_dev") }
func (k *Kernel) TimeInit() error   { return k.step("time", "tty") }
func (k *Kernel) HdInit() error     { return k.step("hd", "buffer") }
func (k *Kernel) FloppyInit() error { return k.step("floppy", "buffer") }

// SchedInit creates task 0.
func (k *Kernel) SchedInit() error {
	if err := k.step("sched", "trap"); err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.task0 = &task{pid: 0, state: StateRunning}
	k.tasks[0] = k.task0
	return nil
}

// BufferInit carves the buffer cache out of the memory between the end of
// the kernel and end: block data grows down from the top, heads grow up from
// the bottom, and the 640K-1M hole is skipped.
func (k *Kernel) BufferInit(end uint64) (int, error) {
	if err := k.step("buffer", "mem", "blk_dev"); err != nil {
		return 0, err
	}
	n := countBuffers(k.Config.KernelEnd, end)
	if n == 0 {
		return 0, errors.Wrapf(posix.ENOMEM, "no room for buffers below %#x", end)
	}
	k.mu.Lock()
	k.buffers = n
	k.mu.Unlock()
	return n, nil
}

func countBuffers(start, end uint64) int {
	b := int64(end)
	if end == holeEnd {
		b = holeStart
	}
	h := int64(start)
	n := 0
	for {
		b -= blockSize
		if b < h+bufferHead {
			break
		}
		h += bufferHead
		n++
		if b == holeEnd {
			b = holeStart
		}
	}
	return n
}

func (k *Kernel) Sti() {
	if err := k.step("sti", "sched"); err != nil {
		k.Log.Warnf("sti: %v", err)
		return
	}
	k.mu.Lock()
	k.interrupts = true
	k.mu.Unlock()
}

// MoveToUserMode drops privilege for good and returns the task 0 handle.
func (k *Kernel) MoveToUserMode() (models.IdleProcess, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.privileged {
		panic(models.ErrNotPrivileged)
	}
	if !k.interrupts {
		return nil, errors.New("move_to_user_mode with interrupts disabled")
	}
	if k.task0 == nil {
		return nil, errors.New("move_to_user_mode before sched_init")
	}
	k.privileged = false
	k.Log.Debugf("move_to_user_mode")
	return &Idle{k: k, t: k.task0}, nil
}

// Halt stops the machine and never returns to the caller.
func (k *Kernel) Halt() {
	k.mu.Lock()
	k.haltCalled = true
	k.mu.Unlock()
	k.Shutdown()
	runtime.Goexit()
}

// Halted reports whether the machine stopped itself through Halt, as
// opposed to an external Shutdown.
func (k *Kernel) Halted() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.haltCalled
}
