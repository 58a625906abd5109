package boot

import (
	"github.com/pkg/errors"

	"github.com/lunixbochs/bootcorn/go/klog"
	"github.com/lunixbochs/bootcorn/go/models"
)

// Step is one subsystem initializer. After lists the steps that must have
// completed first. A step that may fault can only run once trap vectors are
// installed.
type Step struct {
	Name     string
	After    []string
	MayFault bool
	Run      func(ini *Initializer) error
}

const trapStep = "trap"

var (
	memStep = Step{Name: "mem", Run: func(ini *Initializer) error {
		return ini.Machine().MemInit(ini.Layout.MainMemoryStart, ini.Layout.MemoryEnd)
	}}
	ramdiskStep = Step{Name: "ramdisk", After: []string{"mem"}, Run: func(ini *Initializer) error {
		n, err := ini.Machine().RamdiskInit(ini.Layout.BufferMemoryEnd, ini.Layout.Ramdisk())
		ini.Ramdisk = n
		return err
	}}
	coreSteps = []Step{
		{Name: trapStep, After: []string{"mem"}, Run: func(ini *Initializer) error {
			return ini.Machine().TrapInit()
		}},
		{Name: "blk_dev", After: []string{trapStep}, MayFault: true, Run: func(ini *Initializer) error {
			return ini.Machine().BlkDevInit()
		}},
		{Name: "chr_dev", After: []string{trapStep}, MayFault: true, Run: func(ini *Initializer) error {
			return ini.Machine().ChrDevInit()
		}},
		{Name: "tty", After: []string{"chr_dev"}, MayFault: true, Run: func(ini *Initializer) error {
			return ini.Machine().TtyInit()
		}},
		// no real dependency on tty, kept after it so boot output is deterministic
		{Name: "time", After: []string{"tty"}, MayFault: true, Run: func(ini *Initializer) error {
			return ini.Machine().TimeInit()
		}},
		{Name: "sched", After: []string{trapStep}, MayFault: true, Run: func(ini *Initializer) error {
			return ini.Machine().SchedInit()
		}},
		{Name: "buffer", After: []string{"mem", "blk_dev"}, MayFault: true, Run: func(ini *Initializer) error {
			n, err := ini.Machine().BufferInit(ini.Layout.BufferMemoryEnd)
			ini.Buffers = n
			return err
		}},
		{Name: "hd", After: []string{"buffer"}, MayFault: true, Run: func(ini *Initializer) error {
			return ini.Machine().HdInit()
		}},
		{Name: "floppy", After: []string{"buffer"}, MayFault: true, Run: func(ini *Initializer) error {
			return ini.Machine().FloppyInit()
		}},
		{Name: stiStep, After: []string{"sched"}, MayFault: true, Run: func(ini *Initializer) error {
			ini.Machine().Sti()
			return nil
		}},
	}
)

const stiStep = "sti"

// Steps returns the boot step table. The ramdisk step is only present when
// a ramdisk is reserved.
func Steps(ramdisk bool) []Step {
	steps := []Step{memStep}
	if ramdisk {
		steps = append(steps, ramdiskStep)
	}
	return append(steps, coreSteps...)
}

// ValidateSteps checks that names are unique, every dependency runs earlier,
// and nothing that may fault runs before trap.
func ValidateSteps(steps []Step) error {
	seen := make(map[string]bool, len(steps))
	for i, s := range steps {
		if seen[s.Name] {
			return errors.Errorf("step %d: duplicate step %q", i, s.Name)
		}
		if s.MayFault && !seen[trapStep] {
			return errors.Errorf("step %q may fault before %q", s.Name, trapStep)
		}
		for _, dep := range s.After {
			if !seen[dep] {
				return errors.Errorf("step %q must run after %q", s.Name, dep)
			}
		}
		seen[s.Name] = true
	}
	return nil
}

// Initializer runs the step table once against the privileged machine.
type Initializer struct {
	Layout  models.MemoryLayout
	Buffers int
	Ramdisk uint64
	Log     *klog.Logger

	m     models.Machine
	steps []Step
	done  map[string]bool
	ran   bool
}

func NewInitializer(m models.Machine, layout models.MemoryLayout, steps []Step) *Initializer {
	return &Initializer{
		Layout: layout,
		m:      m,
		steps:  steps,
		done:   make(map[string]bool),
	}
}

// Machine returns the privileged machine handle. It panics once the
// bootstrap thread has left kernel mode.
func (i *Initializer) Machine() models.Machine {
	if i.m == nil {
		panic(models.ErrNotPrivileged)
	}
	return i.m
}

// Done reports whether the named step has completed.
func (i *Initializer) Done(name string) bool {
	return i.done[name]
}

// Complete reports whether every step in the table has run.
func (i *Initializer) Complete() bool {
	for _, s := range i.steps {
		if !i.done[s.Name] {
			return false
		}
	}
	return i.ran
}

// Run executes every step in order. It may only be called once. Any error is
// a *models.FatalBootError; there is no recovery.
func (i *Initializer) Run() error {
	if i.ran {
		panic("boot: subsystem initializer called twice")
	}
	i.ran = true
	if err := ValidateSteps(i.steps); err != nil {
		return &models.FatalBootError{Module: "init", Err: err}
	}
	for _, s := range i.steps {
		if i.Log != nil {
			i.Log.Debugf("init %s", s.Name)
		}
		if err := s.Run(i); err != nil {
			return &models.FatalBootError{Module: s.Name, Err: err}
		}
		i.done[s.Name] = true
	}
	return nil
}
