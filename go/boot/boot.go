// Package boot is the early-boot sequence: plan memory, run the subsystem
// initializers, leave kernel mode and fork init.
package boot

import (
	"io/ioutil"

	"github.com/lunixbochs/bootcorn/go/klog"
	"github.com/lunixbochs/bootcorn/go/models"
)

type Options struct {
	RamdiskKB uint32
	Log       *klog.Logger
}

// State is what the boot sequence hands to init. It is read-only.
type State struct {
	Info    models.BootInfo
	Layout  models.MemoryLayout
	Buffers int
}

// Main runs the boot sequence on m. info must have been captured before
// anything else touched the machine. newInit builds the entry point of
// process 1. Main does not return unless the machine's Halt does.
func Main(m models.Machine, info models.BootInfo, opt Options, newInit func(*State) models.Entry) {
	log := opt.Log
	if log == nil {
		log = klog.New(ioutil.Discard)
	}
	layout := PlanMemory(uint32(info.ExtMemKB), opt.RamdiskKB)
	log.Debugf("%s", layout)

	ini := NewInitializer(m, layout, Steps(layout.Ramdisk() > 0))
	ini.Log = log
	if err := ini.Run(); err != nil {
		Panic(m, log, err)
		return
	}
	if ini.Ramdisk > 0 {
		log.Printf("%d bytes ramdisk\n", ini.Ramdisk)
	}
	state := &State{Info: info, Layout: layout, Buffers: ini.Buffers}

	task0, err := MoveToUserMode(ini)
	if err != nil {
		Panic(m, log, err)
		return
	}
	Spawn(task0, newInit(state), func(err error) {
		Panic(m, log, err)
	})
}
