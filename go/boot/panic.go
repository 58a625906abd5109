package boot

import (
	"github.com/lunixbochs/bootcorn/go/klog"
	"github.com/lunixbochs/bootcorn/go/models"
)

// Panic prints err to the kernel log and halts the machine. Halt does not
// return on a real machine; if it does, so does Panic.
func Panic(m models.Machine, log *klog.Logger, err error) {
	module := "kernel"
	msg := "unknown cause"
	if e, ok := err.(*models.FatalBootError); ok {
		module = e.Module
		if e.Err != nil {
			msg = e.Err.Error()
		}
	} else if err != nil {
		msg = err.Error()
	}
	if log != nil {
		log.Printf("\n-----------------------------------\n")
		log.Printf("[%s] unrecoverable error: %s\n", module, msg)
		log.Printf("*** kernel panic: system halted ***")
		log.Printf("\n-----------------------------------\n")
	}
	m.Halt()
}
