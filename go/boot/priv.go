package boot

import (
	"github.com/pkg/errors"

	"github.com/lunixbochs/bootcorn/go/models"
)

// MoveToUserMode drops the bootstrap thread out of kernel mode and returns
// the process-0 capability. The initializer's machine handle is revoked, so
// any later privileged call panics with models.ErrNotPrivileged.
func MoveToUserMode(ini *Initializer) (models.IdleProcess, error) {
	if !ini.Complete() {
		return nil, &models.FatalBootError{Module: "usermode", Err: errors.New("subsystem initialization incomplete")}
	}
	if !ini.Done(stiStep) {
		return nil, &models.FatalBootError{Module: "usermode", Err: errors.New("interrupts disabled")}
	}
	m := ini.Machine()
	ini.m = nil
	task0, err := m.MoveToUserMode()
	if err != nil {
		return nil, &models.FatalBootError{Module: "usermode", Err: err}
	}
	return task0, nil
}
