package boot

import (
	"github.com/pkg/errors"

	"github.com/lunixbochs/bootcorn/go/models"
)

// Spawn performs the single bootstrap fork. The child starts directly at
// entry; the caller becomes the idle process and never returns. A fork
// failure is handed to fatal, and Spawn returns only if fatal does.
//
// The caller must hold no state it expects to survive the fork: the child
// shares nothing with this stack.
func Spawn(task0 models.IdleProcess, entry models.Entry, fatal func(error)) {
	if _, err := task0.Fork(entry); err != nil {
		fatal(&models.FatalBootError{Module: "fork", Err: errors.Wrap(err, "cannot create init")})
		return
	}
	for {
		task0.Idle()
	}
}
