package models

import (
	"fmt"

	"github.com/pkg/errors"
)

// Exit codes of the command-script child.
const (
	ExitRcOpen = 1
	ExitRcExec = 2
)

var ErrNotPrivileged = errors.New("privileged operation after leaving kernel mode")

// FatalBootError is an unrecoverable failure during bootstrap.
type FatalBootError struct {
	// Step or module that failed.
	Module string
	Err    error
}

func (e *FatalBootError) Error() string {
	return fmt.Sprintf("[%s] %v", e.Module, e.Err)
}

func (e *FatalBootError) Cause() error {
	return e.Err
}
