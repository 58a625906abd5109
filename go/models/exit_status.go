package models

import "fmt"

type ExitStatus int

func (e ExitStatus) Error() string {
	return fmt.Sprintf("exit %d", e)
}

// WaitStatus is the packed status returned by Wait: the exit code lives in
// bits 8-15, like the classic wait(2) encoding.
type WaitStatus int

// Exited builds the status of a process that exited with code.
func Exited(code int) WaitStatus {
	return WaitStatus((code & 0xff) << 8)
}

func (w WaitStatus) ExitCode() int {
	return (int(w) >> 8) & 0xff
}

func (w WaitStatus) String() string {
	return fmt.Sprintf("%04x", int(w))
}
