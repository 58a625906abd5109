package models

import "io"

// Op is one record of the kernel trace stream.
type Op interface {
	Sizeof() int
	Pack(p []byte)
	Unpack(r io.Reader) (int, error)
}

// SysHook observes every primitive a process invokes.
type SysHook func(pid int, name string, args []uint64, ret uint64, desc string)
