package models

// Open flags understood by Process.Open.
const (
	O_RDONLY  = 0
	O_WRONLY  = 1
	O_RDWR    = 2
	O_ACCMODE = 3
	O_CREAT   = 0100
	O_TRUNC   = 01000
	O_APPEND  = 02000
)

// Entry is where a forked child starts running. The child never returns
// into the frames of the process that forked it.
type Entry func(p Process)

// Program is an executable image. The return value is the exit code.
type Program func(p Process, argv, envp []string) int

// Process is the set of process-control primitives the kernel offers to a
// running process. Exit never returns, and neither does a successful Execve.
type Process interface {
	Getpid() int
	Fork(entry Entry) (int, error)
	Execve(path string, argv, envp []string) error
	Exit(code int)
	// Wait blocks until any child terminates and reaps it.
	Wait() (int, WaitStatus, error)

	Open(path string, flags int) (int, error)
	Close(fd int) error
	Dup(fd int) (int, error)
	Read(fd int, p []byte) (int, error)
	Write(fd int, p []byte) (int, error)

	Setsid() (int, error)
	Sync() error
	// Pause suspends the caller until a signal arrives.
	Pause()
}

// IdleProcess is the capability held by process 0 once the bootstrap thread
// has dropped privilege. Fork may be used exactly once.
type IdleProcess interface {
	Getpid() int
	Fork(entry Entry) (int, error)
	// Idle returns as soon as the scheduler finds nothing else to run.
	Idle()
}

// Setupper is implemented by processes that can perform the one-time root
// device setup from the boot drive parameters.
type Setupper interface {
	Setup(driveInfo [32]byte) error
}

// Identity is the companion set/get identity interface.
type Identity interface {
	Iam(name string) (int, error)
	Whoami(buf []byte) (int, error)
}

// Machine is the privileged surface used by the bootstrap thread. Every
// method is one-shot. Halt never returns.
type Machine interface {
	MemInit(start, end uint64) error
	RamdiskInit(start, length uint64) (uint64, error)
	TrapInit() error
	BlkDevInit() error
	ChrDevInit() error
	TtyInit() error
	TimeInit() error
	SchedInit() error
	// BufferInit sets up the buffer cache below end and returns the number of buffers.
	BufferInit(end uint64) (int, error)
	HdInit() error
	FloppyInit() error
	Sti()

	MoveToUserMode() (IdleProcess, error)
	Halt()
}

// FdWriter writes to a file descriptor of a process.
type FdWriter struct {
	P  Process
	Fd int
}

func (f FdWriter) Write(b []byte) (int, error) {
	return f.P.Write(f.Fd, b)
}

// FdReader reads from a file descriptor of a process.
type FdReader struct {
	P  Process
	Fd int
}

func (f FdReader) Read(b []byte) (int, error) {
	return f.P.Read(f.Fd, b)
}

// ProcInfo is one row of a process listing.
type ProcInfo struct {
	Pid, Ppid int
	Session   int
	State     byte
}

// ProcLister is implemented by processes that can list the process table.
type ProcLister interface {
	Procs() []ProcInfo
}
