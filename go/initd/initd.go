// Package initd is process 1: it runs /etc/rc once and then keeps a login
// shell alive on the console forever.
package initd

import (
	"github.com/lunixbochs/bootcorn/go/boot"
	"github.com/lunixbochs/bootcorn/go/kernel/posix"
	"github.com/lunixbochs/bootcorn/go/klog"
	"github.com/lunixbochs/bootcorn/go/models"
)

// BlockSize is the size of one buffer cache block.
const BlockSize = 1024

type Supervisor struct {
	Console    string
	Rc         string
	RcShell    models.ShellConfig
	LoginShell models.ShellConfig

	State *boot.State
	// Log receives host-side debug lines. Console output goes to fd 1.
	Log *klog.Logger
}

func New(state *boot.State, config *models.Config) *Supervisor {
	return &Supervisor{
		Console:    config.Console,
		Rc:         config.Rc,
		RcShell:    config.RcShell,
		LoginShell: config.LoginShell,
		State:      state,
	}
}

// Entry is the process 1 entry point handed to the bootstrap fork.
func (s *Supervisor) Entry() models.Entry {
	return s.Run
}

func (s *Supervisor) debugf(format string, args ...interface{}) {
	if s.Log != nil {
		s.Log.Debugf(format, args...)
	}
}

func console(p models.Process) *klog.Logger {
	return klog.New(models.FdWriter{P: p, Fd: 1})
}

// openConsole makes fds 0, 1 and 2 all refer to the console.
func (s *Supervisor) openConsole(p models.Process) {
	p.Open(s.Console, models.O_RDWR)
	p.Dup(0)
	p.Dup(0)
}

// Run is the body of process 1. There is no exit path: after the command
// script it respawns the login shell forever.
func (s *Supervisor) Run(p models.Process) {
	if su, ok := p.(models.Setupper); ok {
		if err := su.Setup(s.State.Info.DriveInfo); err != nil {
			s.debugf("setup: %v", err)
		}
	}
	s.openConsole(p)
	out := console(p)
	out.Printf("%d buffers = %d bytes buffer space\n\r", s.State.Buffers, s.State.Buffers*BlockSize)
	out.Printf("Free mem: %d bytes\n\r", s.State.Layout.FreeMemory())

	s.runCommands(p)
	for {
		s.respawn(p, out)
	}
}

// runCommands runs the rc script and waits for exactly that child.
func (s *Supervisor) runCommands(p models.Process) {
	pid, err := p.Fork(s.rcChild)
	if err != nil {
		s.debugf("rc fork: %v", err)
		return
	}
	for {
		wpid, status, err := p.Wait()
		if err != nil {
			if posix.Is(err, posix.ECHILD) {
				return
			}
			continue
		}
		if wpid == pid {
			s.debugf("rc %d exited %s", pid, status)
			return
		}
	}
}

func (s *Supervisor) rcChild(p models.Process) {
	p.Close(0)
	// the script has to land on stdin
	if fd, err := p.Open(s.Rc, models.O_RDONLY); err != nil || fd != 0 {
		p.Exit(models.ExitRcOpen)
		return
	}
	argv, envp := s.RcShell.Args()
	p.Execve(s.RcShell.Path, argv, envp)
	p.Exit(models.ExitRcExec)
}

// respawn is one iteration of the supervision loop: start a login shell,
// wait for it and log how it died.
func (s *Supervisor) respawn(p models.Process, out *klog.Logger) {
	pid, err := p.Fork(s.loginChild)
	if err != nil {
		out.Printf("Fork failed in init\r\n")
		return
	}
	s.debugf("login shell %d", pid)
	for {
		wpid, status, err := p.Wait()
		if err == nil && wpid == pid {
			out.Printf("\n\rchild %d died with code %s\n\r", pid, status)
			break
		}
		// orphans reparented to init are reaped and dropped here
		if err != nil && posix.Is(err, posix.ECHILD) {
			break
		}
	}
	p.Sync()
}

func (s *Supervisor) loginChild(p models.Process) {
	p.Close(0)
	p.Close(1)
	p.Close(2)
	p.Setsid()
	s.openConsole(p)
	argv, envp := s.LoginShell.Args()
	err := p.Execve(s.LoginShell.Path, argv, envp)
	p.Exit(posix.Code(err))
}
