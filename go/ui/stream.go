package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lunixbochs/bootcorn/go/kernel/posix"
	"github.com/lunixbochs/bootcorn/go/kernel/vkernel"
	"github.com/lunixbochs/bootcorn/go/models"
	"github.com/lunixbochs/bootcorn/go/models/trace"
)

// StreamUI prints trace ops as strace-style lines.
type StreamUI struct {
	w io.Writer
	// Pid limits output to one process when non-zero.
	Pid int

	Syscalls, Exits int
}

func NewStreamUI(w io.Writer) *StreamUI {
	return &StreamUI{w: w}
}

func (s *StreamUI) Printf(f string, args ...interface{}) { fmt.Fprintf(s.w, f, args...) }

func (s *StreamUI) Feed(op models.Op) {
	switch o := op.(type) {
	case *trace.OpBoot:
		if s.Pid == 0 {
			s.Printf("boot: %s_init\n", o.Step)
		}
	case *trace.OpSyscall:
		if s.Pid == 0 || int(o.Pid) == s.Pid {
			s.Syscalls++
			s.sysPrint(o)
		}
	case *trace.OpExit:
		if s.Pid == 0 || int(o.Pid) == s.Pid {
			s.Exits++
			s.Printf("[%d] +++ exited with %d +++\n", o.Pid, models.WaitStatus(o.Status).ExitCode())
		}
	}
}

func retString(ret uint64) string {
	n := int64(ret)
	if n < 0 && n > -4096 {
		return fmt.Sprintf("%d (%v)", n, posix.Errno(-n))
	}
	return strconv.FormatInt(n, 10)
}

// sysPrint() takes a syscall op to pretty-print
func (s *StreamUI) sysPrint(op *trace.OpSyscall) {
	args := make([]string, 0, len(op.Args)+1)
	for _, v := range op.Args {
		args = append(args, strconv.FormatInt(int64(v), 10))
	}
	if op.Desc != "" {
		args = append(args, strconv.Quote(op.Desc))
	}
	name := vkernel.SysName(int(int32(op.Num)))
	s.Printf("[%d] %s(%s) = %s\n", op.Pid, name, strings.Join(args, ", "), retString(op.Ret))
}
