package ui

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/lunixbochs/bootcorn/go/kernel/posix"
	"github.com/lunixbochs/bootcorn/go/kernel/vkernel"
	"github.com/lunixbochs/bootcorn/go/models"
	"github.com/lunixbochs/bootcorn/go/models/trace"
)

func TestConsoleLines(t *testing.T) {
	var out bytes.Buffer
	c, err := NewConsole(strings.NewReader("echo \x1b[31mred\x1b[0m\nps"), &out)
	if err != nil {
		t.Fatal(err)
	}
	eofs := 0
	c.OnEOF = func() { eofs++ }
	buf := make([]byte, 4)
	var got []byte
	for {
		n, err := c.Read(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		} else if err != nil {
			t.Fatal(err)
		}
	}
	if string(got) != "echo red\nps\n" {
		t.Fatalf("read %q", got)
	}
	if _, err := c.Read(buf); err != io.EOF {
		t.Fatal("expected EOF to stick")
	}
	if eofs != 1 {
		t.Fatalf("OnEOF ran %d times", eofs)
	}
	c.Write([]byte("# "))
	if out.String() != "# " {
		t.Fatalf("write %q", out.String())
	}
}

func TestStreamUI(t *testing.T) {
	var out bytes.Buffer
	s := NewStreamUI(&out)
	ops := []models.Op{
		&trace.OpBoot{Step: "trap"},
		&trace.OpSyscall{Num: uint32(vkernel.SysNum("fork")), Pid: 0, Ret: 1},
		&trace.OpSyscall{Num: uint32(vkernel.SysNum("open")), Pid: 2, Ret: posix.Ret(-1, posix.ENOENT), Args: []uint64{0}, Desc: "/etc/rc"},
		&trace.OpSyscall{Num: uint32(vkernel.SysNum("whoami")), Pid: 2, Ret: 4},
		&trace.OpExit{Pid: 2, Status: uint32(models.Exited(1))},
	}
	for _, op := range ops {
		s.Feed(op)
	}
	want := strings.Join([]string{
		"boot: trap_init",
		"[0] fork() = 1",
		`[2] open(0, "/etc/rc") = -2 (no such file or directory)`,
		"[2] whoami() = 4",
		"[2] +++ exited with 1 +++",
		"",
	}, "\n")
	if out.String() != want {
		t.Fatalf("got\n%s\nwant\n%s", out.String(), want)
	}
	if s.Syscalls != 3 || s.Exits != 1 {
		t.Fatalf("counts %d %d", s.Syscalls, s.Exits)
	}
}

func TestStreamUIPidFilter(t *testing.T) {
	var out bytes.Buffer
	s := NewStreamUI(&out)
	s.Pid = 1
	s.Feed(&trace.OpBoot{Step: "mem"})
	s.Feed(&trace.OpSyscall{Num: uint32(vkernel.SysNum("sync")), Pid: 2})
	s.Feed(&trace.OpSyscall{Num: uint32(vkernel.SysNum("sync")), Pid: 1})
	if out.String() != "[1] sync() = 0\n" {
		t.Fatalf("got %q", out.String())
	}
}
