package lua

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lunixbochs/bootcorn/go/models"
	"github.com/lunixbochs/bootcorn/go/models/mock"
)

type listed struct {
	*mock.Process
}

func (l listed) Procs() []models.ProcInfo {
	return []models.ProcInfo{
		{Pid: 0, Ppid: 0, State: 'R'},
		{Pid: 1, Ppid: 0, Session: 1, State: 'W'},
	}
}

func newRepl(t *testing.T, p models.Process) (*LuaRepl, *bytes.Buffer) {
	var out bytes.Buffer
	L, err := NewRepl(p, &out)
	if err != nil {
		t.Fatal(err)
	}
	return L, &out
}

func TestReplGetpid(t *testing.T) {
	L, out := newRepl(t, mock.NewWorld().NewProcess(5))
	defer L.Close()
	if L.Exec([]string{"getpid()"}) {
		t.Fatal("complete chunk reported as incomplete")
	}
	if got := out.String(); got != "5\n" {
		t.Fatalf("getpid() printed %q", got)
	}
	out.Reset()
	L.Exec([]string{"pid"})
	if got := out.String(); got != "5\n" {
		t.Fatalf("pid printed %q", got)
	}
}

func TestReplIncomplete(t *testing.T) {
	L, out := newRepl(t, mock.NewWorld().NewProcess(3))
	defer L.Close()
	if !L.Exec([]string{"func f()"}) {
		t.Fatal("unterminated function should need more input")
	}
	if L.Exec([]string{"func f()", "return getpid()", "end"}) {
		t.Fatal("terminated function should be complete")
	}
	out.Reset()
	L.Exec([]string{"f()"})
	if got := out.String(); got != "3\n" {
		t.Fatalf("f() printed %q", got)
	}
}

func TestReplStrings(t *testing.T) {
	L, out := newRepl(t, mock.NewWorld().NewProcess(1))
	defer L.Close()
	L.Exec([]string{"'boot' .. 'corn'"})
	if got := out.String(); got != "\"bootcorn\"\n" {
		t.Fatalf("implicit string printed %q", got)
	}
	out.Reset()
	L.Exec([]string{"print('bootcorn')"})
	if got := out.String(); got != "bootcorn\n" {
		t.Fatalf("print printed %q", got)
	}
}

func TestReplSyntaxError(t *testing.T) {
	L, out := newRepl(t, mock.NewWorld().NewProcess(1))
	defer L.Close()
	if L.Exec([]string{"end end"}) {
		t.Fatal("syntax error reported as incomplete")
	}
	if out.Len() == 0 {
		t.Fatal("syntax error not printed")
	}
}

func TestReplPs(t *testing.T) {
	L, out := newRepl(t, listed{mock.NewWorld().NewProcess(1)})
	defer L.Close()
	L.Exec([]string{"ps()"})
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "PID") {
		t.Fatalf("unexpected ps output %q", out.String())
	}
	if !strings.HasSuffix(lines[2], "W") {
		t.Fatalf("pid 1 state missing: %q", lines[2])
	}
}

func TestReplUnsupported(t *testing.T) {
	L, out := newRepl(t, mock.NewWorld().NewProcess(1))
	defer L.Close()
	L.Exec([]string{"whoami()"})
	if !strings.Contains(out.String(), "not supported") {
		t.Fatalf("expected unsupported error, got %q", out.String())
	}
}

func TestReplHelpers(t *testing.T) {
	L, out := newRepl(t, listed{mock.NewWorld().NewProcess(1)})
	defer L.Close()
	tests := []struct {
		chunk, want string
	}{
		{"status(0x0300)", `"0300"`},
		{"exitcode(0x0300)", "3"},
		{"hex(255)", `"0xff"`},
		{"children(0)", "{1}"},
		{"waiting()", "1"},
		{"print('pid %d' % getpid())", "pid 1"},
	}
	for _, test := range tests {
		out.Reset()
		L.Exec([]string{test.chunk})
		if got := strings.TrimSpace(out.String()); got != test.want {
			t.Errorf("%s printed %q, want %q", test.chunk, got, test.want)
		}
	}
}
