package sh

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lunixbochs/bootcorn/go/boot"
	"github.com/lunixbochs/bootcorn/go/kernel/vkernel"
	"github.com/lunixbochs/bootcorn/go/models"
	"github.com/lunixbochs/bootcorn/go/models/mock"
)

func newProcess() (*mock.World, *mock.Process) {
	w := mock.NewWorld()
	p := w.NewProcess(1)
	for i := 0; i < 3; i++ {
		p.Open(models.ConsolePath, models.O_RDWR)
	}
	return w, p
}

func runLine(p models.Process, line string, envp ...string) int {
	status := -1
	mock.Run(func() {
		status = Main(p, []string{"sh", "-c", line}, envp)
	})
	return status
}

func TestEcho(t *testing.T) {
	w, p := newProcess()
	if status := runLine(p, `echo hello   "big world"`); status != 0 {
		t.Fatalf("status %d", status)
	}
	if got := w.Output(); got != "hello big world\n" {
		t.Fatalf("echo printed %q", got)
	}
}

func TestStatus(t *testing.T) {
	w, p := newProcess()
	if status := runLine(p, "false"); status != 1 {
		t.Fatalf("false returned %d", status)
	}
	if w.Output() != "" {
		t.Fatalf("false printed %q", w.Output())
	}
	if status := runLine(p, "true"); status != 0 {
		t.Fatalf("true returned %d", status)
	}
}

func TestUsage(t *testing.T) {
	w, p := newProcess()
	if status := runLine(p, "head /etc/rc"); status != 1 {
		t.Fatalf("status %d", status)
	}
	if !strings.Contains(w.Output(), "usage: head <string> <int>") {
		t.Fatalf("missing usage: %q", w.Output())
	}
}

func TestBadArgument(t *testing.T) {
	w, p := newProcess()
	if status := runLine(p, "head /etc/rc many"); status != 1 {
		t.Fatalf("status %d", status)
	}
	if !strings.Contains(w.Output(), "sh: head:") {
		t.Fatalf("missing error: %q", w.Output())
	}
}

func TestExternal(t *testing.T) {
	w, p := newProcess()
	w.Programs["/bin/hello"] = func(p models.Process, argv, envp []string) int {
		p.Write(1, []byte("hi "+argv[1]+" "+strings.Join(envp, ",")+"\n"))
		return 3
	}
	if status := runLine(p, "hello there", "HOME=/"); status != 3 {
		t.Fatalf("status %d", status)
	}
	if got := w.Output(); got != "hi there HOME=/\n" {
		t.Fatalf("program printed %q", got)
	}
	execs := w.Calls("execve")
	if len(execs) != 1 || !strings.HasPrefix(execs[0].Args, "/bin/hello [hello there]") {
		t.Fatalf("unexpected execve %v", execs)
	}
}

func TestNotFound(t *testing.T) {
	w, p := newProcess()
	if status := runLine(p, "nosuch"); status != ExitNotFound {
		t.Fatalf("status %d", status)
	}
	if got := w.Output(); got != "sh: nosuch: no such file or directory\n" {
		t.Fatalf("got %q", got)
	}
}

func TestSequence(t *testing.T) {
	w, p := newProcess()
	runLine(p, "echo a; echo b;echo c")
	if got := w.Output(); got != "a\nb\nc\n" {
		t.Fatalf("got %q", got)
	}
}

func TestBackground(t *testing.T) {
	w, p := newProcess()
	w.Programs["/bin/quiet"] = func(p models.Process, argv, envp []string) int { return 0 }
	if status := runLine(p, "quiet &"); status != 0 {
		t.Fatalf("status %d", status)
	}
	if got := w.Output(); got != "[2]\n" {
		t.Fatalf("got %q", got)
	}
	if len(w.Calls("wait")) != 0 {
		t.Fatal("background job was waited for")
	}
}

func TestExit(t *testing.T) {
	w, p := newProcess()
	runLine(p, "exit 4; echo unreachable")
	exits := w.Calls("exit")
	if len(exits) != 1 || exits[0].Args != "4" {
		t.Fatalf("exits %v", exits)
	}
	if strings.Contains(w.Output(), "unreachable") {
		t.Fatal("shell kept running after exit")
	}
}

func TestExitLastStatus(t *testing.T) {
	w, p := newProcess()
	runLine(p, "false; exit")
	if exits := w.Calls("exit"); len(exits) != 1 || exits[0].Args != "1" {
		t.Fatalf("exits %v", exits)
	}
}

func TestEnv(t *testing.T) {
	w, p := newProcess()
	runLine(p, "export PATH=/bin; export HOME=/usr/root; env", "HOME=/", "TERM=con80x25")
	if got := w.Output(); got != "HOME=/usr/root\nPATH=/bin\nTERM=con80x25\n" {
		t.Fatalf("got %q", got)
	}
}

func TestHelp(t *testing.T) {
	w, p := newProcess()
	runLine(p, "help")
	out := w.Output()
	cat, whoami := strings.Index(out, "cat"), strings.Index(out, "whoami")
	if cat < 0 || whoami < 0 || cat > whoami {
		t.Fatalf("help out of order: %q", out)
	}
}

func TestLua(t *testing.T) {
	tests := []struct {
		line, out string
	}{
		{"lua getpid()", "1\n"},
		{"lua 'getpid()'", "1\n"},
		{`lua print("a; b > c")`, "a; b > c\n"},
		{`lua  print("a" .. "b")  `, "ab\n"},
	}
	for _, test := range tests {
		w, p := newProcess()
		if status := runLine(p, test.line); status != 0 {
			t.Fatalf("%q: status %d", test.line, status)
		}
		if got := w.Output(); got != test.out {
			t.Fatalf("%q: got %q", test.line, got)
		}
	}
}

func TestUnsupported(t *testing.T) {
	w, p := newProcess()
	if status := runLine(p, "echo a | cat"); status != 1 {
		t.Fatalf("status %d", status)
	}
	if !strings.Contains(w.Output(), "unsupported operator") {
		t.Fatalf("got %q", w.Output())
	}
}

type console struct {
	mu  sync.Mutex
	out bytes.Buffer
}

func (c *console) Read(p []byte) (int, error) { return 0, io.EOF }

func (c *console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Write(p)
}

func (c *console) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.String()
}

const script = `echo one
# comment
false
echo two > /tmp/out
echo three >> /tmp/out
cat /tmp/out
iam bootcorn
whoami
ps
`

func TestScriptOnKernel(t *testing.T) {
	con := &console{}
	k := vkernel.New(models.NewConfig(), con)
	defer k.Shutdown()
	k.Install(models.ShellPath, Main)
	k.WriteFile("/etc/script", []byte(script), 0644)

	ini := boot.NewInitializer(k, boot.PlanMemory(15*1024, 0), boot.Steps(false))
	if err := ini.Run(); err != nil {
		t.Fatal(err)
	}
	idle, err := boot.MoveToUserMode(ini)
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan models.WaitStatus, 1)
	_, err = idle.Fork(func(p models.Process) {
		pid, err := p.Fork(func(p models.Process) {
			p.Open("/etc/script", models.O_RDONLY)
			p.Open(models.ConsolePath, models.O_RDWR)
			p.Dup(1)
			p.Execve(models.ShellPath, []string{"sh"}, nil)
		})
		if err != nil {
			t.Error(err)
			return
		}
		for {
			got, status, err := p.Wait()
			if err != nil || got == pid {
				done <- status
				break
			}
		}
		p.Pause()
	})
	if err != nil {
		t.Fatal(err)
	}
	select {
	case status := <-done:
		if status.ExitCode() != 0 {
			t.Fatalf("script exited with %s", status)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("script timed out")
	}
	out := con.String()
	if !strings.HasPrefix(out, "one\ntwo\nthree\nbootcorn\n") {
		t.Fatalf("unexpected output %q", out)
	}
	if !strings.Contains(out, "  PID  PPID   SID S") {
		t.Fatalf("ps missing from %q", out)
	}
}
