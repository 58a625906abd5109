package vkernel

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lunixbochs/bootcorn/go/kernel/posix"
	"github.com/lunixbochs/bootcorn/go/models"
	"github.com/lunixbochs/bootcorn/go/models/trace"
)

type testConsole struct {
	mu  sync.Mutex
	in  io.Reader
	out bytes.Buffer
}

func newConsole(input string) *testConsole {
	return &testConsole{in: strings.NewReader(input)}
}

func (c *testConsole) Read(p []byte) (int, error) { return c.in.Read(p) }

func (c *testConsole) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Write(p)
}

func (c *testConsole) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.String()
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func bootKernel(t *testing.T, config *models.Config, console io.ReadWriter) (*Kernel, models.IdleProcess) {
	k := New(config, console)
	steps := []func() error{
		func() error { return k.MemInit(4*models.MB, 16*models.MB) },
		k.TrapInit, k.BlkDevInit, k.ChrDevInit, k.TtyInit, k.TimeInit, k.SchedInit,
		func() error { _, err := k.BufferInit(4 * models.MB); return err },
		k.HdInit, k.FloppyInit,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			t.Fatal(err)
		}
	}
	k.Sti()
	idle, err := k.MoveToUserMode()
	if err != nil {
		t.Fatal(err)
	}
	return k, idle
}

// runInit forks f as init and waits for it to return.
func runInit(t *testing.T, idle models.IdleProcess, f func(p *Proc)) {
	done := make(chan struct{})
	_, err := idle.Fork(func(p models.Process) {
		defer close(done)
		f(p.(*Proc))
	})
	if err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("init timed out")
	}
}

func TestStepDependencies(t *testing.T) {
	k := New(nil, nil)
	if _, err := k.BufferInit(models.MB); err == nil {
		t.Fatal("buffer_init before blk_dev_init")
	}
	if err := k.TrapInit(); err != nil {
		t.Fatal(err)
	}
	if err := k.TrapInit(); err == nil {
		t.Fatal("trap_init ran twice")
	}
	if _, err := k.MoveToUserMode(); err == nil {
		t.Fatal("move_to_user_mode with interrupts off")
	}
}

func TestPrivilegeRevoked(t *testing.T) {
	k, _ := bootKernel(t, nil, nil)
	if got := strings.Join(k.Steps(), " "); got != "mem trap blk_dev chr_dev tty time sched buffer hd floppy sti" {
		t.Fatalf("steps %s", got)
	}
	defer func() {
		if r := recover(); r != models.ErrNotPrivileged {
			t.Fatalf("got %v", r)
		}
	}()
	k.HdInit()
}

func TestCountBuffers(t *testing.T) {
	if n := countBuffers(644760, models.MB); n != 10 {
		t.Fatalf("got %d buffers, want 10", n)
	}
	small := countBuffers(0x30000, 2*models.MB)
	big := countBuffers(0x30000, 4*models.MB)
	if small == 0 || big <= small {
		t.Fatalf("buffers %d (2M) %d (4M)", small, big)
	}
	// the 640K-1M hole holds no buffers
	if max := (2*models.MB - 0x30000 - (models.MB - 640*models.KB)) / (blockSize + bufferHead); small > max {
		t.Fatalf("%d buffers, at most %d fit", small, max)
	}
}

func TestForkWaitExit(t *testing.T) {
	_, idle := bootKernel(t, nil, nil)
	runInit(t, idle, func(p *Proc) {
		pid, err := p.Fork(func(c models.Process) {
			c.Exit(3)
		})
		if err != nil {
			t.Error(err)
			return
		}
		wpid, status, err := p.Wait()
		if err != nil || wpid != pid || status.ExitCode() != 3 || status.String() != "0300" {
			t.Errorf("wait = %d %s %v", wpid, status, err)
		}
		if _, _, err := p.Wait(); !posix.Is(err, posix.ECHILD) {
			t.Errorf("second wait: %v", err)
		}
	})
	if _, err := idle.Fork(func(models.Process) {}); !posix.Is(err, posix.EPERM) {
		t.Fatalf("second fork from task 0: %v", err)
	}
}

func TestReturnFromEntryExitsZero(t *testing.T) {
	_, idle := bootKernel(t, nil, nil)
	runInit(t, idle, func(p *Proc) {
		p.Fork(func(models.Process) {})
		if _, status, err := p.Wait(); err != nil || status != 0 {
			t.Errorf("wait = %s %v", status, err)
		}
	})
}

func TestOrphansReparented(t *testing.T) {
	_, idle := bootKernel(t, nil, nil)
	runInit(t, idle, func(p *Proc) {
		release := make(chan struct{})
		grandchild := make(chan int, 1)
		child, _ := p.Fork(func(c models.Process) {
			pid, _ := c.Fork(func(g models.Process) {
				<-release
				g.Exit(9)
			})
			grandchild <- pid
			c.Exit(1)
		})
		gpid := <-grandchild
		wpid, _, err := p.Wait()
		if err != nil || wpid != child {
			t.Errorf("wait = %d %v, want %d", wpid, err, child)
		}
		close(release)
		wpid, status, err := p.Wait()
		if err != nil || wpid != gpid || status.ExitCode() != 9 {
			t.Errorf("wait = %d %s %v, want orphan %d", wpid, status, err, gpid)
		}
	})
}

func TestForkLimit(t *testing.T) {
	config := models.NewConfig()
	config.MaxProcs = 3
	_, idle := bootKernel(t, config, nil)
	runInit(t, idle, func(p *Proc) {
		block := make(chan struct{})
		if _, err := p.Fork(func(models.Process) { <-block }); err != nil {
			t.Error(err)
		}
		if _, err := p.Fork(func(models.Process) {}); !posix.Is(err, posix.EAGAIN) {
			t.Errorf("fork past the limit: %v", err)
		}
		close(block)
		p.Wait()
	})
}

func TestConsoleFds(t *testing.T) {
	console := newConsole("hello\n")
	_, idle := bootKernel(t, nil, console)
	runInit(t, idle, func(p *Proc) {
		if fd, err := p.Open(models.ConsolePath, models.O_RDWR); fd != 0 || err != nil {
			t.Errorf("open = %d %v", fd, err)
		}
		if fd, _ := p.Dup(0); fd != 1 {
			t.Errorf("dup = %d", fd)
		}
		if fd, _ := p.Dup(0); fd != 2 {
			t.Errorf("dup = %d", fd)
		}
		p.Write(1, []byte("out"))
		p.Write(2, []byte("err"))
		buf := make([]byte, 64)
		n, err := p.Read(0, buf)
		if err != nil || string(buf[:n]) != "hello\n" {
			t.Errorf("read = %q %v", buf[:n], err)
		}
		if err := p.Close(7); !posix.Is(err, posix.EBADF) {
			t.Errorf("close unopened fd: %v", err)
		}
		if _, err := p.Open("/nonexistent", models.O_RDONLY); !posix.Is(err, posix.ENOENT) {
			t.Errorf("open missing file: %v", err)
		}
		for i := 3; i < NR_OPEN; i++ {
			if _, err := p.Dup(0); err != nil {
				t.Errorf("dup %d: %v", i, err)
			}
		}
		if _, err := p.Dup(0); !posix.Is(err, posix.EMFILE) {
			t.Errorf("dup past NR_OPEN: %v", err)
		}
	})
	if console.String() != "outerr" {
		t.Fatalf("console got %q", console.String())
	}
}

func TestFilesShareOffsetAfterFork(t *testing.T) {
	k, idle := bootKernel(t, nil, nil)
	k.WriteFile("/etc/motd", []byte("abcdef"), 0644)
	runInit(t, idle, func(p *Proc) {
		fd, _ := p.Open("/etc/motd", models.O_RDONLY)
		p.Fork(func(c models.Process) {
			buf := make([]byte, 3)
			c.Read(fd, buf)
		})
		p.Wait()
		buf := make([]byte, 8)
		n, _ := p.Read(fd, buf)
		if string(buf[:n]) != "def" {
			t.Errorf("read %q after child read", buf[:n])
		}
		if _, err := p.Read(fd, buf); err != io.EOF {
			t.Errorf("expected EOF, got %v", err)
		}
		if _, err := p.Write(fd, buf); !posix.Is(err, posix.EBADF) {
			t.Errorf("write to read-only fd: %v", err)
		}
	})
}

func TestExecve(t *testing.T) {
	k, idle := bootKernel(t, nil, nil)
	var gotArgv, gotEnvp []string
	k.Install("/bin/prog", func(p models.Process, argv, envp []string) int {
		gotArgv, gotEnvp = argv, envp
		return 42
	})
	runInit(t, idle, func(p *Proc) {
		if err := p.Execve("/bin/missing", nil, nil); !posix.Is(err, posix.ENOENT) {
			t.Errorf("exec missing: %v", err)
		}
		if err := p.Execve(models.RcPath, nil, nil); !posix.Is(err, posix.EACCES) {
			t.Errorf("exec rc script: %v", err)
		}
		p.Fork(func(c models.Process) {
			c.Execve("/bin/prog", []string{"prog", "-x"}, []string{"HOME=/"})
			t.Error("execve returned")
		})
		if _, status, _ := p.Wait(); status.ExitCode() != 42 {
			t.Errorf("status %s", status)
		}
	})
	if strings.Join(gotArgv, " ") != "prog -x" || strings.Join(gotEnvp, " ") != "HOME=/" {
		t.Fatalf("argv %v envp %v", gotArgv, gotEnvp)
	}
}

func TestSetsid(t *testing.T) {
	_, idle := bootKernel(t, nil, nil)
	runInit(t, idle, func(p *Proc) {
		sid, err := p.Setsid()
		if err != nil || sid != 1 {
			t.Errorf("setsid = %d %v", sid, err)
		}
		if _, err := p.Setsid(); !posix.Is(err, posix.EPERM) {
			t.Errorf("setsid as leader: %v", err)
		}
		p.Open(models.ConsolePath, models.O_RDWR)
		if !p.t.tty {
			t.Error("session leader did not acquire the console")
		}
	})
}

func TestIdentity(t *testing.T) {
	for _, mode := range []string{models.IdentEinval, models.IdentMinusOne} {
		want := posix.EINVAL
		if mode == models.IdentMinusOne {
			want = posix.EPERM
		}
		config := models.NewConfig()
		config.IdentityErrors = mode
		k, idle := bootKernel(t, config, nil)
		runInit(t, idle, func(p *Proc) {
			if n, err := p.Iam("lizhijun"); n != 8 || err != nil {
				t.Errorf("iam = %d %v", n, err)
			}
			if _, err := p.Iam(strings.Repeat("x", MaxIdent+1)); !posix.Is(err, want) {
				t.Errorf("%s: long iam: %v", mode, err)
			}
			if n, err := p.Iam(strings.Repeat("y", MaxIdent)); n != MaxIdent || err != nil {
				t.Errorf("iam of %d bytes = %d %v", MaxIdent, n, err)
			}
			if _, err := p.Whoami(make([]byte, MaxIdent)); !posix.Is(err, want) {
				t.Errorf("%s: short whoami: %v", mode, err)
			}
			buf := make([]byte, MaxIdent+1)
			if n, err := p.Whoami(buf); n != MaxIdent || err != nil || string(buf[:n]) != strings.Repeat("y", MaxIdent) {
				t.Errorf("whoami = %d %q %v", n, buf[:n], err)
			}
		})
		if k.Ident() != strings.Repeat("y", MaxIdent) {
			t.Fatalf("ident %q", k.Ident())
		}
	}
}

func TestSetupOnce(t *testing.T) {
	var info models.BootInfo
	info.SetDrive(0, &models.DriveParams{Cyl: 306, Head: 4, Sect: 17})
	k, idle := bootKernel(t, nil, nil)
	runInit(t, idle, func(p *Proc) {
		if err := p.Setup(info.DriveInfo); err != nil {
			t.Error(err)
		}
		if err := p.Setup(info.DriveInfo); !posix.Is(err, posix.EPERM) {
			t.Errorf("second setup: %v", err)
		}
	})
	d := k.Drives()
	if d[0].Cyl != 306 || d[0].Head != 4 || d[0].Sect != 17 || d[1].Head != 0 {
		t.Fatalf("drives %+v", d)
	}
}

func TestTraceAndProcLog(t *testing.T) {
	var tbuf, lbuf bytes.Buffer
	k := New(nil, nil)
	if err := k.SetTrace(nopCloser{&tbuf}); err != nil {
		t.Fatal(err)
	}
	k.SetProcLog(nopCloser{&lbuf})
	var hooked []string
	k.AddHook(func(pid int, name string, args []uint64, ret uint64, desc string) {
		hooked = append(hooked, name)
	})
	k.TrapInit()
	k.MemInit(0, models.MB)
	for _, f := range []func() error{k.BlkDevInit, k.ChrDevInit, k.TtyInit, k.TimeInit, k.SchedInit} {
		f()
	}
	k.BufferInit(models.MB)
	k.Sti()
	idle, err := k.MoveToUserMode()
	if err != nil {
		t.Fatal(err)
	}
	runInit(t, idle, func(p *Proc) {
		p.Fork(func(c models.Process) { c.Exit(0) })
		p.Wait()
		p.Sync()
	})
	k.Shutdown()

	if !strings.Contains(lbuf.String(), "1\tN\t") || !strings.Contains(lbuf.String(), "2\tE\t") {
		t.Fatalf("process log:\n%s", lbuf.String())
	}
	r, err := trace.NewReader(io.NopCloser(&tbuf))
	if err != nil {
		t.Fatal(err)
	}
	var boots, forks, exits int
	for {
		op, err := r.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			t.Fatal(err)
		}
		switch o := op.(type) {
		case *trace.OpBoot:
			boots++
		case *trace.OpSyscall:
			if int(o.Num) == SysNum("fork") {
				forks++
			}
		case *trace.OpExit:
			exits++
		}
	}
	// init's own exit may land after the shutdown
	if boots != 9 || forks != 2 || exits < 1 {
		t.Fatalf("boots %d forks %d exits %d", boots, forks, exits)
	}
	if len(hooked) == 0 || hooked[0] != "fork" {
		t.Fatalf("hooks saw %v", hooked)
	}
}

func TestIdleAndHalt(t *testing.T) {
	k, idle := bootKernel(t, nil, nil)
	waiting := make(chan struct{})
	idle.Fork(func(p models.Process) {
		p.Fork(func(c models.Process) { c.Pause() })
		close(waiting)
		p.Wait()
		t.Error("wait returned after halt")
	})
	<-waiting
	idled := make(chan struct{})
	go func() {
		defer close(idled)
		for {
			idle.Idle()
		}
	}()
	deadline := time.Now().Add(10 * time.Second)
	for k.Idles() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("idle never ran")
		}
		time.Sleep(time.Millisecond)
	}
	k.Shutdown()
	select {
	case <-idled:
	case <-time.After(10 * time.Second):
		t.Fatal("idle loop survived halt")
	}
	select {
	case <-k.Done():
	default:
		t.Fatal("done not closed")
	}
}

// waiting counts user processes asleep in the kernel.
func (k *Kernel) waiting() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	n := 0
	for _, t := range k.tasks {
		if t.pid != 0 && t.state == StateWaiting {
			n++
		}
	}
	return n
}

func (k *Kernel) eventCount() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.events
}

func TestQuietSystemSleeps(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	console := &testConsole{in: pr}
	k, idle := bootKernel(t, nil, console)
	// init waits on a shell, the shell waits on a console reader, and two
	// more children sleep in pause
	idle.Fork(func(p models.Process) {
		p.Fork(func(sh models.Process) {
			sh.Fork(func(c models.Process) {
				c.Open(models.ConsolePath, models.O_RDONLY)
				c.Read(0, make([]byte, 16))
			})
			sh.Fork(func(c models.Process) { c.Pause() })
			sh.Wait()
		})
		p.Fork(func(c models.Process) { c.Pause() })
		p.Wait()
	})
	go func() {
		for {
			idle.Idle()
		}
	}()
	defer k.Shutdown()

	deadline := time.Now().Add(10 * time.Second)
	for k.waiting() < 5 {
		if time.Now().After(deadline) {
			t.Fatalf("only %d processes asleep", k.waiting())
		}
		time.Sleep(time.Millisecond)
	}
	// let the idle loop catch up with the last quiet point
	time.Sleep(20 * time.Millisecond)
	events, idles := k.eventCount(), k.Idles()
	time.Sleep(200 * time.Millisecond)
	if n := k.eventCount() - events; n != 0 {
		t.Fatalf("%d state changes on a quiet system", n)
	}
	if n := k.Idles() - idles; n != 0 {
		t.Fatalf("idle returned %d times on a quiet system", n)
	}
}

func TestWaitWakesOnExit(t *testing.T) {
	_, idle := bootKernel(t, nil, nil)
	runInit(t, idle, func(p *Proc) {
		release := make(chan struct{})
		slow, _ := p.Fork(func(c models.Process) {
			<-release
			c.Exit(4)
		})
		// a sibling that sleeps forever must not stop the wait
		p.Fork(func(c models.Process) { c.Pause() })
		go func() {
			time.Sleep(20 * time.Millisecond)
			close(release)
		}()
		wpid, status, err := p.Wait()
		if err != nil || wpid != slow || status.ExitCode() != 4 {
			t.Errorf("wait = %d %s %v, want %d", wpid, status, err, slow)
		}
	})
}

func TestMemInitRoundsStart(t *testing.T) {
	k := New(nil, nil)
	if err := k.MemInit(2*models.MB+0x400, 8*models.MB); err != nil {
		t.Fatal(err)
	}
	if k.memStart != 2*models.MB+models.PageSize {
		t.Fatalf("start %#x", k.memStart)
	}
}
