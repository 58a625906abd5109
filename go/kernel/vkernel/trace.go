package vkernel

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/lunixbochs/ghostrace/ghost/sys/num"

	"github.com/lunixbochs/bootcorn/go/klog"
	"github.com/lunixbochs/bootcorn/go/models"
	"github.com/lunixbochs/bootcorn/go/models/trace"
)

// Calls that don't exist in the i386 table. setup, iam and whoami use the
// 0.11 lab numbers.
var localNums = map[string]int{
	"setup":  0,
	"iam":    72,
	"whoami": 73,
	"ps":     74,
}

var sysNums = func() map[string]int {
	m := make(map[string]int, len(num.Linux_x86))
	for n, name := range num.Linux_x86 {
		m[name] = n
	}
	for name, n := range localNums {
		m[name] = n
	}
	return m
}()

// SysNum returns the syscall number of name, or -1.
func SysNum(name string) int {
	if n, ok := sysNums[name]; ok {
		return n
	}
	return -1
}

// SysName is the inverse of SysNum, for reading traces back.
func SysName(n int) string {
	for name, num := range localNums {
		if num == n {
			return name
		}
	}
	if name, ok := num.Linux_x86[n]; ok {
		return name
	}
	return "sys_" + strconv.Itoa(n)
}

// SetTrace starts recording every system call to w.
func (k *Kernel) SetTrace(w io.WriteCloser) error {
	tw, err := trace.NewWriter(w, "i386", "linux-0.11")
	if err != nil {
		return err
	}
	k.mu.Lock()
	k.trace = tw
	k.mu.Unlock()
	return nil
}

// SetProcLog starts the process state log. It is flushed on sync.
func (k *Kernel) SetProcLog(w io.WriteCloser) {
	k.mu.Lock()
	k.procLog = bufio.NewWriter(w)
	k.procW = w
	k.mu.Unlock()
}

// AddHook registers a callback run on every system call. Hooks run with the
// kernel locked and must not call back into it.
func (k *Kernel) AddHook(hook models.SysHook) {
	k.mu.Lock()
	k.hooks = append(k.hooks, hook)
	k.mu.Unlock()
}

// leave finishes a system call started with enter.
func (k *Kernel) leave(t *task, name string, ret uint64, desc string, args ...uint64) {
	k.syscall(t, name, ret, desc, args...)
	k.mu.Unlock()
}

func (k *Kernel) syscall(t *task, name string, ret uint64, desc string, args ...uint64) {
	if k.trace != nil {
		k.trace.Pack(&trace.OpSyscall{
			Num:  uint32(SysNum(name)),
			Pid:  uint32(t.pid),
			Ret:  ret,
			Args: args,
			Desc: desc,
		})
	}
	for _, hook := range k.hooks {
		hook(t.pid, name, args, ret, desc)
	}
	if k.Log.Level() <= klog.LevelDebug {
		var sargs []string
		for _, a := range args {
			sargs = append(sargs, formatInt(a))
		}
		if desc != "" {
			sargs = append(sargs, desc)
		}
		k.Log.Debugf("[%d] %s(%s) = %s", t.pid, name, strings.Join(sargs, ", "), formatInt(ret))
	}
}

func formatInt(v uint64) string {
	return strconv.FormatInt(int64(v), 10)
}
