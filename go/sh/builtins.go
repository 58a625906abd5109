package sh

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/lunixbochs/fvbommel-util/sortorder"
	"github.com/pkg/errors"

	"github.com/lunixbochs/bootcorn/go/lua"
	"github.com/lunixbochs/bootcorn/go/models"
)

var EchoCmd = cmd(&Command{
	Name: "echo",
	Desc: "Print arguments.",
	Run: func(c *Context, args []string) error {
		_, err := c.Printf("%s\n", strings.Join(args, " "))
		return err
	},
})

var ExitCmd = cmd(&Command{
	Name: "exit",
	Desc: "Exit the shell, with the last status by default.",
	Run: func(c *Context, args []string) error {
		code := c.Status
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.Errorf("bad number: %s", args[0])
			}
			code = n
		}
		c.P.Exit(code)
		return nil
	},
})

var TrueCmd = cmd(&Command{
	Name: "true",
	Desc: "Succeed.",
	Run:  func(c *Context) error { return nil },
})

var FalseCmd = cmd(&Command{
	Name: "false",
	Desc: "Fail with status 1.",
	Run:  func(c *Context) error { return models.ExitStatus(1) },
})

var SyncCmd = cmd(&Command{
	Name: "sync",
	Desc: "Flush kernel buffers.",
	Run:  func(c *Context) error { return c.P.Sync() },
})

var PidCmd = cmd(&Command{
	Name: "pid",
	Desc: "Print the shell's process id.",
	Run: func(c *Context) error {
		_, err := c.Printf("%d\n", c.P.Getpid())
		return err
	},
})

var IamCmd = cmd(&Command{
	Name: "iam",
	Desc: "Set the kernel identity string.",
	Run: func(c *Context, name string) error {
		id, ok := c.P.(models.Identity)
		if !ok {
			return errors.New("not supported")
		}
		_, err := id.Iam(name)
		return err
	},
})

var WhoamiCmd = cmd(&Command{
	Name: "whoami",
	Desc: "Print the kernel identity string.",
	Run: func(c *Context) error {
		id, ok := c.P.(models.Identity)
		if !ok {
			return errors.New("not supported")
		}
		buf := make([]byte, 32)
		n, err := id.Whoami(buf)
		if err != nil {
			return err
		}
		_, err = c.Printf("%s\n", buf[:n])
		return err
	},
})

var EnvCmd = cmd(&Command{
	Name: "env",
	Desc: "Print the environment.",
	Run: func(c *Context) error {
		env := append([]string(nil), c.Env...)
		sort.Sort(sortorder.Natural(env))
		for _, kv := range env {
			c.Printf("%s\n", kv)
		}
		return nil
	},
})

var ExportCmd = cmd(&Command{
	Name: "export",
	Desc: "Set NAME=value in the environment.",
	Run: func(c *Context, kv string) error {
		i := strings.IndexByte(kv, '=')
		if i <= 0 {
			return errors.Errorf("bad assignment: %s", kv)
		}
		prefix := kv[:i+1]
		for j, old := range c.Env {
			if strings.HasPrefix(old, prefix) {
				c.Env[j] = kv
				return nil
			}
		}
		c.Env = append(c.Env, kv)
		return nil
	},
})

var PsCmd = cmd(&Command{
	Name: "ps",
	Desc: "List processes.",
	Run: func(c *Context) error {
		pl, ok := c.P.(models.ProcLister)
		if !ok {
			return errors.New("not supported")
		}
		procs := pl.Procs()
		sort.Slice(procs, func(i, j int) bool { return procs[i].Pid < procs[j].Pid })
		c.Printf("  PID  PPID   SID S\n")
		for _, p := range procs {
			c.Printf("%5d %5d %5d %c\n", p.Pid, p.Ppid, p.Session, p.State)
		}
		return nil
	},
})

func readFile(c *Context, path string, fn func(line string) bool) error {
	fd, err := c.P.Open(path, models.O_RDONLY)
	if err != nil {
		return err
	}
	defer c.P.Close(fd)
	r := bufio.NewReader(models.FdReader{P: c.P, Fd: fd})
	for {
		line, err := r.ReadString('\n')
		if line != "" && !fn(line) {
			return nil
		}
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
	}
}

var CatCmd = cmd(&Command{
	Name: "cat",
	Desc: "Print a file.",
	Run: func(c *Context, path string) error {
		return readFile(c, path, func(line string) bool {
			c.Printf("%s", line)
			return true
		})
	},
})

var HeadCmd = cmd(&Command{
	Name: "head",
	Desc: "Print the first lines of a file.",
	Run: func(c *Context, path string, lines int) error {
		if lines <= 0 {
			return nil
		}
		return readFile(c, path, func(line string) bool {
			c.Printf("%s", line)
			lines--
			return lines > 0
		})
	},
})

var ExecCmd = cmd(&Command{
	Name: "exec",
	Desc: "Replace the shell with a program.",
	Run: func(c *Context, args []string) error {
		if len(args) == 0 {
			return errors.New("usage: exec <path> [args...]")
		}
		path := args[0]
		if !strings.Contains(path, "/") {
			path = BinPath + path
		}
		return c.P.Execve(path, args, c.Env)
	},
})

var LuaCmd = cmd(&Command{
	Name: "lua",
	Desc: "Evaluate lua, or start a lua prompt with no arguments.",
	Raw:  true,
	Run: func(c *Context, args []string) error {
		L, err := lua.NewRepl(c.P, c.Out)
		if err != nil {
			return err
		}
		defer L.Close()
		if len(args) > 0 {
			L.Exec([]string{strings.Join(args, " ")})
			return nil
		}
		var lines []string
		for {
			prompt := "lua> "
			if len(lines) > 0 {
				prompt = "...> "
			}
			line, err := c.ReadLine(prompt)
			if err == io.EOF {
				return nil
			} else if err != nil {
				return err
			}
			if len(lines) == 0 && line == "exit" {
				return nil
			}
			lines = append(lines, line)
			if !L.Exec(lines) {
				lines = nil
			}
		}
	},
})

var HelpCmd = cmd(&Command{
	Name: "help",
	Desc: "List builtins.",
	Run: func(c *Context) error {
		for _, name := range Names() {
			c.Printf("  %-8s %s\n", name, Commands[name].Desc)
		}
		return nil
	},
})
