// Package sh is the command interpreter run by the boot script and the
// login console.
package sh

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/pkg/errors"

	"github.com/lunixbochs/bootcorn/go/kernel/posix"
	"github.com/lunixbochs/bootcorn/go/models"
)

// Exit codes for external commands that could not be started.
const (
	ExitNotFound = 127
	ExitNoExec   = 126
)

const BinPath = "/bin/"

type Context struct {
	P   models.Process
	Out io.Writer
	Env []string
	// Status of the last command.
	Status int

	login bool
	in    *bufio.Reader
}

func (c *Context) Printf(format string, a ...interface{}) (n int, err error) {
	return fmt.Fprintf(c.Out, format, a...)
}

// ReadLine prompts on a login shell and returns the next input line without
// its newline. A final unterminated line is returned before io.EOF.
func (c *Context) ReadLine(prompt string) (string, error) {
	if c.login {
		c.Printf("%s", prompt)
	}
	line, err := c.in.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	return strings.TrimRight(line, "\r\n"), err
}

func (c *Context) prompt() string {
	if c.login {
		return "# "
	}
	return ""
}

// Main is the shell program. With -c it runs one command line, otherwise it
// reads commands from fd 0 until end of input.
func Main(p models.Process, argv, envp []string) int {
	c := &Context{
		P:     p,
		Out:   models.FdWriter{P: p, Fd: 1},
		Env:   append([]string(nil), envp...),
		login: models.IsLogin(argv),
		in:    bufio.NewReader(models.FdReader{P: p, Fd: 0}),
	}
	if len(argv) >= 3 && argv[1] == "-c" {
		c.Run(argv[2])
		return c.Status
	}
	for {
		line, err := c.ReadLine(c.prompt())
		if err == io.EOF {
			return 0
		} else if err != nil {
			c.Printf("sh: read: %v\n", err)
			return 1
		}
		c.Run(line)
	}
}

// Run executes one command line, updating c.Status.
func (c *Context) Run(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}
	if name, rest, ok := splitRaw(line); ok {
		c.exec([]string{name, rest}, "", 0, false)
		return
	}
	parser := shellwords.NewParser()
	args, err := parser.Parse(line)
	if err != nil {
		c.Printf("sh: parse error: %v\n", err)
		c.Status = 1
		return
	}
	var op, rest string
	if pos := parser.Position; pos >= 0 && pos < len(line) && strings.IndexByte(";&|<>", line[pos]) >= 0 {
		op, rest = line[pos:pos+1], line[pos+1:]
	}
	switch op {
	case "":
		c.exec(args, "", 0, false)
	case ";":
		c.exec(args, "", 0, false)
		c.Run(rest)
	case "&":
		c.exec(args, "", 0, true)
		c.Run(rest)
	case ">":
		flags := models.O_TRUNC
		if strings.HasPrefix(rest, ">") {
			flags, rest = models.O_APPEND, rest[1:]
		}
		target, err := shellwords.Parse(rest)
		if err != nil || len(target) != 1 {
			c.Printf("sh: bad redirect\n")
			c.Status = 1
			return
		}
		c.exec(args, target[0], flags, false)
	default:
		c.Printf("sh: unsupported operator %q\n", op)
		c.Status = 1
	}
}

// splitRaw splits off the argument text of a raw builtin.
func splitRaw(line string) (name, rest string, ok bool) {
	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return "", "", false
	}
	name = line[:i]
	if cmd, found := Commands[name]; !found || !cmd.Raw {
		return "", "", false
	}
	rest = strings.TrimSpace(line[i:])
	// a single quoted word is unquoted like any other argument
	if strings.HasPrefix(rest, "'") || strings.HasPrefix(rest, `"`) {
		if words, err := shellwords.Parse(rest); err == nil && len(words) == 1 {
			rest = words[0]
		}
	}
	return name, rest, true
}

func (c *Context) exec(args []string, redirect string, flags int, background bool) {
	if len(args) == 0 {
		return
	}
	if cmd, ok := Commands[args[0]]; ok && !background {
		c.Status = c.builtin(cmd, args[1:], redirect, flags)
		return
	}
	pid, err := c.P.Fork(func(p models.Process) {
		if redirect != "" {
			p.Close(1)
			if fd, err := p.Open(redirect, models.O_WRONLY|models.O_CREAT|flags); err != nil || fd != 1 {
				p.Exit(1)
			}
		}
		p.Exit(spawn(p, args, c.Env))
	})
	if err != nil {
		c.Printf("sh: fork: %v\n", err)
		c.Status = 1
		return
	}
	if background {
		c.Printf("[%d]\n", pid)
		c.Status = 0
		return
	}
	c.Status = c.waitFor(pid)
}

// spawn runs in the child and only returns if the command can't be started.
func spawn(p models.Process, args, envp []string) int {
	out := models.FdWriter{P: p, Fd: 2}
	if cmd, ok := Commands[args[0]]; ok {
		c := &Context{
			P:   p,
			Out: models.FdWriter{P: p, Fd: 1},
			Env: envp,
			in:  bufio.NewReader(models.FdReader{P: p, Fd: 0}),
		}
		if err := cmd.call(c, args[1:]); err != nil {
			return c.report(args[0], err)
		}
		return 0
	}
	path := args[0]
	if !strings.Contains(path, "/") {
		path = BinPath + path
	}
	err := p.Execve(path, args, envp)
	fmt.Fprintf(out, "sh: %s: %v\n", args[0], err)
	if posix.Is(err, posix.ENOENT) {
		return ExitNotFound
	}
	return ExitNoExec
}

func (c *Context) waitFor(pid int) int {
	for {
		got, status, err := c.P.Wait()
		if err != nil {
			c.Printf("sh: wait: %v\n", err)
			return 1
		}
		if got == pid {
			return status.ExitCode()
		}
	}
}

func (c *Context) builtin(cmd *Command, args []string, redirect string, flags int) int {
	if redirect != "" {
		fd, err := c.P.Open(redirect, models.O_WRONLY|models.O_CREAT|flags)
		if err != nil {
			return c.report(redirect, err)
		}
		defer c.P.Close(fd)
		saved := c.Out
		c.Out = models.FdWriter{P: c.P, Fd: fd}
		defer func() { c.Out = saved }()
	}
	if err := cmd.call(c, args); err != nil {
		return c.report(cmd.Name, err)
	}
	return 0
}

// report prints err and returns the resulting status. An ExitStatus sets the
// status silently.
func (c *Context) report(name string, err error) int {
	if status, ok := errors.Cause(err).(models.ExitStatus); ok {
		return int(status)
	}
	c.Printf("sh: %s: %v\n", name, err)
	return 1
}
