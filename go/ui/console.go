package ui

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/chzyer/readline"
	"github.com/lunixbochs/vtclean"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/shibukawa/configdir"
)

// Console is the host side of /dev/tty0. Reads return one cleaned line at a
// time. On a terminal, input is edited with readline and the unfinished last
// line of output becomes the readline prompt.
type Console struct {
	// OnEOF runs once when the host input ends.
	OnEOF func()

	mu      sync.Mutex
	rl      *readline.Instance
	in      *bufio.Reader
	out     io.Writer
	partial []byte
	pending []byte
	eof     bool
	eofOnce sync.Once
}

func historyPath() string {
	cacheDir := configdir.New("bootcorn", "console").QueryCacheFolder()
	if err := cacheDir.MkdirAll(); err != nil {
		return ""
	}
	return filepath.Join(cacheDir.Path, "history")
}

// NewConsole uses readline when in is a terminal.
func NewConsole(in io.Reader, out io.Writer) (*Console, error) {
	c := &Console{out: out}
	if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		rl, err := readline.NewEx(&readline.Config{
			InterruptPrompt: "^C",
			HistoryFile:     historyPath(),
			Stdin:           f,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to start readline")
		}
		c.rl = rl
		c.out = rl.Stdout()
	} else {
		c.in = bufio.NewReader(in)
	}
	return c, nil
}

func (c *Console) line() (string, error) {
	if c.rl == nil {
		line, err := c.in.ReadString('\n')
		if err == io.EOF && line != "" {
			err = nil
		}
		return line, err
	}
	c.mu.Lock()
	c.rl.SetPrompt(string(c.partial))
	c.partial = nil
	c.mu.Unlock()
	for {
		line, err := c.rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		return line, err
	}
}

func (c *Console) Read(p []byte) (int, error) {
	if len(c.pending) == 0 {
		if c.eof {
			return 0, io.EOF
		}
		line, err := c.line()
		if err != nil {
			c.eof = true
			if c.OnEOF != nil {
				c.eofOnce.Do(c.OnEOF)
			}
			return 0, io.EOF
		}
		line = vtclean.Clean(line, false)
		if len(line) == 0 || line[len(line)-1] != '\n' {
			line += "\n"
		}
		c.pending = []byte(line)
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rl == nil {
		return c.out.Write(p)
	}
	// hold back the unterminated tail so readline can draw it as the prompt
	i := bytes.LastIndexByte(p, '\n')
	if i < 0 {
		c.partial = append(c.partial, p...)
		return len(p), nil
	}
	buf := append(c.partial, p[:i+1]...)
	c.partial = append([]byte(nil), p[i+1:]...)
	if _, err := c.out.Write(buf); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Flush writes any held-back partial line.
func (c *Console) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.partial) == 0 {
		return nil
	}
	_, err := c.out.Write(c.partial)
	c.partial = nil
	return err
}

func (c *Console) Close() error {
	c.Flush()
	if c.rl != nil {
		return c.rl.Close()
	}
	return nil
}
