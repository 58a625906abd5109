// Package klog is the kernel's printk: a small leveled logger that writes
// whole lines to a console or host stream.
package klog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/lunixbochs/vtclean"
	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

var levelColors = map[Level]string{
	LevelDebug: ansi.ColorCode("black+h"),
	LevelInfo:  ansi.ColorCode("default"),
	LevelWarn:  ansi.ColorCode("yellow"),
	LevelError: ansi.ColorCode("red+b"),
}

var prefixColor = ansi.ColorCode("cyan")

type output struct {
	mu sync.Mutex
	w  io.Writer
}

// Logger is safe for concurrent use. Loggers derived with Prefix share the
// parent's output and serialize on it.
type Logger struct {
	out    *output
	prefix string
	level  Level
	color  bool
}

// New returns a logger writing to w. Color defaults to on when w is a terminal.
func New(w io.Writer) *Logger {
	return &Logger{
		out:   &output{w: w},
		level: LevelInfo,
		color: IsTerminal(w),
	}
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w interface{}) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// Prefix returns a logger that tags every line with name.
func (l *Logger) Prefix(name string) *Logger {
	n := *l
	if n.prefix != "" {
		n.prefix += "/" + name
	} else {
		n.prefix = name
	}
	return &n
}

func (l *Logger) SetLevel(level Level) { l.level = level }
func (l *Logger) SetColor(color bool)  { l.color = color }
func (l *Logger) Level() Level          { return l.level }

// Printf writes a raw message with no prefix or level, like printk.
func (l *Logger) Printf(format string, args ...interface{}) {
	l.write(fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.log(LevelDebug, format, args) }
func (l *Logger) Infof(format string, args ...interface{})  { l.log(LevelInfo, format, args) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.log(LevelWarn, format, args) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.log(LevelError, format, args) }

func (l *Logger) log(level Level, format string, args []interface{}) {
	if level < l.level {
		return
	}
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	var line string
	if l.color {
		line = levelColors[level] + msg + ansi.Reset
		if l.prefix != "" {
			line = prefixColor + "[" + l.prefix + "]" + ansi.Reset + " " + line
		}
	} else {
		line = vtclean.Clean(msg, false)
		if l.prefix != "" {
			line = "[" + l.prefix + "] " + line
		}
	}
	if level >= LevelWarn && !l.color {
		line = level.String() + " " + line
	}
	l.write(line + "\n")
}

func (l *Logger) write(s string) {
	l.out.mu.Lock()
	io.WriteString(l.out.w, s)
	l.out.mu.Unlock()
}
