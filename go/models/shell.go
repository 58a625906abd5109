package models

import "strings"

const (
	ConsolePath = "/dev/tty0"
	RcPath      = "/etc/rc"
	ShellPath   = "/bin/sh"
)

// ShellConfig is an immutable program invocation.
type ShellConfig struct {
	Path string
	Argv []string
	Envp []string
}

var (
	// RcShell runs the command script once at boot.
	RcShell = ShellConfig{
		Path: ShellPath,
		Argv: []string{"/bin/sh"},
		Envp: []string{"HOME=/"},
	}
	// LoginShell is respawned forever on the console.
	LoginShell = ShellConfig{
		Path: ShellPath,
		Argv: []string{"-/bin/sh"},
		Envp: []string{"HOME=/usr/root"},
	}
)

// Args returns copies of argv and envp so callers can't mutate the config.
func (s ShellConfig) Args() (argv, envp []string) {
	argv = append([]string(nil), s.Argv...)
	envp = append([]string(nil), s.Envp...)
	return
}

// IsLogin reports whether argv[0] marks a login shell.
func IsLogin(argv []string) bool {
	return len(argv) > 0 && strings.HasPrefix(argv[0], "-")
}
