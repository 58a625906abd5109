package models

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Identity error conventions.
const (
	IdentMinusOne = "minus-one"
	IdentEinval   = "einval"
)

type Config struct {
	// boot parameters, used when no parameter block is supplied
	ExtMemKB  uint32
	RootDev   uint16
	RamdiskKB uint32

	// machine
	KernelEnd uint64
	MaxProcs  int

	Console    string
	Rc         string
	RcScript   string
	RcShell    ShellConfig
	LoginShell ShellConfig

	// RootPrefix maps absolute guest paths onto a host directory.
	RootPrefix string

	IdentityErrors string

	Color     bool
	Verbose   bool
	Tracefile string
	ProcLog   string

	Output io.WriteCloser
}

// DefaultRcScript is installed at /etc/rc unless the config provides one.
const DefaultRcScript = `echo rc: starting up
iam root
sync
`

func NewConfig() *Config {
	return &Config{
		ExtMemKB:       15 * 1024,
		RootDev:        0x301,
		KernelEnd:      0x30000,
		MaxProcs:       64,
		Console:        ConsolePath,
		Rc:             RcPath,
		RcScript:       DefaultRcScript,
		RcShell:        RcShell,
		LoginShell:     LoginShell,
		IdentityErrors: IdentEinval,
		Output:         os.Stderr,
	}
}

// symlink chains longer than this are treated as missing
const maxLinks = 8

func (c *Config) resolveSymlink(path, target string, force bool, depth int) string {
	link, err := os.Lstat(target)
	if err == nil && link.Mode()&os.ModeSymlink != 0 {
		if depth >= maxLinks {
			return ""
		}
		if linked, err := os.Readlink(target); err == nil {
			if !strings.HasPrefix(linked, "/") {
				linked = filepath.Join(filepath.Dir(path), linked)
			}
			return c.prefixPath(linked, force, depth+1)
		}
	}
	exists := !os.IsNotExist(err)
	if force || exists {
		return target
	}
	return ""
}

// PrefixPath returns the host path backing a guest path, or "" if there is none.
// Symlinks are resolved inside the prefix.
func (c *Config) PrefixPath(path string, force bool) string {
	return c.prefixPath(path, force, 0)
}

func (c *Config) prefixPath(path string, force bool, depth int) string {
	if c.RootPrefix == "" || !filepath.IsAbs(path) {
		return ""
	}
	target := filepath.Join(c.RootPrefix, path)
	return c.resolveSymlink(path, target, force, depth)
}
