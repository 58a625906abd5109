package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/lunixbochs/bootcorn/go/boot"
	"github.com/lunixbochs/bootcorn/go/config"
	"github.com/lunixbochs/bootcorn/go/initd"
	"github.com/lunixbochs/bootcorn/go/kernel/vkernel"
	"github.com/lunixbochs/bootcorn/go/klog"
	"github.com/lunixbochs/bootcorn/go/models"
	"github.com/lunixbochs/bootcorn/go/sh"
	"github.com/lunixbochs/bootcorn/go/ui"
)

type strslice []string

func (s *strslice) String() string {
	return fmt.Sprintf("%v", *s)
}

func (s *strslice) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// DefaultDrive is the first hard disk reported when no parameter block is given.
var DefaultDrive = models.DriveParams{Cyl: 306, Head: 4, Wpcom: 128, Lzone: 305, Sect: 17}

type BootCmd struct {
	Config *models.Config
	Info   models.BootInfo
	Kernel *vkernel.Kernel
	Log    *klog.Logger

	// SetupKernel runs after the kernel is built and before it boots.
	SetupKernel func() error
	Stdin       io.Reader
	Stdout      io.Writer

	Flags *flag.FlagSet
	// set when -color was given explicitly
	color *bool
}

func NewBootCmd() *BootCmd {
	fs := flag.NewFlagSet("boot", flag.ContinueOnError)
	return &BootCmd{Flags: fs, Stdin: os.Stdin, Stdout: os.Stdout}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func (c *BootCmd) PrintError(err error) {
	// print an error, and a stacktrace if available
	fmt.Fprintf(os.Stderr, "%s\n", strings.Repeat("-", 40))
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	if err, ok := err.(stackTracer); ok {
		// parse full path and method name for each stack frame
		var frames [][]string
		for _, f := range err.StackTrace() {
			fullpath := ""
			fileline := fmt.Sprintf("%s:%d", f, f)
			method := fmt.Sprintf("%n", f)

			frame := fmt.Sprintf("%+s", f)
			tmp := strings.SplitN(frame, "\n", 3)
			if len(tmp) == 2 {
				pathsplit := strings.Split(tmp[0], "/")
				method = pathsplit[len(pathsplit)-1]
				fullpath = strings.TrimSpace(tmp[1])
			}
			frames = append(frames, []string{fullpath, fileline, method})
			if method == "main.main" {
				break
			}
		}
		widths := make([]int, 2)
		for _, f := range frames {
			for i := range widths {
				if len(f[i]) > widths[i] {
					widths[i] = len(f[i])
				}
			}
		}
		for _, f := range frames {
			for i := range widths {
				if widths[i] > 0 {
					pad := strings.Repeat(" ", widths[i]-len(f[i]))
					fmt.Fprintf(os.Stderr, "%s%s | ", f[i], pad)
				}
			}
			fmt.Fprintf(os.Stderr, "%s()\n", f[2])
		}
	}
}

func readParams(path string) (models.BootInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.BootInfo{}, errors.Wrap(err, "failed to open parameter block")
	}
	defer f.Close()
	return models.ReadBootInfo(f)
}

// Run parses argv, boots the machine and blocks until it stops. The result
// is the process exit code.
func (c *BootCmd) Run(argv []string) int {
	fs := c.Flags
	cfgFile := fs.String("config", "", "extra "+config.FileName+" to apply after the search path")
	params := fs.String("params", "", "boot parameter block (512 bytes) to boot from")
	extMem := fs.Uint("ext", 0, "extended memory in KB")
	ramdisk := fs.Uint("ramdisk", 0, "ramdisk size in KB")
	rootDev := fs.Uint("root", 0, "root device number")
	rcScript := fs.String("rc", "", "host file installed as /etc/rc")
	prefix := fs.String("prefix", "", "host directory exposed read-only under /")
	ident := fs.String("ident", "", "identity call errors: "+models.IdentMinusOne+" or "+models.IdentEinval)
	tracefile := fs.String("trace", "", "write a syscall trace to <file>")
	proclog := fs.String("proclog", "", "write the process state log to <file>")
	verbose := fs.Bool("v", false, "verbose kernel output")
	color := fs.Bool("color", false, "force colored kernel output on or off (default: when output is a terminal)")
	outfile := fs.String("o", "", "redirect kernel output to file (default stderr)")
	var envSet strslice
	fs.Var(&envSet, "set", "set login shell environment var in the form name=value")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\nOptions:\n", argv[0])
		var flags []*flag.Flag
		fs.VisitAll(func(f *flag.Flag) { flags = append(flags, f) })
		models.PrintFlags(os.Stderr, flags)
	}
	if err := fs.Parse(argv[1:]); err != nil {
		return 2
	}

	// defaults, then boot.lish, then flags given on the command line
	cfg := models.NewConfig()
	if err := config.Load(cfg, *cfgFile); err != nil {
		c.PrintError(err)
		return 1
	}
	var err error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "ext":
			cfg.ExtMemKB = uint32(*extMem)
		case "ramdisk":
			cfg.RamdiskKB = uint32(*ramdisk)
		case "root":
			cfg.RootDev = uint16(*rootDev)
		case "prefix":
			cfg.RootPrefix, err = filepath.Abs(*prefix)
		case "ident":
			cfg.IdentityErrors = *ident
		case "trace":
			cfg.Tracefile = *tracefile
		case "proclog":
			cfg.ProcLog = *proclog
		case "v":
			cfg.Verbose = *verbose
		case "color":
			c.color = color
		}
	})
	if err != nil {
		c.PrintError(errors.Wrap(err, "bad -prefix"))
		return 1
	}
	if cfg.IdentityErrors != models.IdentMinusOne && cfg.IdentityErrors != models.IdentEinval {
		fmt.Fprintf(os.Stderr, "invalid -ident %q\n", cfg.IdentityErrors)
		return 2
	}
	if *rcScript != "" {
		data, err := os.ReadFile(*rcScript)
		if err != nil {
			c.PrintError(errors.Wrap(err, "failed to read rc script"))
			return 1
		}
		cfg.RcScript = string(data)
	}
	if len(envSet) > 0 {
		env := append([]string(nil), cfg.LoginShell.Envp...)
		for _, v := range envSet {
			if !strings.Contains(v, "=") {
				fmt.Fprintf(os.Stderr, "warning: skipping invalid env set %#v\n", v)
				continue
			}
			env = append(env, v)
		}
		cfg.LoginShell.Envp = env
	}
	if *outfile != "" {
		out, err := os.OpenFile(*outfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			c.PrintError(errors.Wrap(err, "failed to open output"))
			return 1
		}
		defer out.Close()
		cfg.Output = out
	}
	c.Config = cfg

	// the parameter block is captured before the machine exists
	if *params != "" {
		if c.Info, err = readParams(*params); err != nil {
			c.PrintError(err)
			return 1
		}
	} else {
		ext := cfg.ExtMemKB
		if ext > 0xffff {
			ext = 0xffff
		}
		c.Info = models.BootInfo{ExtMemKB: uint16(ext), RootDev: cfg.RootDev}
		drive := DefaultDrive
		c.Info.SetDrive(0, &drive)
	}
	return c.boot()
}

func (c *BootCmd) boot() int {
	cfg := c.Config
	log := klog.New(cfg.Output)
	if c.color != nil {
		log.SetColor(*c.color)
	} else if cfg.Color {
		log.SetColor(true)
	}
	if cfg.Verbose {
		log.SetLevel(klog.LevelDebug)
	}
	c.Log = log

	console, err := ui.NewConsole(c.Stdin, c.Stdout)
	if err != nil {
		c.PrintError(err)
		return 1
	}
	defer console.Close()

	k := vkernel.New(cfg, console)
	k.Log = log.Prefix("kernel")
	k.Install(models.ShellPath, sh.Main)
	console.OnEOF = k.Shutdown
	c.Kernel = k

	if cfg.Tracefile != "" {
		f, err := os.Create(cfg.Tracefile)
		if err != nil {
			c.PrintError(errors.Wrap(err, "failed to create trace file"))
			return 1
		}
		if err := k.SetTrace(f); err != nil {
			f.Close()
			c.PrintError(err)
			return 1
		}
	}
	if cfg.ProcLog != "" {
		f, err := os.Create(cfg.ProcLog)
		if err != nil {
			c.PrintError(errors.Wrap(err, "failed to create process log"))
			return 1
		}
		k.SetProcLog(f)
	}
	if c.SetupKernel != nil {
		if err := c.SetupKernel(); err != nil {
			c.PrintError(err)
			return 1
		}
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	go func() {
		select {
		case <-sigs:
			log.Warnf("interrupted, shutting down")
			k.Shutdown()
		case <-k.Done():
		}
	}()

	opt := boot.Options{RamdiskKB: cfg.RamdiskKB, Log: log}
	go boot.Main(k, c.Info, opt, func(state *boot.State) models.Entry {
		sup := initd.New(state, cfg)
		sup.Log = log.Prefix("init")
		return sup.Entry()
	})
	<-k.Done()
	if k.Halted() {
		return 1
	}
	return 0
}
