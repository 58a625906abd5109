package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/lunixbochs/fvbommel-util/sortorder"
)

// subcommand is one verb of the bootcorn binary. main gets argv with the
// verb folded into argv[0], so flag usage reads "bootcorn boot".
type subcommand struct {
	name, desc string
	main       func(args []string)
}

var subcommands = make(map[string]*subcommand)

// Register adds a subcommand. Packages under go/cmd call it from init.
func Register(name, desc string, main func(args []string)) {
	if _, dup := subcommands[name]; dup {
		panic("cmd: subcommand registered twice: " + name)
	}
	subcommands[name] = &subcommand{name, desc, main}
}

func listCommands(w io.Writer, prog string) {
	names := make([]string, 0, len(subcommands))
	width := 0
	for name := range subcommands {
		names = append(names, name)
		if len(name) > width {
			width = len(name)
		}
	}
	sort.Sort(sortorder.Natural(names))
	fmt.Fprintf(w, "Usage: %s <command> [options]\n\nCommands:\n", prog)
	for _, name := range names {
		fmt.Fprintf(w, "  %-*s  %s\n", width, name, subcommands[name].desc)
	}
	fmt.Fprintf(w, "\nBoot a 7M machine with a 512K ramdisk and keep a trace:\n  %s boot -ext 7168 -ramdisk 512 -trace boot.trace\n", prog)
}

// Launch dispatches argv[1] and returns the exit code for errors it
// handles itself. Subcommands exit on their own.
func Launch(w io.Writer, argv []string) int {
	if len(argv) < 2 {
		listCommands(w, argv[0])
		return 1
	}
	switch argv[1] {
	case "help", "-h", "-help", "--help":
		listCommands(w, argv[0])
		return 0
	}
	sub, ok := subcommands[argv[1]]
	if !ok {
		fmt.Fprintf(w, "%s: unknown command %q\n\n", argv[0], argv[1])
		listCommands(w, argv[0])
		return 1
	}
	args := append([]string{argv[0] + " " + argv[1]}, argv[2:]...)
	sub.main(args)
	return 0
}

func Main() {
	os.Exit(Launch(os.Stderr, os.Args))
}
