package trace

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/lunixbochs/fvbommel-util/sortorder"
	"github.com/pkg/errors"

	"github.com/lunixbochs/bootcorn/go/cmd"
	"github.com/lunixbochs/bootcorn/go/kernel/vkernel"
	"github.com/lunixbochs/bootcorn/go/models/trace"
	"github.com/lunixbochs/bootcorn/go/ui"
)

func PrintJson(tf *trace.TraceReader, w io.Writer) error {
	out, err := json.Marshal(&tf.Header)
	if err != nil {
		return errors.Wrap(err, "error printing header")
	}
	fmt.Fprintf(w, "%s\n", out)
	for {
		op, err := tf.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return errors.Wrap(err, "error reading next trace operation")
		}
		out, _ := json.Marshal(op)
		fmt.Fprintf(w, "%s\n", out)
	}
	return nil
}

func PrintPretty(tf *trace.TraceReader, w io.Writer, pid int) error {
	stream := ui.NewStreamUI(w)
	stream.Pid = pid
	for {
		op, err := tf.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return errors.Wrap(err, "error reading next trace operation")
		}
		stream.Feed(op)
	}
	return nil
}

// PrintSummary counts calls by name.
func PrintSummary(tf *trace.TraceReader, w io.Writer) error {
	counts := make(map[string]int)
	for {
		op, err := tf.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return errors.Wrap(err, "error reading next trace operation")
		}
		if sys, ok := op.(*trace.OpSyscall); ok {
			counts[vkernel.SysName(int(int32(sys.Num)))]++
		}
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Sort(sortorder.Natural(names))
	for _, name := range names {
		fmt.Fprintf(w, "%8d %s\n", counts[name], name)
	}
	return nil
}

func Main(args []string) {
	fs := flag.NewFlagSet("args", flag.ExitOnError)
	jsonFlag := fs.Bool("json", false, "output trace as line-delimited JSON objects")
	summaryFlag := fs.Bool("summary", false, "count system calls by name")
	pid := fs.Int("pid", 0, "only show this process")
	fs.Usage = func() {
		fmt.Printf("Usage: %s [options] <tracefile>\n", args[0])
		fs.PrintDefaults()
	}

	fs.Parse(args[1:])
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(1)
	}
	args = fs.Args()

	f, err := os.Open(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open: %s %v\n", args[0], err)
		os.Exit(1)
	}
	tf, err := trace.NewReader(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening trace file: %v\n", err)
		os.Exit(1)
	}
	defer tf.Close()
	switch {
	case *jsonFlag:
		err = PrintJson(tf, os.Stdout)
	case *summaryFlag:
		err = PrintSummary(tf, os.Stdout)
	default:
		err = PrintPretty(tf, os.Stdout, *pid)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error printing trace: %v\n", err)
		os.Exit(1)
	}
}

func init() { cmd.Register("trace", "decode a saved syscall trace", Main) }
