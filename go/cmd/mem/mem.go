package mem

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/lunixbochs/bootcorn/go/boot"
	"github.com/lunixbochs/bootcorn/go/cmd"
	"github.com/lunixbochs/bootcorn/go/initd"
	"github.com/lunixbochs/bootcorn/go/kernel/vkernel"
	"github.com/lunixbochs/bootcorn/go/models"
)

type plan struct {
	MemoryEnd       uint64 `json:"memory_end"`
	BufferMemoryEnd uint64 `json:"buffer_memory_end"`
	MainMemoryStart uint64 `json:"main_memory_start"`
	Ramdisk         uint64 `json:"ramdisk"`
	Buffers         int    `json:"buffers"`
	FreeMemory      uint64 `json:"free_memory"`
}

// Plan runs the memory planner and the subsystem initializers on a scratch
// machine to find the buffer count init would report.
func Plan(extKB, ramdiskKB uint32) (*plan, error) {
	layout := boot.PlanMemory(extKB, ramdiskKB)
	k := vkernel.New(nil, nil)
	defer k.Shutdown()
	ini := boot.NewInitializer(k, layout, boot.Steps(layout.Ramdisk() > 0))
	if err := ini.Run(); err != nil {
		return nil, err
	}
	return &plan{
		MemoryEnd:       layout.MemoryEnd,
		BufferMemoryEnd: layout.BufferMemoryEnd,
		MainMemoryStart: layout.MainMemoryStart,
		Ramdisk:         layout.Ramdisk(),
		Buffers:         ini.Buffers,
		FreeMemory:      layout.FreeMemory(),
	}, nil
}

func parseKB(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 0, 32)
	return uint32(n), err
}

func Main(args []string) {
	fs := flag.NewFlagSet("mem", flag.ExitOnError)
	jsonFlag := fs.Bool("json", false, "output the plan as JSON")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <ext-kb> [ramdisk-kb]\n", args[0])
		fs.PrintDefaults()
	}
	fs.Parse(args[1:])
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fs.Usage()
		os.Exit(1)
	}
	ext, err := parseKB(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad extended memory size: %v\n", err)
		os.Exit(1)
	}
	var ramdisk uint32
	if fs.NArg() > 1 {
		if ramdisk, err = parseKB(fs.Arg(1)); err != nil {
			fmt.Fprintf(os.Stderr, "bad ramdisk size: %v\n", err)
			os.Exit(1)
		}
	}
	p, err := Plan(ext, ramdisk)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if *jsonFlag {
		out, _ := json.Marshal(p)
		fmt.Printf("%s\n", out)
		return
	}
	fmt.Printf("memory end        %#x (%d KB)\n", p.MemoryEnd, p.MemoryEnd/models.KB)
	fmt.Printf("buffer memory end %#x\n", p.BufferMemoryEnd)
	fmt.Printf("main memory start %#x\n", p.MainMemoryStart)
	if p.Ramdisk > 0 {
		fmt.Printf("%d bytes ramdisk\n", p.Ramdisk)
	}
	fmt.Printf("%d buffers = %d bytes buffer space\n", p.Buffers, p.Buffers*initd.BlockSize)
	fmt.Printf("Free mem: %d bytes\n", p.FreeMemory)
}

func init() { cmd.Register("mem", "print the boot memory plan for a machine size", Main) }
