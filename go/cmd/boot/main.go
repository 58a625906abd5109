package boot

import (
	"os"

	"github.com/lunixbochs/bootcorn/go/cmd"
)

func Main(args []string) {
	os.Exit(cmd.NewBootCmd().Run(args))
}

func init() { cmd.Register("boot", "boot the simulated machine on this terminal", Main) }
