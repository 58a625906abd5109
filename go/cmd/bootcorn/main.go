package main

import (
	"os"

	"github.com/lunixbochs/bootcorn/go/cmd"
)

func main() {
	os.Exit(cmd.NewBootCmd().Run(os.Args))
}
