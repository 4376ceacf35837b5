package main

import (
	"os"

	"procmem/cmd/procmem/cmds"
)

func main() {
	if err := cmds.New().Execute(); err != nil {
		os.Exit(1)
	}
}
