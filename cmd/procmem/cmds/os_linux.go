//go:build linux

package cmds

import (
	"procmem/process"
	"procmem/process_linux"
)

func nativeOS() process.OS {
	return process_linux.New()
}
