//go:build windows

package cmds

import (
	"procmem/process"
	"procmem/process_windows"
)

func nativeOS() process.OS {
	return process_windows.New()
}
