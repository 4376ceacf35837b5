//go:build !linux && !windows

package cmds

import "procmem/process"

func nativeOS() process.OS {
	return process.Unsupported{}
}
