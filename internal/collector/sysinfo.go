package collector

import (
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

// SystemInfo describes the host as a metadata document. Values that
// cannot be determined are left at their zero value rather than
// omitted, so consumers always see the full key set.
func SystemInfo(mem *Memory) map[string]any {
	info := map[string]any{
		"cpu_cores":       runtime.NumCPU(),
		"mem_total_bytes": uint64(0),
		"hostname":        "",
		"os_name":         "",
		"kernel_version":  "",
	}

	if mb, err := mem.Bytes(); err == nil {
		info["mem_total_bytes"] = mb.TotalBytes
	}

	if host, err := os.Hostname(); err == nil {
		info["hostname"] = host
	}

	var u unix.Utsname
	if err := unix.Uname(&u); err == nil {
		info["os_name"] = unix.ByteSliceToString(u.Sysname[:])
		info["kernel_version"] = unix.ByteSliceToString(u.Release[:])
	}

	return info
}
