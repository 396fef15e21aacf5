//go:build linux

package memlimit

import "golang.org/x/sys/unix"

// totalRAMBytes reports the machine's total RAM via the sysinfo(2)
// syscall. ok is false if the syscall fails.
func totalRAMBytes() (uint64, bool) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, false
	}
	return uint64(info.Totalram) * uint64(info.Unit), true
}
