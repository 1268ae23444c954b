//go:build linux || darwin

package hrtime

import "golang.org/x/sys/unix"

func nowNs() int64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return Unsupported
	}
	return ts.Nano()
}
