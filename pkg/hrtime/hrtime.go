// Package hrtime exposes a monotonic nanosecond clock and a millisecond sleep.
package hrtime

import "time"

// Unsupported is returned by NowNs where no monotonic clock is available.
const Unsupported int64 = -1

// NowNs returns a monotonic timestamp in nanoseconds. Only differences between
// two readings are meaningful.
func NowNs() int64 {
	return nowNs()
}

// SleepMs blocks for ms milliseconds. Non-positive values return at once.
func SleepMs(ms int64) {
	if ms <= 0 {
		return
	}
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

// Since returns the time elapsed after start, a value from NowNs.
func Since(start int64) time.Duration {
	now := NowNs()
	if now == Unsupported || start == Unsupported {
		return 0
	}
	return time.Duration(now - start)
}
