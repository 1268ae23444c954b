//go:build !linux && !darwin

package hrtime

func nowNs() int64 {
	return Unsupported
}
