//go:build !linux

package utils

import (
	"errors"
	"net"
)

func nexthopMTUs(net.IP, bool) ([]int, error) {
	return nil, errors.New("route lookup needs netlink")
}
