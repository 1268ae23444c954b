package utils

import (
	"fmt"
	"net"
)

const standardMTU int = 1500

// GetMaximumMTU returns the largest MTU of any local interface, or the
// Ethernet default when none can be read.
func GetMaximumMTU() int {
	ifaces, err := net.Interfaces()
	if err != nil || len(ifaces) == 0 {
		return standardMTU
	}
	maximumMTU := -1
	for _, iface := range ifaces {
		if iface.MTU > maximumMTU {
			maximumMTU = iface.MTU
		}
	}
	if maximumMTU <= 0 {
		return standardMTU
	}
	return maximumMTU
}

func GetMinimumMTU() int {
	ifaces, err := net.Interfaces()
	if err != nil {
		return standardMTU
	}

	minMTU := -1
	for _, iface := range ifaces {
		if iface.MTU <= 0 {
			continue
		}
		if minMTU == -1 || iface.MTU < minMTU {
			minMTU = iface.MTU
		}
	}
	if minMTU == -1 {
		return standardMTU
	}
	return minMTU
}

// GetNexthopMTU returns the MTU of the link the kernel would use towards
// destination. With considerPMTUCache the cached path MTU of the route also
// counts. Falls back to GetMinimumMTU when the route can't be resolved.
func GetNexthopMTU(destination net.IP, considerPMTUCache bool) int {
	mtus, err := nexthopMTUs(destination, considerPMTUCache)
	if err != nil || len(mtus) == 0 {
		return GetMinimumMTU()
	}
	minMTU := mtus[0]
	for _, mtu := range mtus[1:] {
		if mtu < minMTU {
			minMTU = mtu
		}
	}
	return minMTU
}

// IPv4 and UDP headers without options.
const (
	headerSizeIPv4 = 20
	headerSizeUDP  = 8
)

// MaxUDPPayload is the largest UDP payload that fits in one frame of mtu.
func MaxUDPPayload(mtu int) (int, error) {
	if mtu <= headerSizeIPv4+headerSizeUDP {
		return 0, fmt.Errorf("mtu %d too small for an ipv4 udp datagram", mtu)
	}
	return mtu - headerSizeIPv4 - headerSizeUDP, nil
}
