//go:build linux

package utils

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
)

func nexthopMTUs(destination net.IP, considerPMTUCache bool) ([]int, error) {
	mtus := make([]int, 0)
	handle, err := netlink.NewHandle()
	if err != nil {
		return nil, fmt.Errorf("failed to create netlink handle: %v", err)
	}
	defer handle.Close()

	routes, err := handle.RouteGet(destination)
	if err != nil {
		return nil, fmt.Errorf("failed to get route for %s: %v", destination, err)
	}
	for _, route := range routes {
		link, err := handle.LinkByIndex(route.LinkIndex)
		if err != nil {
			return nil, fmt.Errorf("failed to get link by index %d: %v", route.LinkIndex, err)
		}
		if linkMtu := link.Attrs().MTU; linkMtu > 0 {
			mtus = append(mtus, linkMtu)
		}

		if considerPMTUCache {
			if routeMtu := route.MTU; routeMtu > 0 {
				mtus = append(mtus, routeMtu)
			}
		}
	}
	return mtus, nil
}
