package cni

import (
	"fmt"
	"net"

	"github.com/containernetworking/cni/pkg/types"
)

// Routes returns a default route through gw for the address family of gw
// followed by one route per extra destination.
func Routes(gw net.IP, extra []string) ([]*types.Route, error) {
	var routes []*types.Route
	if gw != nil {
		bits := 128
		if gw.To4() != nil {
			bits = 32
		}
		routes = append(routes, &types.Route{
			Dst: net.IPNet{IP: net.IPv6zero, Mask: net.CIDRMask(0, bits)},
			GW:  gw,
		})
		if bits == 32 {
			routes[0].Dst.IP = net.IPv4zero.To4()
		}
	}

	for _, raw := range extra {
		_, ipnet, err := net.ParseCIDR(raw)
		if err != nil {
			return nil, fmt.Errorf("route %q: %w", raw, err)
		}
		routes = append(routes, &types.Route{
			Dst: *ipnet,
			GW:  gw,
		})
	}
	return routes, nil
}
