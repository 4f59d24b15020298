package cni

import (
	"net"
)

// Lease is an address handed to a container
type Lease struct {
	// Address carries the subnet's mask
	Address net.IPNet
	// Gateway is nil when the subnet has room for a single host only
	Gateway net.IP
	// Subnet is the planned block the address was taken from
	Subnet net.IPNet
}

// Allocator define the allocator interface
type Allocator interface {
	Allocate(pool Pool, request, containerID, gateway string) (*Lease, error)
	Check(pool Pool, request, containerID string, ip net.IP) error
	Release(pool Pool, containerID string) error
}
