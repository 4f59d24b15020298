package allocator

import (
	"net"

	"github.com/go-logr/logr"

	"github.com/jbliao/kubesubnet/pkg/cni"
	"github.com/jbliao/kubesubnet/pkg/ipaddr"
)

// BasicAllocator hands out the lowest free host address of a planned subnet
type BasicAllocator struct {
	logger logr.Logger
}

// NewBasicAllocator ...
func NewBasicAllocator(logger logr.Logger) *BasicAllocator {
	return &BasicAllocator{logger: logger}
}

// Allocate leases containerID the lowest free address of the request's subnet.
// An empty gateway selects the last usable address.
func (a *BasicAllocator) Allocate(pool cni.Pool, request, containerID, gateway string) (*cni.Lease, error) {
	return allocate(pool, request, containerID, gateway, a.logger, func(b *block) (ipaddr.Uint128, error) {
		return b.first, nil
	})
}

// Check verifies containerID still holds ip in the request's subnet
func (a *BasicAllocator) Check(pool cni.Pool, request, containerID string, ip net.IP) error {
	return check(pool, request, containerID, ip)
}

// Release returns the address of containerID to the subnet
func (a *BasicAllocator) Release(pool cni.Pool, containerID string) error {
	a.logger.Info("release", "containerID", containerID)
	return pool.MarkAddressReleased(containerID)
}
