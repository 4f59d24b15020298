package allocator

import (
	"net"

	"github.com/go-logr/logr"

	"github.com/jbliao/kubesubnet/pkg/cni"
	"github.com/jbliao/kubesubnet/pkg/ipaddr"
)

// RoundRobinAllocator hands out addresses in turn, starting after the last
// leased one, so a released address is not reused right away
type RoundRobinAllocator struct {
	logger logr.Logger
}

// NewRoundRobinAllocator ...
func NewRoundRobinAllocator(logger logr.Logger) *RoundRobinAllocator {
	return &RoundRobinAllocator{logger: logger}
}

// Allocate leases containerID the first free address after the request's last lease
func (a *RoundRobinAllocator) Allocate(pool cni.Pool, request, containerID, gateway string) (*cni.Lease, error) {
	return allocate(pool, request, containerID, gateway, a.logger, func(b *block) (ipaddr.Uint128, error) {
		last, err := pool.LastLeased(request)
		if err != nil {
			return ipaddr.Uint128{}, err
		}
		if v, ok := b.parse(last); ok {
			return b.next(v), nil
		}
		return b.first, nil
	})
}

// Check verifies containerID still holds ip in the request's subnet
func (a *RoundRobinAllocator) Check(pool cni.Pool, request, containerID string, ip net.IP) error {
	return check(pool, request, containerID, ip)
}

// Release returns the address of containerID to the subnet
func (a *RoundRobinAllocator) Release(pool cni.Pool, containerID string) error {
	a.logger.Info("release", "containerID", containerID)
	return pool.MarkAddressReleased(containerID)
}
