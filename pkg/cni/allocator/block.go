package allocator

import (
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/go-logr/logr"

	"github.com/jbliao/kubesubnet/pkg/cni"
	"github.com/jbliao/kubesubnet/pkg/ipaddr"
)

// ErrExhausted is returned when every host address of a subnet is leased
var ErrExhausted = errors.New("no free address left")

// maxAttempts bounds the retries when a concurrent ADD takes the picked address first
const maxAttempts = 8

// New returns the allocator called name. An empty name selects the basic allocator.
func New(name string, logger logr.Logger) (cni.Allocator, error) {
	switch name {
	case "", "basic":
		return NewBasicAllocator(logger), nil
	case "round-robin":
		return NewRoundRobinAllocator(logger), nil
	}
	return nil, fmt.Errorf("unknown allocator %q", name)
}

// block is the host range of a planned subnet. first..last excludes the IPv4
// network and broadcast addresses and the IPv6 subnet-router anycast address.
type block struct {
	request     string
	subnet      ipaddr.Prefix
	first, last ipaddr.Uint128
	gateway     ipaddr.Uint128
	hasGateway  bool
}

func loadBlock(pool cni.Pool, request, gateway string) (*block, error) {
	alloc, err := pool.Allocation(request)
	if err != nil {
		return nil, err
	}
	if !alloc.Success {
		return nil, fmt.Errorf("request %q was not placed: %s %s", request, alloc.FailureReason, alloc.Message)
	}
	subnet, err := ipaddr.ParseCIDR(alloc.CIDR)
	if err != nil {
		return nil, err
	}

	b := &block{request: request, subnet: subnet, first: subnet.FirstUsable(), last: subnet.LastUsable()}
	if subnet.Width == ipaddr.IPv6 && b.first != b.last {
		b.first = b.first.Add(ipaddr.One)
	}

	switch {
	case gateway != "":
		gw, err := netip.ParseAddr(gateway)
		if err != nil {
			return nil, fmt.Errorf("gateway %q: %w", gateway, err)
		}
		v, w := ipaddr.AddrFrom(gw)
		if w != subnet.Width || !subnet.Contains(v) {
			return nil, fmt.Errorf("gateway %q is not inside %s", gateway, subnet)
		}
		b.gateway, b.hasGateway = v, true
	case b.first != b.last:
		b.gateway, b.hasGateway = b.last, true
	}
	return b, nil
}

func (b *block) format(a ipaddr.Uint128) string {
	return ipaddr.FormatAddr(a, b.subnet.Width)
}

func (b *block) parse(address string) (ipaddr.Uint128, bool) {
	ip, err := netip.ParseAddr(address)
	if err != nil {
		return ipaddr.Uint128{}, false
	}
	v, w := ipaddr.AddrFrom(ip)
	return v, w == b.subnet.Width && v.Cmp(b.first) >= 0 && v.Cmp(b.last) <= 0
}

func (b *block) free(a ipaddr.Uint128, taken map[string]string) bool {
	if b.hasGateway && a == b.gateway {
		return false
	}
	_, used := taken[b.format(a)]
	return !used
}

// next steps to the following host address, wrapping at the end of the range
func (b *block) next(a ipaddr.Uint128) ipaddr.Uint128 {
	if a == b.last {
		return b.first
	}
	return a.Add(ipaddr.One)
}

// scan returns the first free address at or after start, wrapping once
func (b *block) scan(start ipaddr.Uint128, taken map[string]string) (ipaddr.Uint128, bool) {
	if start.Cmp(b.first) < 0 || start.Cmp(b.last) > 0 {
		start = b.first
	}
	for a := start; ; {
		if b.free(a, taken) {
			return a, true
		}
		if a = b.next(a); a == start {
			return ipaddr.Uint128{}, false
		}
	}
}

func (b *block) lease(a ipaddr.Uint128) *cni.Lease {
	l := &cni.Lease{
		Address: b.subnet.IPNet(a),
		Subnet:  b.subnet.IPNet(b.subnet.Addr),
	}
	if b.hasGateway {
		l.Gateway = net.IP(b.gateway.NetIP(b.subnet.Width).AsSlice())
	}
	return l
}

// allocate leases containerID an address of request. startAt picks where the
// scan for a free address begins.
func allocate(pool cni.Pool, request, containerID, gateway string, logger logr.Logger,
	startAt func(*block) (ipaddr.Uint128, error)) (*cni.Lease, error) {
	b, err := loadBlock(pool, request, gateway)
	if err != nil {
		return nil, err
	}

	// a repeated ADD gets its lease back
	held, ok, err := pool.LeaseOf(containerID)
	if err != nil {
		return nil, err
	}
	if ok {
		if a, valid := b.parse(held.Address); held.Request == request && valid && b.free(a, nil) {
			logger.Info("reuse lease", "request", request, "address", held.Address)
			return b.lease(a), nil
		}
		logger.Info("drop stale lease", "request", held.Request, "address", held.Address)
		if err := pool.MarkAddressReleased(containerID); err != nil {
			return nil, err
		}
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		taken, err := pool.Leases(request)
		if err != nil {
			return nil, err
		}
		start, err := startAt(b)
		if err != nil {
			return nil, err
		}
		a, ok := b.scan(start, taken)
		if !ok {
			return nil, fmt.Errorf("%w in %s for request %q", ErrExhausted, b.subnet, request)
		}

		err = pool.MarkAddressAllocated(request, b.format(a), containerID)
		if errors.Is(err, cni.ErrAddressTaken) {
			logger.V(1).Info("address taken concurrently, retrying", "address", b.format(a))
			continue
		}
		if err != nil {
			return nil, err
		}
		l := b.lease(a)
		logger.Info("allocated address", "request", request, "address", l.Address.String(), "gateway", l.Gateway.String())
		return l, nil
	}
	return nil, fmt.Errorf("request %q: no address could be leased after %d attempts", request, maxAttempts)
}

// check verifies that containerID still holds ip inside the request's subnet
func check(pool cni.Pool, request, containerID string, ip net.IP) error {
	b, err := loadBlock(pool, request, "")
	if err != nil {
		return err
	}
	n := b.subnet.IPNet(b.subnet.Addr)
	if !n.Contains(ip) {
		return fmt.Errorf("address %v is no longer inside %s", ip, b.subnet)
	}
	held, ok, err := pool.LeaseOf(containerID)
	if err != nil {
		return err
	}
	if !ok || held.Request != request || !net.ParseIP(held.Address).Equal(ip) {
		return fmt.Errorf("address %v is not leased to container %s", ip, containerID)
	}
	return nil
}
