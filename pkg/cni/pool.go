package cni

import (
	"errors"

	"github.com/jbliao/kubesubnet/api/v1alpha1"
)

// ErrAddressTaken is returned when an address is already leased to another container
var ErrAddressTaken = errors.New("address already leased")

// Pool is used for allocator. It exposes the planned subnets of one SubnetPlan
// and the container leases taken from them.
type Pool interface {
	// Allocation returns the status entry of the named request
	Allocation(request string) (v1alpha1.SubnetAllocation, error)
	// Leases returns the addresses leased from request, mapped to their container IDs
	Leases(request string) (map[string]string, error)
	// LastLeased returns the address most recently leased from request, or ""
	LastLeased(request string) (string, error)
	// LeaseOf returns the lease held by containerID
	LeaseOf(containerID string) (v1alpha1.AddressLease, bool, error)
	// MarkAddressAllocated records address as leased to containerID. It fails
	// with ErrAddressTaken when another container holds the address.
	MarkAddressAllocated(request, address, containerID string) error
	// MarkAddressReleased drops the lease of containerID, if any
	MarkAddressReleased(containerID string) error
}
