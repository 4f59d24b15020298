package planner

import (
	"errors"

	"github.com/jbliao/kubesubnet/pkg/ipaddr"
)

var (
	// ErrMalformedCIDR indicates a pool or reservation that does not parse
	ErrMalformedCIDR = ipaddr.ErrMalformedCIDR
	// ErrNoPools indicates an empty pool list
	ErrNoPools = errors.New("no pools given")
	// ErrPoolTooLarge indicates a pool whose size does not fit in 128 bits (::/0)
	ErrPoolTooLarge = errors.New("pool too large")
	// ErrOverlappingPools indicates two pools sharing address space
	ErrOverlappingPools = errors.New("pools overlap")
	// ErrInvalidReservation indicates a reservation outside every pool or overlapping another one
	ErrInvalidReservation = errors.New("invalid reservation")
	// ErrUnknownStrategy indicates a strategy name the planner does not know
	ErrUnknownStrategy = errors.New("unknown strategy")
	// ErrInternalConsistency indicates overlapping blocks inside a pool
	ErrInternalConsistency = errors.New("internal consistency violation")

	// ErrInvalidRequestSize rejects a single request with a bad prefix length or host count
	ErrInvalidRequestSize = errors.New("invalid request size")
	// ErrWidthMismatch rejects a single request whose address family matches no pool
	ErrWidthMismatch = errors.New("address width mismatch")
	// ErrNoCapacity marks a request that fit in no pool
	ErrNoCapacity = errors.New("no capacity")
)

// Failure reasons reported in AllocationResult.FailureReason
const (
	ReasonInvalidRequestSize = "InvalidRequestSize"
	ReasonWidthMismatch      = "WidthMismatch"
	ReasonNoCapacity         = "NoCapacity"
)

// FailureReason maps a per-request error to its reason string
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRequestSize):
		return ReasonInvalidRequestSize
	case errors.Is(err, ErrWidthMismatch):
		return ReasonWidthMismatch
	case errors.Is(err, ErrNoCapacity):
		return ReasonNoCapacity
	}
	return "Unknown"
}
