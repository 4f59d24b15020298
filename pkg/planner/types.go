package planner

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/jbliao/kubesubnet/pkg/ipaddr"
)

// Strategy selects request ordering and block placement
type Strategy string

const (
	// StrategyPreserveOrder processes requests by ascending priority and places first-fit
	StrategyPreserveOrder Strategy = "preserve-order"
	// StrategyFirstFit processes requests largest first and places first-fit
	StrategyFirstFit Strategy = "first-fit"
	// StrategyBestFit processes requests largest first and places best-fit
	StrategyBestFit Strategy = "best-fit"

	// DefaultStrategy is used when Input.Strategy is empty
	DefaultStrategy = StrategyBestFit
)

// Strategies lists every known strategy
var Strategies = []Strategy{StrategyPreserveOrder, StrategyFirstFit, StrategyBestFit}

// ParseStrategy validates s. An empty string yields DefaultStrategy.
func ParseStrategy(s string) (Strategy, error) {
	if s == "" {
		return DefaultStrategy, nil
	}
	for _, known := range Strategies {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownStrategy, s)
}

// RequestSpec is one subnet request as supplied by the caller.
// Exactly one of PrefixLength and HostCount must be set.
type RequestSpec struct {
	ID           string `json:"id,omitempty" yaml:"id,omitempty"`
	Name         string `json:"name" yaml:"name"`
	PrefixLength *int   `json:"prefixLength,omitempty" yaml:"prefixLength,omitempty"`
	HostCount    *int64 `json:"hostCount,omitempty" yaml:"hostCount,omitempty"`
	Priority     int    `json:"priority,omitempty" yaml:"priority,omitempty"`
	// Family is "ipv4" or "ipv6". Empty means the family of the first pool.
	Family string `json:"family,omitempty" yaml:"family,omitempty"`
}

// PrefixLength returns a pointer to n, for RequestSpec literals
func PrefixLength(n int) *int {
	return &n
}

// HostCount returns a pointer to n, for RequestSpec literals
func HostCount(n int64) *int64 {
	return &n
}

// Input is the snapshot consumed by one planning run
type Input struct {
	// Pools are CIDRs, searched in this order for every request
	Pools    []string      `json:"pools" yaml:"pools"`
	Requests []RequestSpec `json:"requests" yaml:"requests"`
	Strategy Strategy      `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	// UsableHostsOnly reserves network and broadcast addresses for IPv4 host counts
	UsableHostsOnly bool `json:"usableHostsOnly,omitempty" yaml:"usableHostsOnly,omitempty"`
	// Reserved are CIDRs already in use inside the pools
	Reserved []string `json:"reserved,omitempty" yaml:"reserved,omitempty"`
}

func (in Input) copy() Input {
	out := in
	out.Pools = append([]string(nil), in.Pools...)
	out.Reserved = append([]string(nil), in.Reserved...)
	out.Requests = make([]RequestSpec, len(in.Requests))
	for i, r := range in.Requests {
		if r.PrefixLength != nil {
			r.PrefixLength = PrefixLength(*r.PrefixLength)
		}
		if r.HostCount != nil {
			r.HostCount = HostCount(*r.HostCount)
		}
		out.Requests[i] = r
	}
	return out
}

// Pool is a parsed address pool
type Pool struct {
	ID     int
	Prefix ipaddr.Prefix
}

// Request is a sized request ready for placement
type Request struct {
	ID       string
	Name     string
	Index    int
	Priority int
	Width    ipaddr.Width
	// HostBits is log2 of the requested block size
	HostBits uint

	err error
}

// Allocation is a block committed to a pool. Reservations carry an empty RequestID.
type Allocation struct {
	RequestID string
	PoolID    int
	Start     ipaddr.Uint128
	HostBits  uint
	Reserved  bool
}

// Last returns the highest address of the block
func (a Allocation) Last() ipaddr.Uint128 {
	return a.Start.Or(ipaddr.Mask(a.HostBits))
}

// Prefix returns the block as a CIDR of width w
func (a Allocation) Prefix(w ipaddr.Width) ipaddr.Prefix {
	return ipaddr.Prefix{Addr: a.Start, Bits: int(w) - int(a.HostBits), Width: w}
}

// FreeBlock is a contiguous unallocated range of a pool
type FreeBlock struct {
	Start ipaddr.Uint128
	Size  ipaddr.Uint128
}

// Last returns the highest address of the range
func (b FreeBlock) Last() ipaddr.Uint128 {
	return b.Start.Add(b.Size).Sub(ipaddr.One)
}

// AllocationResult reports the outcome of one request
type AllocationResult struct {
	RequestID     string   `json:"requestId"`
	RequestName   string   `json:"requestName"`
	Success       bool     `json:"success"`
	CIDR          string   `json:"cidr,omitempty"`
	PoolCIDR      string   `json:"poolCidr,omitempty"`
	Size          *big.Int `json:"size,omitempty"`
	FirstUsable   string   `json:"firstUsable,omitempty"`
	LastUsable    string   `json:"lastUsable,omitempty"`
	UsableHosts   *big.Int `json:"usableHosts,omitempty"`
	FailureReason string   `json:"failureReason,omitempty"`
	Detail        string   `json:"detail,omitempty"`
}

// FreeBlockReport is one aligned CIDR of free space
type FreeBlockReport struct {
	CIDR string   `json:"cidr"`
	Size *big.Int `json:"size"`
}

// FreeRangeReport is one raw free range, not necessarily CIDR aligned
type FreeRangeReport struct {
	Start string   `json:"start"`
	End   string   `json:"end"`
	Size  *big.Int `json:"size"`
}

// PoolReport summarises one pool after planning
type PoolReport struct {
	CIDR               string            `json:"cidr"`
	FreeBlocks         []FreeBlockReport `json:"freeBlocks"`
	FreeRanges         []FreeRangeReport `json:"freeRanges"`
	AllocatedSpace     *big.Int          `json:"allocatedSpace"`
	ReservedSpace      *big.Int          `json:"reservedSpace"`
	UtilizationPercent float64           `json:"utilizationPercent"`
}

// Summary aggregates the whole run
type Summary struct {
	TotalRequests       int      `json:"totalRequests"`
	SuccessCount        int      `json:"successCount"`
	FailureCount        int      `json:"failureCount"`
	TotalPoolSpace      *big.Int `json:"totalPoolSpace"`
	TotalAllocatedSpace *big.Int `json:"totalAllocatedSpace"`
	ReservedSpace       *big.Int `json:"reservedSpace"`
	WastedSpace         *big.Int `json:"wastedSpace"`
	EfficiencyPercent   float64  `json:"efficiencyPercent"`
}

// Result is the output of Plan
type Result struct {
	Strategy    Strategy           `json:"strategy"`
	Allocations []AllocationResult `json:"allocations"`
	PoolReports []PoolReport       `json:"poolReports"`
	Summary     Summary            `json:"summary"`

	pools     []Pool
	committed [][]Allocation
}
