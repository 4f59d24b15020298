package planner

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/go-logr/logr"

	"github.com/jbliao/kubesubnet/pkg/ipaddr"
)

// Ordering sorts requests into processing order. Implementations must be
// stable so that equal keys keep their input order.
type Ordering func(reqs []Request)

// ByPriority orders requests by ascending Priority
func ByPriority(reqs []Request) {
	sort.SliceStable(reqs, func(i, j int) bool {
		return reqs[i].Priority < reqs[j].Priority
	})
}

// LargestFirst orders requests by descending block size. Large aligned blocks
// placed early cannot be blocked by smaller ones fragmenting the space.
func LargestFirst(reqs []Request) {
	sort.SliceStable(reqs, func(i, j int) bool {
		return reqs[i].HostBits > reqs[j].HostBits
	})
}

// Planner runs planning passes. It is immutable after New and safe for concurrent use.
type Planner struct {
	logger    logr.Logger
	placement Placement
	ordering  Ordering
}

// Option configures a Planner
type Option func(*Planner)

// WithPlacement overrides the placement implied by the strategy
func WithPlacement(p Placement) Option {
	return func(pl *Planner) {
		pl.placement = p
	}
}

// WithOrdering overrides the ordering implied by the strategy
func WithOrdering(o Ordering) Option {
	return func(pl *Planner) {
		pl.ordering = o
	}
}

// New returns a Planner logging to logger
func New(logger logr.Logger, opts ...Option) *Planner {
	p := &Planner{logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan runs one planning pass with a Planner that does not log
func Plan(in Input) (*Result, error) {
	return New(logr.Discard()).Plan(in)
}

func (p *Planner) strategy(s Strategy) (Ordering, Placement) {
	ordering, placement := LargestFirst, FirstFit
	switch s {
	case StrategyPreserveOrder:
		ordering = ByPriority
	case StrategyBestFit:
		placement = BestFit
	}
	if p.ordering != nil {
		ordering = p.ordering
	}
	if p.placement != nil {
		placement = p.placement
	}
	return ordering, placement
}

// Plan places every request of in. Malformed or overlapping pools and bad
// reservations abort the run with an error and no result. Problems with a
// single request are reported in its AllocationResult.
func (p *Planner) Plan(in Input) (*Result, error) {
	in = in.copy()

	strategy, err := ParseStrategy(string(in.Strategy))
	if err != nil {
		return nil, err
	}
	ordering, placement := p.strategy(strategy)

	pools, err := parsePools(in.Pools)
	if err != nil {
		return nil, err
	}
	committed, err := reserve(pools, in.Reserved)
	if err != nil {
		return nil, err
	}

	requests := buildRequests(in, pools)
	queue := make([]Request, 0, len(requests))
	for _, r := range requests {
		if r.err == nil {
			queue = append(queue, r)
			continue
		}
		p.logger.V(1).Info("rejected request", "request", r.Name, "reason", r.err.Error())
	}
	ordering(queue)

	placed := make(map[int]Allocation, len(queue))
	for _, r := range queue {
		a, ok, err := p.place(r, pools, committed, placement)
		if err != nil {
			return nil, err
		}
		if !ok {
			requests[r.Index].err = fmt.Errorf("%w: no pool has a free aligned /%d block",
				ErrNoCapacity, int(r.Width)-int(r.HostBits))
			p.logger.V(1).Info("request does not fit", "request", r.Name, "hostBits", r.HostBits)
			continue
		}
		committed[a.PoolID] = append(committed[a.PoolID], a)
		placed[r.Index] = a
		p.logger.V(1).Info("placed request", "request", r.Name,
			"cidr", a.Prefix(r.Width).String(), "pool", pools[a.PoolID].Prefix.String())
	}

	result := &Result{
		Strategy:    strategy,
		Allocations: allocationResults(requests, placed, pools),
		pools:       pools,
		committed:   committed,
	}
	if err := result.report(requests); err != nil {
		return nil, err
	}

	p.logger.V(1).Info("plan computed", "strategy", string(strategy), "placement", placement.Name(),
		"requests", result.Summary.TotalRequests, "failures", result.Summary.FailureCount,
		"efficiency", result.Summary.EfficiencyPercent)
	return result, nil
}

// place tries the pools in order and returns the first block placement finds
func (p *Planner) place(r Request, pools []Pool, committed [][]Allocation, placement Placement) (Allocation, bool, error) {
	for _, pool := range pools {
		if pool.Prefix.Width != r.Width || r.HostBits > pool.Prefix.HostBits() {
			continue
		}
		free, err := freeBlocks(pool, committed[pool.ID])
		if err != nil {
			return Allocation{}, false, err
		}
		start, _, ok := placement.Place(free, r.HostBits)
		if !ok {
			continue
		}
		return Allocation{RequestID: r.ID, PoolID: pool.ID, Start: start, HostBits: r.HostBits}, true, nil
	}
	return Allocation{}, false, nil
}

func parsePools(cidrs []string) ([]Pool, error) {
	if len(cidrs) == 0 {
		return nil, ErrNoPools
	}

	pools := make([]Pool, len(cidrs))
	for i, text := range cidrs {
		prefix, err := ipaddr.ParseCIDR(text)
		if err != nil {
			return nil, fmt.Errorf("pool %d: %w", i, err)
		}
		if prefix.Size().IsZero() {
			return nil, fmt.Errorf("%w: %s", ErrPoolTooLarge, prefix)
		}
		pools[i] = Pool{ID: i, Prefix: prefix}
	}

	// Prefixes either nest or are disjoint, so after sorting by start any
	// overlap shows up between neighbours.
	byStart := append([]Pool(nil), pools...)
	sort.SliceStable(byStart, func(i, j int) bool {
		a, b := byStart[i].Prefix, byStart[j].Prefix
		if a.Width != b.Width {
			return a.Width < b.Width
		}
		return a.Addr.Less(b.Addr)
	})
	for i := 1; i < len(byStart); i++ {
		if byStart[i-1].Prefix.Overlaps(byStart[i].Prefix) {
			return nil, fmt.Errorf("%w: %s and %s", ErrOverlappingPools, byStart[i-1].Prefix, byStart[i].Prefix)
		}
	}
	return pools, nil
}

// reserve seeds every pool with the reserved blocks that fall inside it
func reserve(pools []Pool, reserved []string) ([][]Allocation, error) {
	committed := make([][]Allocation, len(pools))
	for _, text := range reserved {
		prefix, err := ipaddr.ParseCIDR(text)
		if err != nil {
			return nil, fmt.Errorf("reservation: %w", err)
		}
		owner := -1
		for _, pool := range pools {
			if pool.Prefix.ContainsPrefix(prefix) {
				owner = pool.ID
				break
			}
		}
		if owner < 0 {
			return nil, fmt.Errorf("%w: %s is not inside any pool", ErrInvalidReservation, prefix)
		}
		for _, other := range committed[owner] {
			if other.Prefix(prefix.Width).Overlaps(prefix) {
				return nil, fmt.Errorf("%w: %s overlaps %s", ErrInvalidReservation, prefix, other.Prefix(prefix.Width))
			}
		}
		committed[owner] = append(committed[owner], Allocation{
			PoolID:   owner,
			Start:    prefix.Addr,
			HostBits: prefix.HostBits(),
			Reserved: true,
		})
	}
	return committed, nil
}

func buildRequests(in Input, pools []Pool) []Request {
	widths := make(map[ipaddr.Width]bool, 2)
	for _, pool := range pools {
		widths[pool.Prefix.Width] = true
	}

	requests := make([]Request, len(in.Requests))
	for i, spec := range in.Requests {
		r := Request{ID: spec.ID, Name: spec.Name, Index: i, Priority: spec.Priority, Width: pools[0].Prefix.Width}
		if r.ID == "" {
			r.ID = "request-" + strconv.Itoa(i)
		}
		if r.Name == "" {
			r.Name = r.ID
		}
		if spec.Family != "" {
			w, err := ipaddr.ParseFamily(spec.Family)
			if err != nil {
				r.err = fmt.Errorf("%w: %v", ErrWidthMismatch, err)
				requests[i] = r
				continue
			}
			r.Width = w
		}

		r.HostBits, r.err = requestHostBits(spec, r.Width, in.UsableHostsOnly)
		if r.err == nil && !widths[r.Width] {
			r.err = fmt.Errorf("%w: no %s pool for request %q", ErrWidthMismatch, r.Width, r.Name)
		}
		requests[i] = r
	}
	return requests
}

// requestHostBits converts a prefix length or host count into log2 of the block size
func requestHostBits(spec RequestSpec, w ipaddr.Width, usableHostsOnly bool) (uint, error) {
	switch {
	case spec.PrefixLength != nil && spec.HostCount != nil:
		return 0, fmt.Errorf("%w: both prefix length and host count given", ErrInvalidRequestSize)

	case spec.PrefixLength != nil:
		length := *spec.PrefixLength
		if length < 0 || length > int(w) {
			return 0, fmt.Errorf("%w: prefix length /%d outside [0, %d]", ErrInvalidRequestSize, length, int(w))
		}
		return uint(int(w) - length), nil

	case spec.HostCount != nil:
		n := *spec.HostCount
		if n <= 0 {
			return 0, fmt.Errorf("%w: host count %d must be positive", ErrInvalidRequestSize, n)
		}
		hosts := uint64(n)
		if usableHostsOnly && w == ipaddr.IPv4 {
			hosts += 2
		}
		k := ipaddr.NextPow2Bits(hosts)
		if k > uint(w) {
			return 0, fmt.Errorf("%w: %d hosts do not fit in an %s address space", ErrInvalidRequestSize, n, w)
		}
		return k, nil
	}
	return 0, fmt.Errorf("%w: neither prefix length nor host count given", ErrInvalidRequestSize)
}

func allocationResults(requests []Request, placed map[int]Allocation, pools []Pool) []AllocationResult {
	out := make([]AllocationResult, len(requests))
	for i, r := range requests {
		res := AllocationResult{RequestID: r.ID, RequestName: r.Name}
		a, ok := placed[i]
		if !ok {
			res.FailureReason = FailureReason(r.err)
			if r.err != nil {
				res.Detail = r.err.Error()
			}
			out[i] = res
			continue
		}
		prefix := a.Prefix(r.Width)
		res.Success = true
		res.CIDR = prefix.String()
		res.PoolCIDR = pools[a.PoolID].Prefix.String()
		res.Size = prefix.Size().Big()
		res.FirstUsable = ipaddr.FormatAddr(prefix.FirstUsable(), prefix.Width)
		res.LastUsable = ipaddr.FormatAddr(prefix.LastUsable(), prefix.Width)
		res.UsableHosts = prefix.UsableHosts().Big()
		out[i] = res
	}
	return out
}
