package planner

import (
	"errors"
	"math/big"

	"go4.org/netipx"

	"github.com/jbliao/kubesubnet/pkg/ipaddr"
)

// report fills PoolReports and Summary from the committed blocks. It runs
// after placement and never changes it.
func (r *Result) report(requests []Request) error {
	// smallest block that failed for lack of room, per address width
	minFailed := make(map[ipaddr.Width]uint)
	for _, req := range requests {
		if !errors.Is(req.err, ErrNoCapacity) {
			continue
		}
		if k, ok := minFailed[req.Width]; !ok || req.HostBits < k {
			minFailed[req.Width] = req.HostBits
		}
	}

	s := Summary{
		TotalRequests:       len(requests),
		TotalPoolSpace:      new(big.Int),
		TotalAllocatedSpace: new(big.Int),
		ReservedSpace:       new(big.Int),
		WastedSpace:         new(big.Int),
	}
	for _, a := range r.Allocations {
		if a.Success {
			s.SuccessCount++
		}
	}
	s.FailureCount = s.TotalRequests - s.SuccessCount

	r.PoolReports = make([]PoolReport, len(r.pools))
	for i, pool := range r.pools {
		free, err := freeBlocks(pool, r.committed[i])
		if err != nil {
			return err
		}

		pr := PoolReport{
			CIDR:           pool.Prefix.String(),
			FreeBlocks:     []FreeBlockReport{},
			FreeRanges:     []FreeRangeReport{},
			AllocatedSpace: new(big.Int),
			ReservedSpace:  new(big.Int),
		}
		for _, a := range r.committed[i] {
			size := ipaddr.BlockSize(a.HostBits).Big()
			if a.Reserved {
				pr.ReservedSpace.Add(pr.ReservedSpace, size)
			} else {
				pr.AllocatedSpace.Add(pr.AllocatedSpace, size)
			}
		}

		k, failed := minFailed[pool.Prefix.Width]
		for _, b := range free {
			pr.FreeRanges = append(pr.FreeRanges, FreeRangeReport{
				Start: ipaddr.FormatAddr(b.Start, pool.Prefix.Width),
				End:   ipaddr.FormatAddr(b.Last(), pool.Prefix.Width),
				Size:  b.Size.Big(),
			})
			pr.FreeBlocks = append(pr.FreeBlocks, alignedBlocks(b, pool.Prefix.Width)...)
			if failed && smallerThan(b.Size, k) {
				s.WastedSpace.Add(s.WastedSpace, b.Size.Big())
			}
		}

		poolSize := pool.Prefix.Size().Big()
		used := new(big.Int).Add(pr.AllocatedSpace, pr.ReservedSpace)
		pr.UtilizationPercent = percent(used, poolSize)

		s.TotalPoolSpace.Add(s.TotalPoolSpace, poolSize)
		s.TotalAllocatedSpace.Add(s.TotalAllocatedSpace, pr.AllocatedSpace)
		s.ReservedSpace.Add(s.ReservedSpace, pr.ReservedSpace)
		r.PoolReports[i] = pr
	}

	used := new(big.Int).Add(s.TotalAllocatedSpace, s.ReservedSpace)
	s.EfficiencyPercent = percent(used, s.TotalPoolSpace)
	r.Summary = s
	return nil
}

// alignedBlocks splits a free range into the CIDRs that exactly cover it
func alignedBlocks(b FreeBlock, w ipaddr.Width) []FreeBlockReport {
	rng := netipx.IPRangeFrom(b.Start.NetIP(w), b.Last().NetIP(w))
	prefixes := rng.Prefixes()
	out := make([]FreeBlockReport, 0, len(prefixes))
	for _, p := range prefixes {
		out = append(out, FreeBlockReport{
			CIDR: p.String(),
			Size: ipaddr.BlockSize(uint(int(w) - p.Bits())).Big(),
		})
	}
	return out
}

// smallerThan reports whether size < 2^hostBits
func smallerThan(size ipaddr.Uint128, hostBits uint) bool {
	if hostBits >= 128 {
		return true
	}
	return size.Less(ipaddr.BlockSize(hostBits))
}

func percent(part, whole *big.Int) float64 {
	if whole.Sign() == 0 {
		return 0
	}
	f := new(big.Float).SetInt(part)
	f.Quo(f, new(big.Float).SetInt(whole))
	f.Mul(f, big.NewFloat(100))
	v, _ := f.Float64()
	return v
}
