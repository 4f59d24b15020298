package planner

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jbliao/kubesubnet/pkg/ipaddr"
)

func prefixReq(name string, length int) RequestSpec {
	return RequestSpec{Name: name, PrefixLength: PrefixLength(length)}
}

func hostReq(name string, hosts int64) RequestSpec {
	return RequestSpec{Name: name, HostCount: HostCount(hosts)}
}

func cidrs(res *Result) []string {
	out := make([]string, len(res.Allocations))
	for i, a := range res.Allocations {
		out[i] = a.CIDR
	}
	return out
}

func freeBlockCIDRs(pr PoolReport) []string {
	out := make([]string, len(pr.FreeBlocks))
	for i, b := range pr.FreeBlocks {
		out[i] = b.CIDR
	}
	return out
}

// expectSound checks alignment, containment and non-overlap of every successful allocation
func expectSound(in Input, res *Result) {
	var placed []ipaddr.Prefix
	for _, r := range in.Reserved {
		placed = append(placed, ipaddr.MustParseCIDR(r))
	}
	for _, a := range res.Allocations {
		if !a.Success {
			continue
		}
		p := ipaddr.MustParseCIDR(a.CIDR)
		Expect(p.Addr.IsAligned(p.HostBits())).To(BeTrue(), "%s is not aligned", a.CIDR)
		Expect(ipaddr.MustParseCIDR(a.PoolCIDR).ContainsPrefix(p)).To(BeTrue(), "%s outside %s", a.CIDR, a.PoolCIDR)
		for _, other := range placed {
			Expect(p.Overlaps(other)).To(BeFalse(), "%s overlaps %s", a.CIDR, other)
		}
		placed = append(placed, p)
	}
}

var _ = Describe("Planner", func() {
	var planner *Planner

	BeforeEach(func() {
		planner = New(logr.Discard())
	})

	Context("reference scenarios", func() {
		It("packs /25 /26 /27 into a /24 largest first", func() {
			in := Input{
				Pools:    []string{"192.168.1.0/24"},
				Requests: []RequestSpec{prefixReq("a", 27), prefixReq("b", 25), prefixReq("c", 26)},
				Strategy: StrategyBestFit,
			}
			res, err := planner.Plan(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(cidrs(res)).To(Equal([]string{"192.168.1.192/27", "192.168.1.0/25", "192.168.1.128/26"}))
			Expect(res.Summary.TotalAllocatedSpace.Int64()).To(BeEquivalentTo(224))
			Expect(res.Summary.EfficiencyPercent).To(Equal(87.5))
			Expect(freeBlockCIDRs(res.PoolReports[0])).To(Equal([]string{"192.168.1.224/27"}))

			in.Requests = append(in.Requests, prefixReq("d", 27))
			res, err = planner.Plan(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Allocations[3].CIDR).To(Equal("192.168.1.224/27"))
			Expect(res.Summary.EfficiencyPercent).To(Equal(100.0))
			Expect(res.PoolReports[0].UtilizationPercent).To(Equal(100.0))
			Expect(res.PoolReports[0].FreeBlocks).To(BeEmpty())
			Expect(res.Summary.WastedSpace.Sign()).To(BeZero())
		})

		It("places six /28 on 16-address boundaries and reports the rest as free", func() {
			in := Input{Pools: []string{"192.168.0.0/22"}, Strategy: StrategyBestFit}
			for i := 0; i < 6; i++ {
				in.Requests = append(in.Requests, prefixReq(fmt.Sprintf("r%d", i), 28))
			}
			res, err := planner.Plan(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Summary.SuccessCount).To(Equal(6))
			Expect(cidrs(res)).To(Equal([]string{
				"192.168.0.0/28", "192.168.0.16/28", "192.168.0.32/28",
				"192.168.0.48/28", "192.168.0.64/28", "192.168.0.80/28",
			}))
			Expect(res.Summary.TotalAllocatedSpace.String()).To(Equal("96"))

			pr := res.PoolReports[0]
			Expect(freeBlockCIDRs(pr)).To(Equal([]string{
				"192.168.0.96/27", "192.168.0.128/25", "192.168.1.0/24", "192.168.2.0/23",
			}))
			Expect(pr.FreeRanges).To(HaveLen(1))
			Expect(pr.FreeRanges[0].Start).To(Equal("192.168.0.96"))
			Expect(pr.FreeRanges[0].End).To(Equal("192.168.3.255"))
			Expect(pr.FreeRanges[0].Size.String()).To(Equal("928"))
			Expect(pr.UtilizationPercent).To(Equal(9.375))
		})

		It("fails a request that no remaining block can hold and keeps earlier ones", func() {
			in := Input{
				Pools: []string{"10.0.0.0/24"},
				Requests: []RequestSpec{
					prefixReq("a", 25), prefixReq("b", 26), prefixReq("c", 27), prefixReq("d", 28),
					prefixReq("late", 27),
				},
				Strategy: StrategyPreserveOrder,
			}
			res, err := planner.Plan(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(cidrs(res)[:4]).To(Equal([]string{"10.0.0.0/25", "10.0.0.128/26", "10.0.0.192/27", "10.0.0.224/28"}))

			late := res.Allocations[4]
			Expect(late.Success).To(BeFalse())
			Expect(late.FailureReason).To(Equal(ReasonNoCapacity))
			Expect(late.CIDR).To(BeEmpty())
			Expect(late.Detail).To(ContainSubstring("/27"))

			Expect(res.Summary.SuccessCount).To(Equal(4))
			Expect(res.Summary.FailureCount).To(Equal(1))
			Expect(res.Summary.WastedSpace.String()).To(Equal("16"))
			Expect(res.Summary.EfficiencyPercent).To(Equal(93.75))
		})

		It("places a single host in any free address", func() {
			in := Input{
				Pools:    []string{"10.0.0.0/30"},
				Reserved: []string{"10.0.0.0/31", "10.0.0.3/32"},
				Requests: []RequestSpec{hostReq("one", 1)},
			}
			res, err := planner.Plan(in)
			Expect(err).NotTo(HaveOccurred())
			a := res.Allocations[0]
			Expect(a.CIDR).To(Equal("10.0.0.2/32"))
			Expect(a.FirstUsable).To(Equal("10.0.0.2"))
			Expect(a.LastUsable).To(Equal("10.0.0.2"))
			Expect(a.UsableHosts.Int64()).To(BeEquivalentTo(1))

			in.Requests = []RequestSpec{prefixReq("one", 32)}
			res, err = planner.Plan(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Allocations[0].CIDR).To(Equal("10.0.0.2/32"))
			Expect(res.PoolReports[0].UtilizationPercent).To(Equal(100.0))
		})
	})

	Context("placement", func() {
		// free space is [0,64) and [96,128)
		in := func(s Strategy) Input {
			return Input{
				Pools:    []string{"10.0.0.0/24"},
				Reserved: []string{"10.0.0.64/27", "10.0.0.128/25"},
				Requests: []RequestSpec{prefixReq("x", 28)},
				Strategy: s,
			}
		}

		It("best-fit picks the smallest viable range", func() {
			res, err := planner.Plan(in(StrategyBestFit))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Allocations[0].CIDR).To(Equal("10.0.0.96/28"))
		})

		It("first-fit picks the lowest viable range", func() {
			res, err := planner.Plan(in(StrategyFirstFit))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Allocations[0].CIDR).To(Equal("10.0.0.0/28"))
		})

		It("lets options override the strategy", func() {
			res, err := New(logr.Discard(), WithPlacement(FirstFit)).Plan(in(StrategyBestFit))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Allocations[0].CIDR).To(Equal("10.0.0.0/28"))
			Expect(res.Strategy).To(Equal(StrategyBestFit))
		})

		It("aligns past a reservation at the pool start", func() {
			res, err := planner.Plan(Input{
				Pools:    []string{"10.0.0.0/24"},
				Reserved: []string{"10.0.0.0/30"},
				Requests: []RequestSpec{prefixReq("x", 28)},
				Strategy: StrategyFirstFit,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Allocations[0].CIDR).To(Equal("10.0.0.16/28"))
			Expect(res.PoolReports[0].ReservedSpace.Int64()).To(BeEquivalentTo(4))
			Expect(res.Summary.ReservedSpace.Int64()).To(BeEquivalentTo(4))
			Expect(res.Summary.TotalAllocatedSpace.Int64()).To(BeEquivalentTo(16))
			Expect(res.PoolReports[0].UtilizationPercent).To(Equal(7.8125))
		})

		It("spills into the next pool in order", func() {
			res, err := planner.Plan(Input{
				Pools:    []string{"10.0.0.0/25", "10.0.1.0/24"},
				Requests: []RequestSpec{prefixReq("a", 25), prefixReq("b", 25)},
				Strategy: StrategyFirstFit,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(cidrs(res)).To(Equal([]string{"10.0.0.0/25", "10.0.1.0/25"}))
			Expect(res.Allocations[1].PoolCIDR).To(Equal("10.0.1.0/24"))
			Expect(res.Summary.TotalPoolSpace.Int64()).To(BeEquivalentTo(384))
		})

		It("skips pools smaller than the request", func() {
			res, err := planner.Plan(Input{
				Pools:    []string{"10.0.0.0/28"},
				Requests: []RequestSpec{prefixReq("big", 24)},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Allocations[0].FailureReason).To(Equal(ReasonNoCapacity))
			Expect(res.Summary.WastedSpace.String()).To(Equal("16"))
		})
	})

	Context("ordering", func() {
		reqs := []RequestSpec{prefixReq("small", 28), prefixReq("large", 25)}

		It("processes the largest request first for first-fit", func() {
			res, err := planner.Plan(Input{Pools: []string{"10.0.0.0/24"}, Requests: reqs, Strategy: StrategyFirstFit})
			Expect(err).NotTo(HaveOccurred())
			Expect(cidrs(res)).To(Equal([]string{"10.0.0.128/28", "10.0.0.0/25"}))
		})

		It("keeps input order for preserve-order", func() {
			res, err := planner.Plan(Input{Pools: []string{"10.0.0.0/24"}, Requests: reqs, Strategy: StrategyPreserveOrder})
			Expect(err).NotTo(HaveOccurred())
			Expect(cidrs(res)).To(Equal([]string{"10.0.0.0/28", "10.0.0.128/25"}))
		})

		It("processes lower priority values first for preserve-order", func() {
			a := prefixReq("a", 26)
			a.Priority = 2
			b := prefixReq("b", 26)
			b.Priority = 1
			res, err := planner.Plan(Input{
				Pools:    []string{"10.0.0.0/24"},
				Requests: []RequestSpec{a, b},
				Strategy: StrategyPreserveOrder,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Allocations[0].RequestName).To(Equal("a"))
			Expect(cidrs(res)).To(Equal([]string{"10.0.0.64/26", "10.0.0.0/26"}))
		})
	})

	Context("request sizing", func() {
		It("rounds host counts up to a power of two", func() {
			in := Input{Pools: []string{"10.0.0.0/24"}, Requests: []RequestSpec{hostReq("h", 31)}}
			res, err := planner.Plan(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Allocations[0].CIDR).To(Equal("10.0.0.0/27"))

			in.UsableHostsOnly = true
			res, err = planner.Plan(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Allocations[0].CIDR).To(Equal("10.0.0.0/26"))
			Expect(res.Allocations[0].UsableHosts.Int64()).To(BeEquivalentTo(62))
			Expect(res.Allocations[0].FirstUsable).To(Equal("10.0.0.1"))
			Expect(res.Allocations[0].LastUsable).To(Equal("10.0.0.62"))
		})

		It("ignores usableHostsOnly for IPv6", func() {
			res, err := planner.Plan(Input{
				Pools:           []string{"2001:db8::/120"},
				Requests:        []RequestSpec{hostReq("h", 32)},
				UsableHostsOnly: true,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Allocations[0].CIDR).To(Equal("2001:db8::/123"))
		})

		DescribeTable("rejects a bad request without aborting the run",
			func(spec RequestSpec) {
				res, err := planner.Plan(Input{
					Pools:    []string{"10.0.0.0/24"},
					Requests: []RequestSpec{spec, prefixReq("ok", 26)},
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Allocations[0].Success).To(BeFalse())
				Expect(res.Allocations[0].FailureReason).To(Equal(ReasonInvalidRequestSize))
				Expect(res.Allocations[1].CIDR).To(Equal("10.0.0.0/26"))
				Expect(res.Summary.WastedSpace.Sign()).To(BeZero())
			},
			Entry("prefix too long", prefixReq("bad", 33)),
			Entry("negative prefix", prefixReq("bad", -1)),
			Entry("zero hosts", hostReq("bad", 0)),
			Entry("negative hosts", hostReq("bad", -5)),
			Entry("more hosts than IPv4 holds", hostReq("bad", 1<<33)),
			Entry("no size", RequestSpec{Name: "bad"}),
			Entry("both sizes", RequestSpec{Name: "bad", PrefixLength: PrefixLength(24), HostCount: HostCount(3)}),
		)

		It("accepts the whole address space as a request", func() {
			res, err := planner.Plan(Input{
				Pools:    []string{"0.0.0.0/0"},
				Requests: []RequestSpec{prefixReq("all", 0)},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Allocations[0].CIDR).To(Equal("0.0.0.0/0"))
			Expect(res.Summary.TotalPoolSpace.String()).To(Equal("4294967296"))
		})

		It("names unnamed requests by position", func() {
			res, err := planner.Plan(Input{
				Pools:    []string{"10.0.0.0/24"},
				Requests: []RequestSpec{{PrefixLength: PrefixLength(26)}},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Allocations[0].RequestID).To(Equal("request-0"))
			Expect(res.Allocations[0].RequestName).To(Equal("request-0"))
		})
	})

	Context("address families", func() {
		It("plans IPv6 pools with sizes beyond 64 bits", func() {
			v6 := hostReq("hosts", 1000)
			v6.Family = "ipv6"
			res, err := planner.Plan(Input{
				Pools:    []string{"2001:db8::/48"},
				Requests: []RequestSpec{v6, prefixReq("a", 64), prefixReq("b", 64)},
				Strategy: StrategyBestFit,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(cidrs(res)).To(Equal([]string{"2001:db8:0:2::/118", "2001:db8::/64", "2001:db8:0:1::/64"}))
			Expect(res.Allocations[1].Size.String()).To(Equal("18446744073709551616"))
			Expect(res.Summary.TotalPoolSpace.String()).To(Equal("1208925819614629174706176"))
			Expect(res.PoolReports[0].FreeBlocks[0].CIDR).To(Equal("2001:db8:0:2::400/118"))
		})

		It("routes each request to a pool of its family", func() {
			v6 := prefixReq("six", 64)
			v6.Family = "ipv6"
			res, err := planner.Plan(Input{
				Pools:    []string{"10.0.0.0/24", "2001:db8::/60"},
				Requests: []RequestSpec{v6, prefixReq("four", 25)},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(cidrs(res)).To(Equal([]string{"2001:db8::/64", "10.0.0.0/25"}))
		})

		It("fails requests whose family has no pool", func() {
			v6 := prefixReq("six", 64)
			v6.Family = "ipv6"
			odd := prefixReq("odd", 24)
			odd.Family = "ipx"
			res, err := planner.Plan(Input{
				Pools:    []string{"10.0.0.0/24"},
				Requests: []RequestSpec{v6, odd},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Allocations[0].FailureReason).To(Equal(ReasonWidthMismatch))
			Expect(res.Allocations[1].FailureReason).To(Equal(ReasonWidthMismatch))
		})
	})

	Context("fatal input errors", func() {
		DescribeTable("abort the run without a result",
			func(in Input, want error) {
				res, err := planner.Plan(in)
				Expect(err).To(MatchError(want))
				Expect(res).To(BeNil())
			},
			Entry("no pools", Input{}, ErrNoPools),
			Entry("malformed pool", Input{Pools: []string{"10.0.0/24"}}, ErrMalformedCIDR),
			Entry("nested pools", Input{Pools: []string{"10.0.0.0/16", "10.0.3.0/24"}}, ErrOverlappingPools),
			Entry("duplicate pools", Input{Pools: []string{"10.0.0.0/24", "10.0.0.0/24"}}, ErrOverlappingPools),
			Entry("whole IPv6 space", Input{Pools: []string{"::/0"}}, ErrPoolTooLarge),
			Entry("reservation outside pools", Input{Pools: []string{"10.0.0.0/24"}, Reserved: []string{"10.0.1.0/28"}}, ErrInvalidReservation),
			Entry("overlapping reservations", Input{Pools: []string{"10.0.0.0/24"}, Reserved: []string{"10.0.0.0/28", "10.0.0.8/29"}}, ErrInvalidReservation),
			Entry("malformed reservation", Input{Pools: []string{"10.0.0.0/24"}, Reserved: []string{"nope"}}, ErrMalformedCIDR),
			Entry("unknown strategy", Input{Pools: []string{"10.0.0.0/24"}, Strategy: "worst-fit"}, ErrUnknownStrategy),
		)

		It("accepts pools of different families with the same numeric range", func() {
			_, err := planner.Plan(Input{Pools: []string{"0.0.0.0/8", "::/104"}})
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Context("determinism and isolation", func() {
		var in Input

		BeforeEach(func() {
			rnd := rand.New(rand.NewSource(42))
			in = Input{
				Pools:    []string{"10.0.0.0/22", "10.1.0.0/24", "172.16.0.0/25"},
				Reserved: []string{"10.0.0.32/27", "10.1.0.128/26"},
			}
			for i := 0; i < 40; i++ {
				spec := prefixReq(fmt.Sprintf("r%02d", i), 23+rnd.Intn(10))
				if i%3 == 0 {
					spec = hostReq(fmt.Sprintf("r%02d", i), 1+rnd.Int63n(200))
				}
				spec.Priority = rnd.Intn(4)
				in.Requests = append(in.Requests, spec)
			}
		})

		It("keeps every allocation aligned, inside its pool and disjoint", func() {
			for _, s := range Strategies {
				in.Strategy = s
				res, err := planner.Plan(in)
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Summary.SuccessCount).To(BeNumerically(">", 0))
				Expect(res.Summary.SuccessCount + res.Summary.FailureCount).To(Equal(len(in.Requests)))
				expectSound(in, res)
			}
		})

		It("produces byte-identical output for identical input", func() {
			first, err := planner.Plan(in)
			Expect(err).NotTo(HaveOccurred())
			second, err := New(logr.Discard()).Plan(in)
			Expect(err).NotTo(HaveOccurred())

			a, err := json.Marshal(first)
			Expect(err).NotTo(HaveOccurred())
			b, err := json.Marshal(second)
			Expect(err).NotTo(HaveOccurred())
			Expect(a).To(Equal(b))
		})

		It("does not modify its input", func() {
			before, err := json.Marshal(in)
			Expect(err).NotTo(HaveOccurred())
			_, err = planner.Plan(in)
			Expect(err).NotTo(HaveOccurred())
			after, err := json.Marshal(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(after).To(Equal(before))
		})

		It("gives the same answer from concurrent runs", func() {
			want, err := planner.Plan(in)
			Expect(err).NotTo(HaveOccurred())
			wantJSON, err := json.Marshal(want)
			Expect(err).NotTo(HaveOccurred())

			var wg sync.WaitGroup
			got := make([][]byte, 16)
			for i := range got {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					res, err := planner.Plan(in)
					Expect(err).NotTo(HaveOccurred())
					got[i], _ = json.Marshal(res)
				}(i)
			}
			wg.Wait()
			for _, g := range got {
				Expect(g).To(Equal(wantJSON))
			}
		})

		It("best-fit never picks a larger range than needed", func() {
			rnd := rand.New(rand.NewSource(7))
			pool := Pool{Prefix: ipaddr.MustParseCIDR("10.0.0.0/22")}
			var allocs []Allocation
			for i := 0; i < 60; i++ {
				k := uint(rnd.Intn(9))
				free, err := freeBlocks(pool, allocs)
				Expect(err).NotTo(HaveOccurred())
				start, chosen, ok := BestFit.Place(free, k)
				for _, b := range free {
					_, fits := viable(b, k)
					if !ok {
						Expect(fits).To(BeFalse())
						continue
					}
					if fits {
						Expect(chosen.Size.Cmp(b.Size)).To(BeNumerically("<=", 0))
					}
				}
				if ok {
					Expect(start.IsAligned(k)).To(BeTrue())
					allocs = append(allocs, Allocation{Start: start, HostBits: k})
				}
			}
		})
	})
})
