// Package planner places variable-sized subnet requests into one or more
// address pools.
//
// Every request is rounded to a power-of-two block and may only start at a
// multiple of its own size. For each request, in processing order, the planner
// walks the pools in the order given, recomputes the pool's free ranges from
// the blocks committed so far and asks a Placement to pick an aligned block.
// The first pool with room wins. Requests that fit nowhere fail with
// ErrNoCapacity and never abort the run.
//
// The default strategies sort requests largest first, which is a greedy
// approximation of bin packing and not an optimal solution. Other heuristics
// can be plugged in with WithPlacement and WithOrdering.
//
// Example:
//
//	result, err := planner.New(logger).Plan(planner.Input{
//	    Pools:    []string{"192.168.1.0/24"},
//	    Strategy: planner.StrategyBestFit,
//	    Requests: []planner.RequestSpec{
//	        {Name: "web", PrefixLength: planner.PrefixLength(25)},
//	        {Name: "db", HostCount: planner.HostCount(50)},
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, a := range result.Allocations {
//	    fmt.Println(a.RequestName, a.CIDR)
//	}
//
// A Planner holds no mutable state, so one instance may serve concurrent Plan
// calls. Each call copies its Input before touching it.
package planner
