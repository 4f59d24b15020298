/*


Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package controllers

import (
	"math/big"
	"net/netip"
	"strconv"

	ipamv1alpha1 "github.com/jbliao/kubesubnet/api/v1alpha1"
	"github.com/jbliao/kubesubnet/pkg/ipaddr"
	"github.com/jbliao/kubesubnet/pkg/planfile"
	"github.com/jbliao/kubesubnet/pkg/planner"
)

// SpecToInput converts a SubnetPlan spec into a planner input
func SpecToInput(spec *ipamv1alpha1.SubnetPlanSpec) (planner.Input, error) {
	in := planner.Input{
		Pools:           append([]string(nil), spec.Pools...),
		Reserved:        append([]string(nil), spec.Reserved...),
		Strategy:        planner.Strategy(spec.Strategy),
		UsableHostsOnly: spec.UsableHostsOnly,
		Requests:        make([]planner.RequestSpec, len(spec.Requests)),
	}
	for i, r := range spec.Requests {
		req := planner.RequestSpec{
			Name:      r.Name,
			HostCount: r.HostCount,
			Priority:  int(r.Priority),
			Family:    r.Family,
		}
		if r.PrefixLength != nil {
			req.PrefixLength = planner.PrefixLength(int(*r.PrefixLength))
		}
		in.Requests[i] = req
	}
	if err := planfile.Normalize(&in); err != nil {
		return planner.Input{}, err
	}
	return in, nil
}

// ResultToStatus writes a planning result into status
func ResultToStatus(res *planner.Result, status *ipamv1alpha1.SubnetPlanStatus) {
	status.Phase = ipamv1alpha1.PhasePlanned
	status.Message = ""
	status.Strategy = string(res.Strategy)

	status.Allocations = make([]ipamv1alpha1.SubnetAllocation, len(res.Allocations))
	for i, a := range res.Allocations {
		status.Allocations[i] = ipamv1alpha1.SubnetAllocation{
			Name:          a.RequestName,
			RequestID:     a.RequestID,
			Success:       a.Success,
			CIDR:          a.CIDR,
			Pool:          a.PoolCIDR,
			Size:          decimal(a.Size),
			FirstUsable:   a.FirstUsable,
			LastUsable:    a.LastUsable,
			UsableHosts:   decimal(a.UsableHosts),
			FailureReason: a.FailureReason,
			Message:       a.Detail,
		}
	}

	status.Pools = make([]ipamv1alpha1.PoolStatus, len(res.PoolReports))
	for i, pr := range res.PoolReports {
		ps := ipamv1alpha1.PoolStatus{
			CIDR:           pr.CIDR,
			AllocatedSpace: decimal(pr.AllocatedSpace),
			ReservedSpace:  decimal(pr.ReservedSpace),
			Utilization:    percent(pr.UtilizationPercent),
		}
		for _, b := range pr.FreeBlocks {
			ps.FreeBlocks = append(ps.FreeBlocks, b.CIDR)
		}
		status.Pools[i] = ps
	}

	s := res.Summary
	status.Summary = &ipamv1alpha1.PlanSummary{
		TotalRequests:       int32(s.TotalRequests),
		SuccessCount:        int32(s.SuccessCount),
		FailureCount:        int32(s.FailureCount),
		TotalPoolSpace:      decimal(s.TotalPoolSpace),
		TotalAllocatedSpace: decimal(s.TotalAllocatedSpace),
		ReservedSpace:       decimal(s.ReservedSpace),
		WastedSpace:         decimal(s.WastedSpace),
		Efficiency:          percent(s.EfficiencyPercent),
	}
	pruneLeases(status)
}

// pruneLeases drops container leases whose address is no longer inside the
// subnet planned for their request
func pruneLeases(status *ipamv1alpha1.SubnetPlanStatus) {
	blocks := make(map[string]ipaddr.Prefix, len(status.Allocations))
	for _, a := range status.Allocations {
		if !a.Success {
			continue
		}
		if p, err := ipaddr.ParseCIDR(a.CIDR); err == nil {
			blocks[a.Name] = p
		}
	}
	inside := func(request, address string) bool {
		p, ok := blocks[request]
		if !ok {
			return false
		}
		ip, err := netip.ParseAddr(address)
		if err != nil {
			return false
		}
		v, w := ipaddr.AddrFrom(ip)
		return w == p.Width && p.Contains(v)
	}

	for containerID, l := range status.Leases {
		if !inside(l.Request, l.Address) {
			delete(status.Leases, containerID)
		}
	}
	for request, address := range status.LastLeased {
		if !inside(request, address) {
			delete(status.LastLeased, request)
		}
	}
}

// failStatus records a fatal planning error. No partial result is kept, but
// container leases stay until a later plan shows whether they are still valid.
func failStatus(err error, status *ipamv1alpha1.SubnetPlanStatus) {
	status.Phase = ipamv1alpha1.PhaseFailed
	status.Message = err.Error()
	status.Allocations = nil
	status.Pools = nil
	status.Summary = nil
	status.DriverSynced = false
}

func decimal(x *big.Int) string {
	if x == nil {
		return ""
	}
	return x.String()
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
