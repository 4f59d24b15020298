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

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Phases of a SubnetPlan
const (
	PhasePlanned = "Planned"
	PhaseFailed  = "Failed"
)

// SubnetPlanSpec defines the desired state of SubnetPlan
type SubnetPlanSpec struct {
	// Pools are the CIDRs requests are placed in, searched in order
	// +kubebuilder:validation:MinItems=1
	Pools []string `json:"pools"`

	// Reserved are CIDRs inside the pools that are already in use
	// +kubebuilder:validation:Optional
	Reserved []string `json:"reserved,omitempty"`

	// Requests is the list of subnets to place
	// +kubebuilder:validation:Optional
	Requests []SubnetRequest `json:"requests,omitempty"`

	// Strategy selects ordering and placement. Defaults to best-fit.
	// +kubebuilder:validation:Enum=preserve-order;first-fit;best-fit
	// +kubebuilder:validation:Optional
	Strategy string `json:"strategy,omitempty"`

	// UsableHostsOnly adds room for network and broadcast to IPv4 host counts
	// +kubebuilder:validation:Optional
	UsableHostsOnly bool `json:"usableHostsOnly,omitempty"`

	// Driver exports the planned subnets to an external IPAM service
	// +kubebuilder:validation:Optional
	Driver *DriverSpec `json:"driver,omitempty"`
}

// SubnetRequest asks for one subnet. Exactly one of PrefixLength and
// HostCount must be set.
type SubnetRequest struct {
	Name string `json:"name"`

	// +kubebuilder:validation:Optional
	PrefixLength *int32 `json:"prefixLength,omitempty"`

	// +kubebuilder:validation:Optional
	HostCount *int64 `json:"hostCount,omitempty"`

	// Priority orders requests under the preserve-order strategy, lowest first
	// +kubebuilder:validation:Optional
	Priority int32 `json:"priority,omitempty"`

	// +kubebuilder:validation:Enum=ipv4;ipv6
	// +kubebuilder:validation:Optional
	Family string `json:"family,omitempty"`
}

// DriverSpec selects an external IPAM service
type DriverSpec struct {
	// Type defined type of the external IPAM service
	Type string `json:"type"`

	// RawConfig is the driver specific configuration in raw json format
	RawConfig string `json:"rawConfig"`
}

// SubnetAllocation is the outcome of one request. Address counts are decimal
// strings since IPv6 sizes do not fit in an int64.
type SubnetAllocation struct {
	Name          string `json:"name"`
	RequestID     string `json:"requestID"`
	Success       bool   `json:"success"`
	CIDR          string `json:"cidr,omitempty"`
	Pool          string `json:"pool,omitempty"`
	Size          string `json:"size,omitempty"`
	FirstUsable   string `json:"firstUsable,omitempty"`
	LastUsable    string `json:"lastUsable,omitempty"`
	UsableHosts   string `json:"usableHosts,omitempty"`
	FailureReason string `json:"failureReason,omitempty"`
	Message       string `json:"message,omitempty"`
}

// PoolStatus reports one pool
type PoolStatus struct {
	CIDR           string   `json:"cidr"`
	FreeBlocks     []string `json:"freeBlocks,omitempty"`
	AllocatedSpace string   `json:"allocatedSpace"`
	ReservedSpace  string   `json:"reservedSpace"`
	// Utilization is a percentage with two decimals
	Utilization string `json:"utilization"`
}

// PlanSummary aggregates the whole plan
type PlanSummary struct {
	TotalRequests       int32  `json:"totalRequests"`
	SuccessCount        int32  `json:"successCount"`
	FailureCount        int32  `json:"failureCount"`
	TotalPoolSpace      string `json:"totalPoolSpace"`
	TotalAllocatedSpace string `json:"totalAllocatedSpace"`
	ReservedSpace       string `json:"reservedSpace"`
	WastedSpace         string `json:"wastedSpace"`
	// Efficiency is a percentage with two decimals
	Efficiency string `json:"efficiency"`
}

// AddressLease is one container address taken from a planned subnet
type AddressLease struct {
	Request string `json:"request"`
	Address string `json:"address"`
}

// SubnetPlanStatus defines the observed state of SubnetPlan
type SubnetPlanStatus struct {
	// +kubebuilder:validation:Optional
	Phase string `json:"phase,omitempty"`
	// +kubebuilder:validation:Optional
	Message string `json:"message,omitempty"`
	// +kubebuilder:validation:Optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
	// +kubebuilder:validation:Optional
	Strategy string `json:"strategy,omitempty"`
	// +kubebuilder:validation:Optional
	Allocations []SubnetAllocation `json:"allocations,omitempty"`
	// +kubebuilder:validation:Optional
	Pools []PoolStatus `json:"pools,omitempty"`
	// +kubebuilder:validation:Optional
	Summary *PlanSummary `json:"summary,omitempty"`
	// DriverSynced is true once the allocations were exported to the driver
	// +kubebuilder:validation:Optional
	DriverSynced bool `json:"driverSynced,omitempty"`
	// Leases maps container IDs to the addresses the CNI plugin handed out
	// +kubebuilder:validation:Optional
	Leases map[string]AddressLease `json:"leases,omitempty"`
	// LastLeased is the most recently leased address per request
	// +kubebuilder:validation:Optional
	LastLeased map[string]string `json:"lastLeased,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Efficiency",type=string,JSONPath=`.status.summary.efficiency`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// SubnetPlan is the Schema for the subnetplans API
type SubnetPlan struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   SubnetPlanSpec   `json:"spec,omitempty"`
	Status SubnetPlanStatus `json:"status,omitempty"`
}

// Allocation returns the status entry of the named request
func (p *SubnetPlan) Allocation(name string) (SubnetAllocation, bool) {
	for _, a := range p.Status.Allocations {
		if a.Name == name {
			return a, true
		}
	}
	return SubnetAllocation{}, false
}

// LeasesOf returns the addresses leased from the named request, keyed by address
func (p *SubnetPlan) LeasesOf(request string) map[string]string {
	owners := make(map[string]string)
	for containerID, l := range p.Status.Leases {
		if l.Request == request {
			owners[l.Address] = containerID
		}
	}
	return owners
}

// +kubebuilder:object:root=true

// SubnetPlanList contains a list of SubnetPlan
type SubnetPlanList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []SubnetPlan `json:"items"`
}

func init() {
	SchemeBuilder.Register(&SubnetPlan{}, &SubnetPlanList{})
}
