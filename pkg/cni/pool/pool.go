package pool

import (
	"context"

	"github.com/jbliao/kubesubnet/api/v1alpha1"
)

// PlanClient fetches SubnetPlan objects and writes their status.
// clientset.SubnetPlanClient implements it.
type PlanClient interface {
	GetSubnetPlan(ctx context.Context, namespace, name string) (*v1alpha1.SubnetPlan, error)
	UpdateSubnetPlanStatus(ctx context.Context, plan *v1alpha1.SubnetPlan) error
}
