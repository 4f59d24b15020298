package clientset

import (
	"context"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client"

	ipamv1alpha1 "github.com/jbliao/kubesubnet/api/v1alpha1"
)

// SubnetPlanClient reads SubnetPlan objects and writes their status
type SubnetPlanClient struct {
	client.Client
	logger logr.Logger
}

// NewScheme returns a scheme with the core and ipam types registered
func NewScheme() (*runtime.Scheme, error) {
	scheme := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		return nil, err
	}
	if err := ipamv1alpha1.AddToScheme(scheme); err != nil {
		return nil, err
	}
	return scheme, nil
}

// NewForConfig ...
func NewForConfig(c *rest.Config, logger logr.Logger) (*SubnetPlanClient, error) {
	scheme, err := NewScheme()
	if err != nil {
		return nil, err
	}
	kubeclient, err := client.New(c, client.Options{Scheme: scheme})
	if err != nil {
		return nil, err
	}
	return New(kubeclient, logger), nil
}

// New wraps an existing client
func New(c client.Client, logger logr.Logger) *SubnetPlanClient {
	return &SubnetPlanClient{Client: c, logger: logger}
}

// GetSubnetPlan fetches one plan
func (c *SubnetPlanClient) GetSubnetPlan(ctx context.Context, namespace, name string) (*ipamv1alpha1.SubnetPlan, error) {
	plan := &ipamv1alpha1.SubnetPlan{}
	if err := c.Get(ctx, types.NamespacedName{Name: name, Namespace: namespace}, plan); err != nil {
		c.logger.Error(err, "get subnet plan", "namespace", namespace, "name", name)
		return nil, err
	}
	return plan, nil
}

// UpdateSubnetPlanStatus writes the status subresource of plan. A stale
// resourceVersion fails with a conflict error.
func (c *SubnetPlanClient) UpdateSubnetPlanStatus(ctx context.Context, plan *ipamv1alpha1.SubnetPlan) error {
	if err := c.Status().Update(ctx, plan); err != nil {
		c.logger.V(1).Info("update subnet plan status", "namespace", plan.Namespace, "name", plan.Name, "error", err.Error())
		return err
	}
	return nil
}
