package pool

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/retry"

	"github.com/jbliao/kubesubnet/api/v1alpha1"
	"github.com/jbliao/kubesubnet/pkg/cni"
	"github.com/jbliao/kubesubnet/pkg/crd/clientset"
)

// KubePool implement cni.Pool on the status of a SubnetPlan. Leases are kept
// in the plan status, keyed by container ID.
type KubePool struct {
	ctx    context.Context
	client PlanClient
	config *cni.IPAMConf
	cache  *v1alpha1.SubnetPlan
}

// NewKubePool construct a KubePool from the kubeconfig named in ipamConf
func NewKubePool(ctx context.Context, ipamConf *cni.IPAMConf, logger logr.Logger) (*KubePool, error) {
	config, err := clientcmd.BuildConfigFromFlags("", ipamConf.KubeConfigPath)
	if err != nil {
		return nil, err
	}
	client, err := clientset.NewForConfig(config, logger)
	if err != nil {
		return nil, err
	}

	if ipamConf.PlanNamespace == "" {
		//decide namespace from Kubectl Context if not given
		cfg, err := clientcmd.LoadFromFile(ipamConf.KubeConfigPath)
		if err != nil {
			return nil, err
		}
		kctx, ok := cfg.Contexts[cfg.CurrentContext]
		if !ok || kctx == nil || kctx.Namespace == "" {
			return nil, fmt.Errorf("k8s config: namespace not present in context")
		}
		ipamConf.PlanNamespace = kctx.Namespace
	}

	return NewKubePoolWithClient(ctx, client, ipamConf), nil
}

// NewKubePoolWithClient construct a KubePool reading plans through client
func NewKubePoolWithClient(ctx context.Context, client PlanClient, ipamConf *cni.IPAMConf) *KubePool {
	return &KubePool{ctx: ctx, client: client, config: ipamConf}
}

func (p *KubePool) ensureCache() error {
	var err error
	if p.cache == nil {
		p.cache, err = p.client.GetSubnetPlan(p.ctx, p.config.PlanNamespace, p.config.PlanName)
	}
	return err
}

// Allocation returns the planned subnet of the named request
func (p *KubePool) Allocation(request string) (v1alpha1.SubnetAllocation, error) {
	if err := p.ensureCache(); err != nil {
		return v1alpha1.SubnetAllocation{}, err
	}
	if p.cache.Status.Phase != v1alpha1.PhasePlanned {
		return v1alpha1.SubnetAllocation{}, fmt.Errorf("subnet plan %s/%s is not planned: %s",
			p.cache.Namespace, p.cache.Name, p.cache.Status.Message)
	}
	alloc, ok := p.cache.Allocation(request)
	if !ok {
		return v1alpha1.SubnetAllocation{}, fmt.Errorf("request %q not found in subnet plan %s/%s",
			request, p.cache.Namespace, p.cache.Name)
	}
	return alloc, nil
}

// updateWithCache applies mutate to the cached plan and writes its status. On
// a conflict the plan is fetched again and mutate reapplied.
func (p *KubePool) updateWithCache(mutate func(plan *v1alpha1.SubnetPlan) error) error {
	return retry.RetryOnConflict(retry.DefaultRetry, func() error {
		if err := p.ensureCache(); err != nil {
			return err
		}
		if err := mutate(p.cache); err != nil {
			return err
		}
		err := p.client.UpdateSubnetPlanStatus(p.ctx, p.cache)
		if err != nil {
			p.cache = nil
		}
		return err
	})
}

// Leases returns the addresses leased from request, mapped to their container IDs
func (p *KubePool) Leases(request string) (map[string]string, error) {
	if err := p.ensureCache(); err != nil {
		return nil, err
	}
	return p.cache.LeasesOf(request), nil
}

// LastLeased returns the address most recently leased from request
func (p *KubePool) LastLeased(request string) (string, error) {
	if err := p.ensureCache(); err != nil {
		return "", err
	}
	return p.cache.Status.LastLeased[request], nil
}

// LeaseOf returns the lease held by containerID
func (p *KubePool) LeaseOf(containerID string) (v1alpha1.AddressLease, bool, error) {
	if err := p.ensureCache(); err != nil {
		return v1alpha1.AddressLease{}, false, err
	}
	l, ok := p.cache.Status.Leases[containerID]
	return l, ok, nil
}

// MarkAddressAllocated records address as leased to containerID
func (p *KubePool) MarkAddressAllocated(request, address, containerID string) error {
	return p.updateWithCache(func(plan *v1alpha1.SubnetPlan) error {
		if owner, ok := plan.LeasesOf(request)[address]; ok && owner != containerID {
			return fmt.Errorf("%w: %s is held by %s", cni.ErrAddressTaken, address, owner)
		}
		if plan.Status.Leases == nil {
			plan.Status.Leases = make(map[string]v1alpha1.AddressLease)
		}
		if plan.Status.LastLeased == nil {
			plan.Status.LastLeased = make(map[string]string)
		}
		plan.Status.Leases[containerID] = v1alpha1.AddressLease{Request: request, Address: address}
		plan.Status.LastLeased[request] = address
		return nil
	})
}

// MarkAddressReleased drops the lease of containerID. A missing plan or lease
// is not an error so that DEL can be repeated.
func (p *KubePool) MarkAddressReleased(containerID string) error {
	if err := p.ensureCache(); err != nil {
		if apierrors.IsNotFound(err) {
			return nil
		}
		return err
	}
	if _, ok := p.cache.Status.Leases[containerID]; !ok {
		return nil
	}
	return p.updateWithCache(func(plan *v1alpha1.SubnetPlan) error {
		delete(plan.Status.Leases, containerID)
		return nil
	})
}
