package driver

import (
	"context"
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set"
	"github.com/go-logr/logr"

	"github.com/jbliao/kubesubnet/api/v1alpha1"
)

// DescriptionPrefix marks prefixes created by Sync. Prefixes without it are
// never deleted.
const DescriptionPrefix = "kubesubnet:"

// Prefix is a subnet as stored by the external IPAM
type Prefix struct {
	ID          int64
	CIDR        string
	Description string
}

// Driver for ipam syncing
type Driver interface {
	// NetworkToPoolName convert a plan pool to driver's pool name
	NetworkToPoolName(network string) (string, error)

	// ListPrefixes returns the prefixes inside the pool
	ListPrefixes(ctx context.Context, poolName string) ([]Prefix, error)

	// CreatePrefix records cidr as allocated inside the pool
	CreatePrefix(ctx context.Context, poolName, cidr, description string) error

	// DeletePrefix do the reverse
	DeletePrefix(ctx context.Context, poolName string, p Prefix) error
}

// Description returns the description Sync stores for a request of plan
func Description(plan, request string) string {
	return DescriptionPrefix + plan + "/" + request
}

// Sync makes the prefixes of every pool in status match its successful
// allocations. plan names the owner, usually namespace/name.
func Sync(ctx context.Context, d Driver, plan string, status *v1alpha1.SubnetPlanStatus, logger logr.Logger) error {
	desired := make(map[string][]v1alpha1.SubnetAllocation)
	for _, a := range status.Allocations {
		if a.Success {
			desired[a.Pool] = append(desired[a.Pool], a)
		}
	}

	for _, pool := range status.Pools {
		poolName, err := d.NetworkToPoolName(pool.CIDR)
		if err != nil {
			return err
		}
		present, err := d.ListPrefixes(ctx, poolName)
		if err != nil {
			return fmt.Errorf("list prefixes of %s: %w", poolName, err)
		}

		// presentSet is the prefix set read from driver
		presentSet := mapset.NewSet()
		for _, p := range present {
			presentSet.Add(p.CIDR)
		}

		// desiredSet is the prefix set read from kubernetes
		desiredSet := mapset.NewSet()
		for _, a := range desired[pool.CIDR] {
			desiredSet.Add(a.CIDR)
			if presentSet.Contains(a.CIDR) {
				continue
			}
			logger.Info("creating prefix", "pool", poolName, "cidr", a.CIDR)
			if err := d.CreatePrefix(ctx, poolName, a.CIDR, Description(plan, a.Name)); err != nil {
				return fmt.Errorf("create prefix %s: %w", a.CIDR, err)
			}
		}

		for _, p := range present {
			if desiredSet.Contains(p.CIDR) || !strings.HasPrefix(p.Description, DescriptionPrefix+plan+"/") {
				continue
			}
			logger.Info("deleting prefix", "pool", poolName, "cidr", p.CIDR)
			if err := d.DeletePrefix(ctx, poolName, p); err != nil {
				return fmt.Errorf("delete prefix %s: %w", p.CIDR, err)
			}
		}
	}
	return nil
}
