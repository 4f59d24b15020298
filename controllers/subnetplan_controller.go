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
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/api/equality"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	ipamv1alpha1 "github.com/jbliao/kubesubnet/api/v1alpha1"
	"github.com/jbliao/kubesubnet/pkg/crd/driver"
	"github.com/jbliao/kubesubnet/pkg/metrics"
	"github.com/jbliao/kubesubnet/pkg/planner"
)

const (
	// failed to next retry time is 5 sec
	retryInterval = 5 * time.Second
	// if success, resync after 30 sec
	resyncInterval = 30 * time.Second
)

// DriverFactory builds the driver named by a SubnetPlan
type DriverFactory func(spec *ipamv1alpha1.DriverSpec, logger logr.Logger) (driver.Driver, error)

// SubnetPlanReconciler reconciles a SubnetPlan object
type SubnetPlanReconciler struct {
	client.Client
	Log     logr.Logger
	Scheme  *runtime.Scheme
	Planner *planner.Planner
	Metrics metrics.Provider
	// NewDriver defaults to GetDriver
	NewDriver DriverFactory
}

// GetDriver builds a driver from its type and raw json config
func GetDriver(spec *ipamv1alpha1.DriverSpec, logger logr.Logger) (driver.Driver, error) {
	switch t := spec.Type; t {
	case "netbox":
		return driver.NewNetboxDriver(spec.RawConfig, logger)
	default:
		return nil, fmt.Errorf("driver type %q not implemented", t)
	}
}

// +kubebuilder:rbac:groups=ipam.k8s.cc.cs.nctu.edu.tw,resources=subnetplans,verbs=get;list;watch
// +kubebuilder:rbac:groups=ipam.k8s.cc.cs.nctu.edu.tw,resources=subnetplans/status,verbs=get;update;patch

// Reconcile plans the subnets of a SubnetPlan and writes them to its status
func (r *SubnetPlanReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := r.Log.WithValues("subnetplan", req.NamespacedName)
	key := req.NamespacedName.String()

	plan := &ipamv1alpha1.SubnetPlan{}
	if err := r.Get(ctx, req.NamespacedName, plan); err != nil {
		if apierrors.IsNotFound(err) {
			r.metrics().ForgetPlan(key)
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, err
	}

	status := plan.Status.DeepCopy()
	status.ObservedGeneration = plan.Generation

	res, err := r.plan(key, &plan.Spec)
	if err != nil {
		logger.Info("planning failed", "error", err.Error())
		failStatus(err, status)
		if err := r.updateStatus(ctx, plan, status); err != nil {
			return ctrl.Result{}, err
		}
		return ctrl.Result{RequeueAfter: retryInterval}, nil
	}
	ResultToStatus(res, status)
	logger.V(1).Info("planned", "requests", res.Summary.TotalRequests,
		"failures", res.Summary.FailureCount, "efficiency", res.Summary.EfficiencyPercent)

	result := ctrl.Result{RequeueAfter: resyncInterval}
	status.DriverSynced = false
	if plan.Spec.Driver != nil {
		if err := r.syncDriver(ctx, key, plan.Spec.Driver, status, logger); err != nil {
			logger.Error(err, "driver sync failed")
			status.Message = "driver sync failed: " + err.Error()
			result = ctrl.Result{RequeueAfter: retryInterval}
		} else {
			status.DriverSynced = true
		}
	}

	if err := r.updateStatus(ctx, plan, status); err != nil {
		return ctrl.Result{}, err
	}
	return result, nil
}

func (r *SubnetPlanReconciler) plan(key string, spec *ipamv1alpha1.SubnetPlanSpec) (*planner.Result, error) {
	start := time.Now()
	in, err := SpecToInput(spec)
	if err == nil {
		var res *planner.Result
		if res, err = r.planner().Plan(in); err == nil {
			r.metrics().ObservePlan(key, res, time.Since(start))
			return res, nil
		}
	}
	r.metrics().ObservePlanError(key, time.Since(start))
	return nil, err
}

func (r *SubnetPlanReconciler) syncDriver(ctx context.Context, key string, spec *ipamv1alpha1.DriverSpec,
	status *ipamv1alpha1.SubnetPlanStatus, logger logr.Logger) error {
	factory := r.NewDriver
	if factory == nil {
		factory = GetDriver
	}
	d, err := factory(spec, logger)
	if err != nil {
		return err
	}
	return driver.Sync(ctx, d, key, status, logger)
}

func (r *SubnetPlanReconciler) updateStatus(ctx context.Context, plan *ipamv1alpha1.SubnetPlan,
	status *ipamv1alpha1.SubnetPlanStatus) error {
	if equality.Semantic.DeepEqual(&plan.Status, status) {
		return nil
	}
	plan.Status = *status
	return r.Status().Update(ctx, plan)
}

func (r *SubnetPlanReconciler) planner() *planner.Planner {
	if r.Planner == nil {
		return planner.New(r.Log)
	}
	return r.Planner
}

func (r *SubnetPlanReconciler) metrics() metrics.Provider {
	if r.Metrics == nil {
		return metrics.NoopProvider{}
	}
	return r.Metrics
}

// SetupWithManager ...
func (r *SubnetPlanReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&ipamv1alpha1.SubnetPlan{}).
		Complete(r)
}
