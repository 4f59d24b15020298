// Package metrics exports planning results to Prometheus.
package metrics

import (
	"math/big"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jbliao/kubesubnet/pkg/planner"
)

// Run results used as the result label of kubesubnet_plan_runs_total
const (
	ResultPlanned = "planned"
	ResultFailed  = "failed"
)

// Provider records the outcome of planning runs. plan identifies the plan,
// for example namespace/name of a SubnetPlan.
type Provider interface {
	ObservePlan(plan string, res *planner.Result, duration time.Duration)
	ObservePlanError(plan string, duration time.Duration)
	ForgetPlan(plan string)
}

// NoopProvider implements Provider with no-op operations.
type NoopProvider struct{}

// ObservePlan does nothing
func (NoopProvider) ObservePlan(string, *planner.Result, time.Duration) {}

// ObservePlanError does nothing
func (NoopProvider) ObservePlanError(string, time.Duration) {}

// ForgetPlan does nothing
func (NoopProvider) ForgetPlan(string) {}

// PrometheusProvider implements Provider using Prometheus collectors.
type PrometheusProvider struct {
	poolUtilization *prometheus.GaugeVec
	efficiency      *prometheus.GaugeVec
	wasted          *prometheus.GaugeVec
	runs            *prometheus.CounterVec
	requestFailures *prometheus.GaugeVec
	duration        prometheus.Histogram
}

// NewPrometheusProvider creates the collectors and registers them on registry.
func NewPrometheusProvider(registry prometheus.Registerer) *PrometheusProvider {
	p := &PrometheusProvider{
		poolUtilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kubesubnet_pool_utilization_percent",
			Help: "Share of a pool covered by allocations and reservations",
		}, []string{"plan", "pool"}),
		efficiency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kubesubnet_plan_efficiency_percent",
			Help: "Share of all pool space covered by allocations and reservations",
		}, []string{"plan"}),
		wasted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kubesubnet_plan_wasted_addresses",
			Help: "Free addresses in ranges too small for any failed request",
		}, []string{"plan"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kubesubnet_plan_runs_total",
			Help: "Total number of planning runs",
		}, []string{"result"}),
		requestFailures: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kubesubnet_plan_request_failures",
			Help: "Requests of the latest run of a plan that could not be placed",
		}, []string{"plan", "reason"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kubesubnet_plan_duration_seconds",
			Help:    "Duration of planning runs",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
	}

	registry.MustRegister(
		p.poolUtilization,
		p.efficiency,
		p.wasted,
		p.runs,
		p.requestFailures,
		p.duration,
	)
	return p
}

// ObservePlan records a successful run. The per-plan gauges are replaced by
// the figures of res.
func (p *PrometheusProvider) ObservePlan(plan string, res *planner.Result, duration time.Duration) {
	p.runs.WithLabelValues(ResultPlanned).Inc()
	p.duration.Observe(duration.Seconds())

	// pools may have been removed from the plan since the last run
	p.poolUtilization.DeletePartialMatch(prometheus.Labels{"plan": plan})
	for _, pr := range res.PoolReports {
		p.poolUtilization.WithLabelValues(plan, pr.CIDR).Set(pr.UtilizationPercent)
	}
	p.efficiency.WithLabelValues(plan).Set(res.Summary.EfficiencyPercent)
	p.wasted.WithLabelValues(plan).Set(float(res.Summary.WastedSpace))

	failures := make(map[string]int)
	for _, a := range res.Allocations {
		if !a.Success {
			failures[a.FailureReason]++
		}
	}
	p.requestFailures.DeletePartialMatch(prometheus.Labels{"plan": plan})
	for reason, n := range failures {
		p.requestFailures.WithLabelValues(plan, reason).Set(float64(n))
	}
}

// ObservePlanError records a run that aborted. The gauges keep the figures
// of the last successful run.
func (p *PrometheusProvider) ObservePlanError(_ string, duration time.Duration) {
	p.runs.WithLabelValues(ResultFailed).Inc()
	p.duration.Observe(duration.Seconds())
}

// ForgetPlan drops every series of a deleted plan
func (p *PrometheusProvider) ForgetPlan(plan string) {
	p.poolUtilization.DeletePartialMatch(prometheus.Labels{"plan": plan})
	p.requestFailures.DeletePartialMatch(prometheus.Labels{"plan": plan})
	p.efficiency.DeleteLabelValues(plan)
	p.wasted.DeleteLabelValues(plan)
}

func float(x *big.Int) float64 {
	if x == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(x).Float64()
	return f
}
