package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	"github.com/jbliao/kubesubnet/controllers"
	"github.com/jbliao/kubesubnet/pkg/crd/clientset"
	"github.com/jbliao/kubesubnet/pkg/metrics"
	"github.com/jbliao/kubesubnet/pkg/planner"
)

func main() {
	o := &Options{}
	cmd := cobra.Command{
		Use:   "kubesubnet-manager",
		Short: "Reconciles SubnetPlan objects",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(o)
		},
	}
	InitFlags(cmd.Flags(), o)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(o *Options) error {
	ctrl.SetLogger(zap.New(func(zo *zap.Options) {
		zo.Development = true
		zo.Level = zapcore.Level(-o.Verbosity)
	}))
	setupLog := ctrl.Log.WithName("setup")

	scheme, err := clientset.NewScheme()
	if err != nil {
		return err
	}

	cacheOptions := cache.Options{SyncPeriod: &o.SyncPeriod}
	if o.Namespace != "" {
		cacheOptions.DefaultNamespaces = map[string]cache.Config{o.Namespace: {}}
	}

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme:                 scheme,
		Metrics:                metricsserver.Options{BindAddress: o.MetricsAddress},
		HealthProbeBindAddress: o.ProbeAddress,
		LeaderElection:         o.LeaderElect,
		LeaderElectionID:       "kubesubnet.ipam.k8s.cc.cs.nctu.edu.tw",
		Cache:                  cacheOptions,
	})
	if err != nil {
		setupLog.Error(err, "unable to start manager")
		return err
	}

	logger := ctrl.Log.WithName("controllers").WithName("SubnetPlan")
	if err = (&controllers.SubnetPlanReconciler{
		Client:  mgr.GetClient(),
		Log:     logger,
		Scheme:  mgr.GetScheme(),
		Planner: planner.New(logger.WithName("planner")),
		Metrics: metrics.NewPrometheusProvider(ctrlmetrics.Registry),
	}).SetupWithManager(mgr); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "SubnetPlan")
		return err
	}
	// +kubebuilder:scaffold:builder

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		return fmt.Errorf("unable to set up health check: %w", err)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		return fmt.Errorf("unable to set up ready check: %w", err)
	}

	setupLog.Info("starting manager")
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		setupLog.Error(err, "problem running manager")
		return err
	}
	return nil
}
