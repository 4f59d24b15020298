package main

import (
	"time"

	"github.com/spf13/pflag"
)

// FlagName is the type for the name of the flags.
type FlagName string

func (fn FlagName) String() string {
	return string(fn)
}

const (
	// FlagNameMetricsAddress is the address the metric endpoint binds to.
	FlagNameMetricsAddress FlagName = "metrics-address"
	// FlagNameProbeAddress is the address the health probe endpoint binds to.
	FlagNameProbeAddress FlagName = "health-probe-address"
	// FlagNameLeaderElect enables leader election for the manager.
	FlagNameLeaderElect FlagName = "leader-elect"
	// FlagNameNamespace restricts the manager to one namespace.
	FlagNameNamespace FlagName = "namespace"
	// FlagNameSyncPeriod is the resync period of the informers.
	FlagNameSyncPeriod FlagName = "sync-period"
	// FlagNameVerbosity is the log verbosity, 1 logs every placement decision.
	FlagNameVerbosity FlagName = "v"
)

// Options holds the manager configuration.
type Options struct {
	MetricsAddress string
	ProbeAddress   string
	LeaderElect    bool
	Namespace      string
	SyncPeriod     time.Duration
	Verbosity      int
}

// InitFlags initializes the flags for the Options struct.
func InitFlags(flagset *pflag.FlagSet, o *Options) {
	flagset.StringVar(&o.MetricsAddress, FlagNameMetricsAddress.String(), ":8080", "The address the metric endpoint binds to")
	flagset.StringVar(&o.ProbeAddress, FlagNameProbeAddress.String(), ":8081", "The address the health probe endpoint binds to")
	flagset.BoolVar(&o.LeaderElect, FlagNameLeaderElect.String(), false,
		"Enable leader election for the manager. Enabling this will ensure there is only one active manager.")
	flagset.StringVar(&o.Namespace, FlagNameNamespace.String(), "", "Watch SubnetPlans in this namespace only")
	flagset.DurationVar(&o.SyncPeriod, FlagNameSyncPeriod.String(), 10*time.Hour, "The resync period for the informers")
	flagset.IntVar(&o.Verbosity, FlagNameVerbosity.String(), 0, "The log verbosity")
}
