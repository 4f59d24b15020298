package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jbliao/kubesubnet/pkg/planfile"
	"github.com/jbliao/kubesubnet/pkg/planner"
)

// FlagName is the type for the name of the flags.
type FlagName string

func (fn FlagName) String() string {
	return string(fn)
}

const (
	// FlagNameFile is the plan document to read.
	FlagNameFile FlagName = "file"
	// FlagNameStrategy overrides the strategy of the document.
	FlagNameStrategy FlagName = "strategy"
	// FlagNameUsableHostsOnly rounds IPv4 host counts up to leave room for network and broadcast.
	FlagNameUsableHostsOnly FlagName = "usable-hosts-only"
	// FlagNamePool replaces the pools of the document.
	FlagNamePool FlagName = "pool"
	// FlagNameReserved replaces the reservations of the document.
	FlagNameReserved FlagName = "reserved"
	// FlagNameRequest appends a request to the document.
	FlagNameRequest FlagName = "request"
	// FlagNameOutput selects the output format.
	FlagNameOutput FlagName = "output"
	// FlagNameVerbose logs every placement decision to stderr.
	FlagNameVerbose FlagName = "verbose"
)

// Output formats
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

type planOptions struct {
	file            string
	strategy        string
	usableHostsOnly bool
	pools           []string
	reserved        []string
	requests        []string
	output          string
	verbose         bool
}

func newPlanCommand() *cobra.Command {
	o := &planOptions{}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Place the requests of a plan and print the result",
		Example: `  subnetplan plan -f plan.yaml
  subnetplan plan --pool 192.168.1.0/24 --request web=/25 --request db=50 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&o.file, FlagNameFile.String(), "f", "", "Plan document in YAML or JSON")
	flags.StringVar(&o.strategy, FlagNameStrategy.String(), "",
		fmt.Sprintf("Placement strategy, one of %v (default %s)", planner.Strategies, planner.DefaultStrategy))
	flags.BoolVar(&o.usableHostsOnly, FlagNameUsableHostsOnly.String(), false,
		"Leave room for network and broadcast addresses in IPv4 host counts")
	flags.StringSliceVar(&o.pools, FlagNamePool.String(), nil, "Address pool in CIDR notation, repeatable")
	flags.StringSliceVar(&o.reserved, FlagNameReserved.String(), nil, "CIDR already in use inside a pool, repeatable")
	flags.StringArrayVar(&o.requests, FlagNameRequest.String(), nil,
		"Request as name=/len or name=hosts, with an optional @ipv4 or @ipv6 suffix, repeatable")
	flags.StringVarP(&o.output, FlagNameOutput.String(), "o", OutputTable, "Output format: table, json or yaml")
	flags.BoolVarP(&o.verbose, FlagNameVerbose.String(), "v", false, "Log every placement decision")
	return cmd
}

func (o *planOptions) input(cmd *cobra.Command) (planner.Input, error) {
	var in planner.Input
	if o.file != "" {
		var err error
		if in, err = planfile.Load(o.file); err != nil {
			return planner.Input{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed(FlagNameStrategy.String()) {
		in.Strategy = planner.Strategy(o.strategy)
	}
	if flags.Changed(FlagNameUsableHostsOnly.String()) {
		in.UsableHostsOnly = o.usableHostsOnly
	}
	if len(o.pools) > 0 {
		in.Pools = o.pools
	}
	if len(o.reserved) > 0 {
		in.Reserved = o.reserved
	}
	for _, text := range o.requests {
		spec, err := planfile.ParseRequest(text)
		if err != nil {
			return planner.Input{}, err
		}
		in.Requests = append(in.Requests, spec)
	}

	if err := planfile.Normalize(&in); err != nil {
		return planner.Input{}, err
	}
	return in, nil
}

func (o *planOptions) run(cmd *cobra.Command) error {
	switch o.output {
	case OutputTable, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("unknown output format %q", o.output)
	}

	in, err := o.input(cmd)
	if err != nil {
		return err
	}

	logger := logr.Discard()
	if o.verbose {
		stderr := cmd.ErrOrStderr()
		logger = funcr.New(func(prefix, args string) {
			fmt.Fprintln(stderr, strings.TrimSpace(prefix+" "+args))
		}, funcr.Options{Verbosity: 1})
	}

	res, err := planner.New(logger).Plan(in)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), o.output, res)
}

func render(w io.Writer, format string, res *planner.Result) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case OutputYAML:
		// Result only carries json tags. JSON is valid YAML, so decode it into
		// a node tree, which keeps big integers verbatim, and drop the flow style.
		raw, err := json.Marshal(res)
		if err != nil {
			return err
		}
		var doc yaml.Node
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return err
		}
		blockStyle(&doc)
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(&doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return renderTables(w, res)
	}
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
