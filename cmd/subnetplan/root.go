package main

import (
	"fmt"

	bv "github.com/containernetworking/plugins/pkg/utils/buildversion"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "subnetplan",
		Short:         "Plan variable sized subnets into address pools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newPlanCommand(), newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "subnetplan %s\n", bv.BuildVersion)
			return err
		},
	}
}
