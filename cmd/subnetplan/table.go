package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"

	"github.com/jbliao/kubesubnet/pkg/planner"
)

// forgeAllocationTable creates the table data of the allocations
func forgeAllocationTable(res *planner.Result) pterm.TableData {
	td := pterm.TableData{
		{"Request", "CIDR", "Pool", "Size", "Usable range", "Status"},
	}
	for _, a := range res.Allocations {
		if !a.Success {
			td = append(td, []string{a.RequestName, "-", "-", "-", "-", a.FailureReason})
			continue
		}
		td = append(td, []string{
			a.RequestName, a.CIDR, a.PoolCIDR, a.Size.String(),
			a.FirstUsable + " - " + a.LastUsable, "ok",
		})
	}
	return td
}

// forgePoolTable creates the table data of the pool reports
func forgePoolTable(res *planner.Result) pterm.TableData {
	td := pterm.TableData{
		{"Pool", "Allocated", "Reserved", "Utilization", "Free blocks"},
	}
	for _, pr := range res.PoolReports {
		free := make([]string, len(pr.FreeBlocks))
		for i, b := range pr.FreeBlocks {
			free[i] = b.CIDR
		}
		td = append(td, []string{
			pr.CIDR, pr.AllocatedSpace.String(), pr.ReservedSpace.String(),
			fmt.Sprintf("%.2f%%", pr.UtilizationPercent), strings.Join(free, " "),
		})
	}
	return td
}

func renderTables(w io.Writer, res *planner.Result) error {
	table := pterm.DefaultTable.WithHasHeader().WithWriter(w)
	if err := table.WithData(forgeAllocationTable(res)).Render(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	if err := table.WithData(forgePoolTable(res)).Render(); err != nil {
		return err
	}

	s := res.Summary
	_, err := fmt.Fprintf(w, "\nstrategy %s: %d/%d placed, %s of %s addresses allocated, %s reserved, %s wasted, efficiency %.2f%%\n",
		res.Strategy, s.SuccessCount, s.TotalRequests, s.TotalAllocatedSpace, s.TotalPoolSpace,
		s.ReservedSpace, s.WastedSpace, s.EfficiencyPercent)
	return err
}
