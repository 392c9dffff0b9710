package cmds

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/spf13/cobra"
)

func newScanCmd() *cobra.Command {
	var deploymentID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scan <main.tf|->",
		Short: "Run the security scan on Terraform code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromCmd(cmd)
			if err != nil {
				return err
			}
			code, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			if err := a.requireLogin(); err != nil {
				return err
			}
			res, err := a.Services.Security.Scan(cmd.Context(), code, deploymentID)
			if err != nil {
				return commandError(err, "security scan")
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}
			printScan(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVar(&deploymentID, "deployment-id", "", "Attach the scan to a deployment")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw result as JSON")
	return cmd
}

func newEstimateCmd() *cobra.Command {
	var deploymentID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "estimate <main.tf|->",
		Short: "Estimate the monthly cost of Terraform code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromCmd(cmd)
			if err != nil {
				return err
			}
			code, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			if err := a.requireLogin(); err != nil {
				return err
			}
			res, err := a.Services.Cost.Estimate(cmd.Context(), code, deploymentID)
			if err != nil {
				return commandError(err, "cost estimate")
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}
			printEstimate(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVar(&deploymentID, "deployment-id", "", "Attach the estimate to a deployment")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw result as JSON")
	return cmd
}

func printScan(w io.Writer, s *services.SecurityScan) {
	_, _ = fmt.Fprintf(w, "Security score %.1f/10 (%s): %d passed, %d failed\n", s.SecurityScore, s.Grade(), s.PassedChecks, s.FailedChecks)
	_, _ = fmt.Fprintf(w, "critical %d  high %d  medium %d  low %d\n", s.CriticalIssues, s.HighIssues, s.MediumIssues, s.LowIssues)
	for _, is := range s.Issues {
		_, _ = fmt.Fprintf(w, "- [%s] %s (%s)\n", strings.ToUpper(is.Severity), is.Title, is.Resource)
		if is.Description != "" {
			_, _ = fmt.Fprintf(w, "    %s\n", is.Description)
		}
		if is.Guideline != "" {
			_, _ = fmt.Fprintf(w, "    see %s\n", is.Guideline)
		}
	}
}

func printEstimate(w io.Writer, e *services.CostEstimate) {
	_, _ = fmt.Fprintf(w, "$%.2f/month  $%.2f/year\n", e.MonthlyCost, e.AnnualCost)
	for _, k := range e.BreakdownKeys() {
		_, _ = fmt.Fprintf(w, "  %-14s $%.2f\n", k, e.Breakdown[k])
	}
	if e.OverThreshold() {
		_, _ = fmt.Fprintf(w, "warning: over $%.0f/month\n", services.CostWarningThreshold)
	}
	if e.Warning != "" {
		_, _ = fmt.Fprintf(w, "warning: %s\n", e.Warning)
	}
	if s := e.PotentialSavings(); s > 0 {
		_, _ = fmt.Fprintf(w, "Potential savings $%.2f/month:\n", s)
		for _, r := range e.Recommendations {
			_, _ = fmt.Fprintf(w, "- %s ($%.2f): %s\n", r.Title, r.PotentialSavings, r.Description)
		}
	}
}
