package cmds

import (
	"fmt"

	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newDashboardCmd() *cobra.Command {
	var recent int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show account, totals and recent deployments",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loggedInApp(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd.Context(), a.Config.Timeout)
			defer cancel()

			var (
				user  *services.User
				stats *services.Stats
				list  []services.Deployment
			)
			eg, egCtx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				u, err := a.Services.Auth.Me(egCtx)
				if err != nil {
					return commandError(err, "load user")
				}
				user = u
				return nil
			})
			eg.Go(func() error {
				s, err := a.Services.Deployments.Stats(egCtx)
				if err != nil {
					return commandError(err, "deployment stats")
				}
				stats = s
				return nil
			})
			eg.Go(func() error {
				ds, err := a.Services.Deployments.List(egCtx, services.ListOptions{Limit: recent})
				if err != nil {
					return commandError(err, "list deployments")
				}
				list = ds
				return nil
			})
			if err := eg.Wait(); err != nil {
				return err
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), map[string]any{"user": user, "stats": stats, "recent": list})
			}
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "%s <%s>  tier %s  API quota %d/%d (%d left)\n\n",
				user.Username, user.Email, user.SubscriptionTier, user.APICallsUsed, user.APIQuota, user.QuotaRemaining())
			_, _ = fmt.Fprintf(w, "deployments %d  active %d  failed %d  success %.1f%%  cost $%.2f/month\n\n",
				stats.TotalDeployments, stats.ActiveDeployments, stats.FailedDeployments, stats.SuccessRate, stats.TotalCost)
			if len(list) == 0 {
				_, _ = fmt.Fprintln(w, "No deployments yet. Run `infravoice wizard` to create one.")
				return nil
			}
			_, _ = fmt.Fprintln(w, deploymentsTable(list))
			return nil
		},
	}
	cmd.Flags().IntVar(&recent, "recent", 5, "How many recent deployments to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print everything as JSON")
	return cmd
}
