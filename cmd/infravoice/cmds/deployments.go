package cmds

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/go-go-golems/glazed/pkg/cli"
	glazedcmds "github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/infravoice/pkg/api"
	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newDeploymentsCmd() (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:     "deployments",
		Aliases: []string{"deployment", "deps"},
		Short:   "List, inspect, deploy and destroy deployments",
	}
	list, err := newDeploymentsListCmd()
	if err != nil {
		return nil, err
	}
	cmd.AddCommand(list)
	cmd.AddCommand(newDeploymentsGetCmd())
	cmd.AddCommand(newDeploymentsUpdateCodeCmd())
	cmd.AddCommand(newDeploymentsStatsCmd())
	cmd.AddCommand(newDeploymentsDeployCmd())
	cmd.AddCommand(newDeploymentsDestroyCmd())
	cmd.AddCommand(newDeploymentsCostCmd())
	return cmd, nil
}

type DeploymentsListCommand struct {
	*glazedcmds.CommandDescription
	cobra *cobra.Command
}

var _ glazedcmds.WriterCommand = (*DeploymentsListCommand)(nil)

type DeploymentsListSettings struct {
	Status   string `glazed.parameter:"status"`
	Provider string `glazed.parameter:"provider"`
	Limit    int    `glazed.parameter:"limit"`
	Skip     int    `glazed.parameter:"skip"`
	Output   string `glazed.parameter:"output"`
}

func NewDeploymentsListCommand() (*DeploymentsListCommand, error) {
	return &DeploymentsListCommand{
		CommandDescription: glazedcmds.NewCommandDescription(
			"list",
			glazedcmds.WithShort("List deployments, newest first"),
			glazedcmds.WithParents("deployments"),
			glazedcmds.WithFlags(
				parameters.NewParameterDefinition("status", parameters.ParameterTypeString,
					parameters.WithHelp("Only deployments with this status"), parameters.WithDefault("")),
				parameters.NewParameterDefinition("provider", parameters.ParameterTypeString,
					parameters.WithHelp("Only deployments on this provider"), parameters.WithDefault("")),
				parameters.NewParameterDefinition("limit", parameters.ParameterTypeInteger,
					parameters.WithHelp("Page size"), parameters.WithDefault(20)),
				parameters.NewParameterDefinition("skip", parameters.ParameterTypeInteger,
					parameters.WithHelp("Skip this many deployments"), parameters.WithDefault(0)),
				parameters.NewParameterDefinition("output", parameters.ParameterTypeChoice,
					parameters.WithHelp("Output format"), parameters.WithChoices("table", "json"), parameters.WithDefault("table")),
			),
		),
	}, nil
}

func (c *DeploymentsListCommand) RunIntoWriter(ctx context.Context, parsedLayers *layers.ParsedLayers, w io.Writer) error {
	s := &DeploymentsListSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, s); err != nil {
		return err
	}
	opts, err := c.listOptions(s)
	if err != nil {
		return err
	}
	if c.cobra == nil {
		return errors.New("command not bound to cobra")
	}
	a, err := appFromCmd(c.cobra)
	if err != nil {
		return err
	}
	if err := a.requireLogin(); err != nil {
		return err
	}
	ds, err := a.Services.Deployments.List(ctx, opts)
	if err != nil {
		return commandError(err, "list deployments")
	}
	if s.Output == "json" {
		return printJSON(w, map[string]any{"deployments": ds})
	}
	if len(ds) == 0 {
		_, _ = fmt.Fprintln(w, "No deployments.")
		return nil
	}
	_, _ = fmt.Fprintln(w, deploymentsTable(ds))
	return nil
}

func (c *DeploymentsListCommand) listOptions(s *DeploymentsListSettings) (services.ListOptions, error) {
	opts := services.ListOptions{Skip: s.Skip, Limit: s.Limit, Status: services.DeploymentStatus(s.Status)}
	if opts.Limit <= 0 || opts.Skip < 0 {
		return opts, errors.New("--limit must be > 0 and --skip >= 0")
	}
	if s.Provider != "" {
		p, err := services.ParseProvider(s.Provider)
		if err != nil {
			return opts, err
		}
		opts.Provider = p
	}
	return opts, nil
}

func deploymentsTable(ds []services.Deployment) string {
	rows := make([][]string, 0, len(ds))
	for _, d := range ds {
		rows = append(rows, []string{
			d.ID,
			d.Name,
			string(d.Status),
			strings.ToUpper(string(d.CloudProvider)),
			d.Region,
			fmt.Sprint(len(d.Resources)),
			d.CreatedAt.Short(),
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "STATUS", "PROVIDER", "REGION", "RES", "CREATED").
		Rows(rows...).
		String()
}

func newDeploymentsListCmd() (*cobra.Command, error) {
	c, err := NewDeploymentsListCommand()
	if err != nil {
		return nil, err
	}
	cmd, err := cli.BuildCobraCommand(c, cli.WithParserConfig(cli.CobraParserConfig{AppName: "infravoice"}))
	if err != nil {
		return nil, err
	}
	c.cobra = cmd
	return cmd, nil
}

func newDeploymentsGetCmd() *cobra.Command {
	var code bool

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loggedInApp(cmd)
			if err != nil {
				return err
			}
			d, err := a.Services.Deployments.Get(cmd.Context(), args[0])
			if err != nil {
				return commandError(err, "get deployment")
			}
			if code {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), d.TerraformCode)
				return nil
			}
			return printJSON(cmd.OutOrStdout(), d)
		},
	}
	cmd.Flags().BoolVar(&code, "code", false, "Print only the Terraform code")
	return cmd
}

func newDeploymentsUpdateCodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update-code <id> <file|->",
		Short: "Replace the Terraform code of a deployment that is not deployed yet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loggedInApp(cmd)
			if err != nil {
				return err
			}
			code, err := readInput(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}
			d, err := a.Services.Code.Update(cmd.Context(), args[0], code)
			if err != nil {
				return commandError(err, "update code")
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (%s)\n", d.ID, d.Status)
			return nil
		},
	}
}

func newDeploymentsStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show deployment totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loggedInApp(cmd)
			if err != nil {
				return err
			}
			st, err := a.Services.Deployments.Stats(cmd.Context())
			if err != nil {
				return commandError(err, "deployment stats")
			}
			return printJSON(cmd.OutOrStdout(), st)
		},
	}
}

func newDeploymentsDeployCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy <id>",
		Short: "Start deploying a generated deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loggedInApp(cmd)
			if err != nil {
				return err
			}
			res, err := a.Services.Deployments.Deploy(cmd.Context(), args[0])
			if err != nil {
				return commandError(err, "deploy")
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", res.DeploymentID, res.Message, res.Status)
			return nil
		},
	}
}

func newDeploymentsDestroyCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "destroy <id>",
		Short: "Destroy the cloud resources of a deployed deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loggedInApp(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			d, err := a.Services.Deployments.Get(ctx, args[0])
			if err != nil {
				return commandError(err, "get deployment")
			}
			if !d.CanDestroy() {
				return errors.Errorf("only deployed infrastructure can be destroyed (%s is %s)", d.ID, d.Status)
			}
			if !yes {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Destroy %s (%s)? Type yes to confirm: ", d.Name, d.ID)
				answer, err := readSecretLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
				if strings.TrimSpace(answer) != "yes" {
					return errors.New("aborted")
				}
			}
			res, err := a.Services.Deployments.Destroy(ctx, d.ID)
			if err != nil {
				return commandError(err, "destroy")
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", res.DeploymentID, res.Message, res.Status)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newDeploymentsCostCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "cost <id>",
		Short: "Show the latest cost estimate of a deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loggedInApp(cmd)
			if err != nil {
				return err
			}
			e, err := a.Services.Cost.ForDeployment(cmd.Context(), args[0])
			if errors.Is(err, api.ErrNotFound) {
				return errors.Errorf("no cost estimate for %s yet; run `infravoice estimate --deployment-id %s`", args[0], args[0])
			}
			if err != nil {
				return commandError(err, "cost estimate")
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), e)
			}
			printEstimate(cmd.OutOrStdout(), e)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw estimate as JSON")
	return cmd
}

func loggedInApp(cmd *cobra.Command) (*app, error) {
	a, err := appFromCmd(cmd)
	if err != nil {
		return nil, err
	}
	if err := a.requireLogin(); err != nil {
		return nil, err
	}
	return a, nil
}
