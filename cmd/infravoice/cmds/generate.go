package cmds

import (
	"fmt"
	"strings"

	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/go-go-golems/infravoice/pkg/wizard"
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	var description, descriptionFile string
	var provider, region string
	var outDir string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate Terraform from a description",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromCmd(cmd)
			if err != nil {
				return err
			}
			if descriptionFile != "" {
				description, err = readInput(cmd.InOrStdin(), descriptionFile)
				if err != nil {
					return err
				}
			}
			if strings.TrimSpace(description) == "" {
				return wizard.ErrEmptyDescription
			}

			if provider == "" {
				provider = a.Config.Defaults.Provider
			}
			p, err := services.ParseProvider(provider)
			if err != nil {
				return err
			}
			if region == "" {
				region = a.Config.Defaults.Region
				if p != services.CloudProvider(a.Config.Defaults.Provider) {
					region = services.DefaultRegion(p)
				}
			}
			if err := a.requireLogin(); err != nil {
				return err
			}

			res, err := a.Services.Code.Generate(cmd.Context(), services.GenerateRequest{
				Description:   strings.TrimSpace(description),
				CloudProvider: p,
				Region:        region,
			})
			if err != nil {
				return commandError(err, "generate")
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}

			files := wizard.NewFileSet(res)
			w := cmd.OutOrStdout()
			if outDir != "" {
				if err := files.WriteDir(outDir); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(w, "Wrote %s to %s\n", strings.Join(files.Names(), ", "), outDir)
			} else {
				mainTF, _ := files.Get(wizard.FileMain)
				_, _ = fmt.Fprintln(w, mainTF)
			}
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "deployment %s: %d resources (%s)\n",
				res.DeploymentID, len(res.Resources), strings.Join(res.Resources, ", "))
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "What to build")
	cmd.Flags().StringVar(&descriptionFile, "description-file", "", "Read the description from a file (- for stdin)")
	cmd.Flags().StringVar(&provider, "provider", "", "Cloud provider: aws, gcp or azure (defaults to config)")
	cmd.Flags().StringVar(&region, "region", "", "Region (defaults to config or the provider default)")
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "Write main.tf, variables.tf and outputs.tf here")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw response as JSON")
	return cmd
}
