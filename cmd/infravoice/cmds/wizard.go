package cmds

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/infravoice/pkg/audio"
	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/go-go-golems/infravoice/pkg/store"
	"github.com/go-go-golems/infravoice/pkg/tui"
	"github.com/go-go-golems/infravoice/pkg/tui/models"
	"github.com/go-go-golems/infravoice/pkg/wizard"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newWizardCmd() *cobra.Command {
	var mode, provider, region, view string
	var refresh, actionTimeout time.Duration
	var altScreen bool

	cmd := &cobra.Command{
		Use:     "wizard",
		Aliases: []string{"tui"},
		Short:   "Interactive deployment wizard",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loggedInApp(cmd)
			if err != nil {
				return err
			}
			opts, err := wizardOptions(a, mode, provider, region)
			if err != nil {
				return err
			}
			start := models.ViewID(view)
			switch start {
			case models.ViewWizard, models.ViewDeployments, models.ViewDashboard, models.ViewEvents:
			default:
				return errors.Errorf("unknown view %q", view)
			}

			closeLog, err := redirectLogs(cmd)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if err := a.Auth.LoadUser(ctx); err != nil {
				return commandError(err, "load user")
			}

			bus, err := tui.NewInMemoryBus()
			if err != nil {
				return err
			}

			wiz := wizard.NewController(wizard.ServiceDeps(a.Services), opts)
			defer wiz.Close()
			bridge := &tui.WizardBridge{Pub: bus.Publisher, Wizard: wiz}
			bridge.Attach()
			a.Client.SetOnAuthFailure(tui.AuthFailureHook(bus.Publisher))

			deployments := store.NewDeploymentStore()
			recorderCmd := a.Config.Recorder.Command
			runner := &tui.ActionRunner{
				Wizard:      wiz,
				Bridge:      bridge,
				Services:    a.Services,
				Deployments: deployments,
				NewRecorder: func() *audio.Recorder {
					return audio.NewRecorder(audio.Options{Command: recorderCmd})
				},
				Timeout: actionTimeout,
			}

			tui.RegisterDomainToUITransformer(bus)
			runner.Register(ctx, bus)

			model := models.NewRootModel(models.RootOptions{
				Initial:       wiz.Snapshot(),
				User:          a.Auth.User(),
				RedirectDelay: opts.RedirectDelay,
				Publish:       tui.Publisher(bus.Publisher),
				Start:         start,
			})
			programOptions := []tea.ProgramOption{
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
				tea.WithContext(ctx),
			}
			if altScreen {
				programOptions = append(programOptions, tea.WithAltScreen())
			}
			program := tea.NewProgram(model, programOptions...)
			tui.RegisterUIForwarder(bus, program)

			watcher := &tui.DeploymentWatcher{
				Getter:   a.Services.Deployments,
				Store:    deployments,
				Interval: refresh,
				Pub:      bus.Publisher,
			}

			eg, egCtx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				err := bus.Run(egCtx)
				if stderrors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
			eg.Go(func() error {
				err := watcher.Run(egCtx)
				if stderrors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
			eg.Go(func() error {
				defer cancel()
				// Events published before the router runs are dropped.
				select {
				case <-bus.Running():
				case <-egCtx.Done():
					return nil
				}
				_, err := program.Run()
				if stderrors.Is(err, context.Canceled) || stderrors.Is(err, tea.ErrProgramKilled) {
					return nil
				}
				return err
			})

			err = eg.Wait()
			runner.Wait()
			if err != nil {
				return errors.Wrap(err, "wizard")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(wizard.ModeVoice), "Initial input mode: voice or text")
	cmd.Flags().StringVar(&provider, "provider", "", "Initial cloud provider (defaults to config)")
	cmd.Flags().StringVar(&region, "region", "", "Initial region (defaults to config or the provider default)")
	cmd.Flags().StringVar(&view, "view", string(models.ViewWizard), "Start view: wizard, deployments, dashboard or events")
	cmd.Flags().DurationVar(&refresh, "refresh", 2*time.Second, "Polling interval for in-progress deployments")
	cmd.Flags().DurationVar(&actionTimeout, "action-timeout", 5*time.Minute, "Upper bound for one backend action")
	cmd.Flags().BoolVar(&altScreen, "alt-screen", true, "Use the terminal alternate screen buffer")
	return cmd
}

func wizardOptions(a *app, mode, provider, region string) (wizard.Options, error) {
	m := wizard.InputMode(mode)
	if m != wizard.ModeVoice && m != wizard.ModeText {
		return wizard.Options{}, errors.Errorf("unknown mode %q (want voice or text)", mode)
	}
	if provider == "" {
		provider = a.Config.Defaults.Provider
	}
	p, err := services.ParseProvider(provider)
	if err != nil {
		return wizard.Options{}, err
	}
	if region == "" {
		region = a.Config.Defaults.Region
		if p != services.CloudProvider(a.Config.Defaults.Provider) {
			region = services.DefaultRegion(p)
		}
	}
	return wizard.Options{Mode: m, Provider: p, Region: region, RedirectDelay: a.Config.RedirectDelay}, nil
}

// redirectLogs keeps log output off the terminal the program draws on.
// Without an explicit --log-file the log goes to a file in the temp dir.
func redirectLogs(cmd *cobra.Command) (func(), error) {
	if f := cmd.Root().PersistentFlags().Lookup("log-file"); f != nil && f.Changed {
		return func() {}, nil
	}
	path := filepath.Join(os.TempDir(), "infravoice-wizard.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, errors.Wrap(err, "open log file")
	}
	prev := log.Logger
	log.Logger = log.Output(f)
	return func() {
		log.Logger = prev
		_ = f.Close()
	}, nil
}
