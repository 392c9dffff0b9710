package tui

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-go-golems/infravoice/pkg/api"
	"github.com/go-go-golems/infravoice/pkg/audio"
	"github.com/go-go-golems/infravoice/pkg/credentials"
	"github.com/go-go-golems/infravoice/pkg/mockbackend"
	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/go-go-golems/infravoice/pkg/store"
	"github.com/go-go-golems/infravoice/pkg/wizard"
	"github.com/stretchr/testify/require"
)

type runnerFixture struct {
	backend *mockbackend.Server
	svc     *services.Services
	wiz     *wizard.Controller
	store   *store.DeploymentStore
	runner  *ActionRunner
	bus     *Bus
	sender  *captureSender
}

func newRunnerFixture(t *testing.T) *runnerFixture {
	t.Helper()
	backend := mockbackend.New(mockbackend.Options{})
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	creds := credentials.NewScopedStore(credentials.NewMemoryStorage(), credentials.NewMemoryStorage())
	client, err := api.New(api.Options{BaseURL: srv.URL, Credentials: creds})
	require.NoError(t, err)
	svc := services.New(client)
	tokens, err := svc.Auth.Login(context.Background(), services.LoginRequest{
		Email: mockbackend.DefaultEmail, Password: mockbackend.DefaultPassword,
	})
	require.NoError(t, err)
	require.NoError(t, creds.Save(tokens, false))

	f := &runnerFixture{
		backend: backend,
		svc:     svc,
		wiz:     wizard.NewController(wizard.ServiceDeps(svc), wizard.Options{Mode: wizard.ModeText, RedirectDelay: 20 * time.Millisecond}),
		store:   store.NewDeploymentStore(),
	}
	t.Cleanup(f.wiz.Close)

	f.bus, f.sender = startBus(t, func(ctx context.Context, bus *Bus) {
		bridge := &WizardBridge{Pub: bus.Publisher, Wizard: f.wiz}
		bridge.Attach()
		f.runner = &ActionRunner{
			Wizard:      f.wiz,
			Bridge:      bridge,
			Services:    svc,
			Deployments: f.store,
			NewRecorder: func() *audio.Recorder {
				return audio.NewRecorder(audio.Options{
					Command:     []string{"sh", "-c", `printf 'RIFFdata' > "$1"; while :; do sleep 0.05; done`, "sh", audio.FilePlaceholder},
					Dir:         t.TempDir(),
					StopTimeout: time.Second,
				})
			},
			Timeout: 5 * time.Second,
		}
		f.runner.Register(ctx, bus)
	})
	t.Cleanup(f.runner.Wait)
	return f
}

func (f *runnerFixture) doneCount(kind ActionKind) int {
	n := 0
	for _, m := range f.sender.snapshot() {
		if d, ok := m.(ActionDoneMsg); ok && d.Done.Kind == kind {
			n++
		}
	}
	return n
}

// do publishes req and waits for its ActionDone.
func (f *runnerFixture) do(t *testing.T, req ActionRequest) ActionDone {
	t.Helper()
	before := f.doneCount(req.Kind)
	require.NoError(t, PublishAction(f.bus.Publisher, req))
	require.Eventually(t, func() bool { return f.doneCount(req.Kind) > before }, 5*time.Second, 10*time.Millisecond)

	var last ActionDone
	for _, m := range f.sender.snapshot() {
		if d, ok := m.(ActionDoneMsg); ok && d.Done.Kind == req.Kind {
			last = d.Done
		}
	}
	return last
}

func TestRunnerWalksTheWizard(t *testing.T) {
	f := newRunnerFixture(t)

	done := f.do(t, ActionRequest{Kind: ActionGenerate, Mode: wizard.ModeText, Text: "a web server with a postgres database", Provider: services.ProviderAWS})
	require.Empty(t, done.Error)
	st := waitMsg(t, f.sender, func(m WizardStateMsg) bool { return m.State.Step == wizard.StepReviewing })
	require.NotEmpty(t, st.State.DeploymentID)
	require.NotEmpty(t, st.State.Files)

	done = f.do(t, ActionRequest{Kind: ActionEditFile, File: "main.tf", Content: "# edited\n"})
	require.Empty(t, done.Error)
	waitMsg(t, f.sender, func(m WizardStateMsg) bool {
		return m.Transition == nil && len(m.State.Files) > 0 && m.State.Files[0].Content == "# edited\n"
	})

	require.Empty(t, f.do(t, ActionRequest{Kind: ActionScan}).Error)
	waitMsg(t, f.sender, func(m WizardStateMsg) bool { return m.State.Step == wizard.StepReady })

	require.Empty(t, f.do(t, ActionRequest{Kind: ActionDeploy}).Error)
	waitMsg(t, f.sender, func(m WizardStateMsg) bool { return m.State.Step == wizard.StepSuccess })
	nav := waitMsg[NavigateMsg](t, f.sender, nil)
	require.Equal(t, wizard.DeploymentPath(st.State.DeploymentID), nav.Path)

	require.Empty(t, f.do(t, ActionRequest{Kind: ActionReset}).Error)
	require.Equal(t, wizard.StepInput, f.wiz.Snapshot().Step)
}

func TestRunnerGenerateWithoutDescription(t *testing.T) {
	f := newRunnerFixture(t)

	done := f.do(t, ActionRequest{Kind: ActionGenerate, Mode: wizard.ModeText, Text: "   "})
	require.NotEmpty(t, done.Error)
	msg := waitMsg(t, f.sender, func(m WizardStateMsg) bool { return m.State.Error != "" })
	require.Equal(t, wizard.StepInput, msg.State.Step)
	require.Equal(t, 0, f.backend.Calls("code/generate"))
}

func TestRunnerSurfacesBackendErrors(t *testing.T) {
	f := newRunnerFixture(t)
	f.backend.Fail("code/generate", 500, "model overloaded", 1)

	done := f.do(t, ActionRequest{Kind: ActionGenerate, Mode: wizard.ModeText, Text: "a bucket"})
	require.Equal(t, "model overloaded", done.Error)
	waitMsg(t, f.sender, func(m EventLogAppendMsg) bool { return m.Entry.Level == LogLevelError })
	require.Equal(t, wizard.StepInput, f.wiz.Snapshot().Step)
}

func TestRunnerTranscribeFile(t *testing.T) {
	f := newRunnerFixture(t)

	done := f.do(t, ActionRequest{Kind: ActionTranscribe, Path: filepath.Join(t.TempDir(), "notes.txt")})
	require.Contains(t, done.Error, "unsupported audio format")

	path := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF....WAVE"), 0o600))
	done = f.do(t, ActionRequest{Kind: ActionTranscribe, Path: path})
	require.Empty(t, done.Error)

	st := f.wiz.Snapshot()
	require.Equal(t, wizard.ModeVoice, st.Mode)
	require.Equal(t, wizard.StepInput, st.Step)
	require.NotEmpty(t, st.Transcript)
}

func TestRunnerRecording(t *testing.T) {
	f := newRunnerFixture(t)

	require.Contains(t, f.do(t, ActionRequest{Kind: ActionRecordStop}).Error, "not recording")

	require.Empty(t, f.do(t, ActionRequest{Kind: ActionRecordStart}).Error)
	waitMsg(t, f.sender, func(m RecordingMsg) bool { return m.Status.Recording })
	require.Contains(t, f.do(t, ActionRequest{Kind: ActionRecordStart}).Error, "already recording")

	time.Sleep(100 * time.Millisecond)
	require.Empty(t, f.do(t, ActionRequest{Kind: ActionRecordStop}).Error)
	waitMsg(t, f.sender, func(m RecordingMsg) bool { return !m.Status.Recording && m.Status.Error == "" })
	require.NotEmpty(t, f.wiz.Snapshot().Transcript)
}

func TestRunnerDeploymentPages(t *testing.T) {
	f := newRunnerFixture(t)

	require.Empty(t, f.do(t, ActionRequest{Kind: ActionGenerate, Mode: wizard.ModeText, Text: "a bucket"}).Error)
	id := f.wiz.Snapshot().DeploymentID

	require.Empty(t, f.do(t, ActionRequest{Kind: ActionRefreshDeployments}).Error)
	list := waitMsg(t, f.sender, func(m DeploymentsLoadedMsg) bool { return len(m.Loaded.Deployments) == 1 })
	require.Equal(t, id, list.Loaded.Deployments[0].ID)

	require.Empty(t, f.do(t, ActionRequest{Kind: ActionLoadDeployment, DeploymentID: id}).Error)
	loaded := waitMsg(t, f.sender, func(m DeploymentLoadedMsg) bool { return m.Loaded.Deployment != nil })
	require.Equal(t, id, loaded.Loaded.Deployment.ID)

	// Only deployed infrastructure can be destroyed.
	done := f.do(t, ActionRequest{Kind: ActionDestroy, DeploymentID: id})
	require.Contains(t, done.Error, "cannot destroy")
	require.Equal(t, 0, f.backend.Calls("deployment/destroy"))

	require.Empty(t, f.do(t, ActionRequest{Kind: ActionLoadStats}).Error)
	stats := waitMsg[StatsLoadedMsg](t, f.sender, nil)
	require.Equal(t, 1, stats.Loaded.Stats.TotalDeployments)
}

func TestRunnerDestroyDeployed(t *testing.T) {
	f := newRunnerFixture(t)

	require.Empty(t, f.do(t, ActionRequest{Kind: ActionGenerate, Mode: wizard.ModeText, Text: "a bucket"}).Error)
	require.Empty(t, f.do(t, ActionRequest{Kind: ActionSkipScan}).Error)
	require.Empty(t, f.do(t, ActionRequest{Kind: ActionDeploy}).Error)
	id := f.wiz.Snapshot().DeploymentID

	require.Empty(t, f.do(t, ActionRequest{Kind: ActionLoadDeployment, DeploymentID: id}).Error)
	require.Equal(t, services.StatusDeployed, f.store.Current().Status)

	require.Empty(t, f.do(t, ActionRequest{Kind: ActionDestroy, DeploymentID: id}).Error)
	require.Equal(t, services.StatusDestroying, f.store.Current().Status)
	require.Equal(t, 1, f.backend.Calls("deployment/destroy"))
}

func TestRunnerUnknownAction(t *testing.T) {
	f := newRunnerFixture(t)
	require.Contains(t, f.do(t, ActionRequest{Kind: "bogus"}).Error, "unknown action")
}
