package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/infravoice/pkg/api"
	"github.com/go-go-golems/infravoice/pkg/audio"
	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/go-go-golems/infravoice/pkg/store"
	"github.com/go-go-golems/infravoice/pkg/wizard"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const DefaultPageSize = 20

// ActionRunner executes the actions views publish. Each action runs on its
// own goroutine so a slow backend call never holds up the bus; the wizard
// controller rejects overlapping transitions itself.
type ActionRunner struct {
	Wizard      *wizard.Controller
	Bridge      *WizardBridge
	Services    *services.Services
	Deployments *store.DeploymentStore
	NewRecorder func() *audio.Recorder
	PageSize    int
	// Timeout bounds every action except a running recording.
	Timeout time.Duration

	pub   message.Publisher
	wg    sync.WaitGroup
	mu    sync.Mutex
	rec   *audio.Recorder
	costs map[string]*services.CostEstimate
	unsub func()
}

// Register subscribes the runner to the action topic and mirrors the
// deployment store onto the bus. Actions inherit ctx.
func (r *ActionRunner) Register(ctx context.Context, bus *Bus) {
	r.pub = bus.Publisher
	r.costs = map[string]*services.CostEstimate{}
	if r.PageSize <= 0 {
		r.PageSize = DefaultPageSize
	}
	if r.NewRecorder == nil {
		r.NewRecorder = func() *audio.Recorder { return audio.NewRecorder(audio.Options{}) }
	}
	if r.Deployments != nil {
		r.unsub = r.Deployments.Subscribe(r.publishDeployments)
	}

	bus.AddHandler("ui-actions", TopicUIActions, func(msg *message.Message) error {
		defer msg.Ack()

		env, err := decodeEnvelope(msg)
		if err != nil {
			r.logf("", LogLevelError, "action: bad envelope (%v)", err)
			return nil
		}
		if env.Type != UITypeActionRequest {
			return nil
		}
		var req ActionRequest
		if err := env.Decode(&req); err != nil {
			r.logf("", LogLevelError, "action: bad request (%v)", err)
			return nil
		}
		if req.Kind == "" {
			return nil
		}

		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.run(ctx, req)
		}()
		return nil
	})
}

// Wait blocks until every started action returned, then releases a
// recording that was never stopped.
func (r *ActionRunner) Wait() {
	r.wg.Wait()
	if r.unsub != nil {
		r.unsub()
	}
	r.mu.Lock()
	rec := r.rec
	r.rec = nil
	r.mu.Unlock()
	if rec != nil {
		_ = rec.Close()
	}
}

func (r *ActionRunner) run(ctx context.Context, req ActionRequest) {
	if r.Timeout > 0 && req.Kind != ActionRecordStart {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	r.logf(req.Kind, LogLevelDebug, "action start: %s", req.Kind)
	err := r.dispatch(ctx, req)

	done := ActionDone{At: time.Now(), Kind: req.Kind}
	switch {
	case err == nil:
		r.logf(req.Kind, LogLevelInfo, "action ok: %s", req.Kind)
	case errors.Is(err, wizard.ErrReset):
		r.logf(req.Kind, LogLevelDebug, "action dropped after reset: %s", req.Kind)
	default:
		done.Error = api.Message(err, err.Error())
		r.logf(req.Kind, LogLevelError, "action failed: %s: %s", req.Kind, done.Error)
		log.Debug().Err(err).Str("action", string(req.Kind)).Msg("tui action failed")
	}
	if perr := publish(r.pub, TopicEvents, DomainTypeActionDone, done); perr != nil {
		log.Warn().Err(perr).Msg("publish action done")
	}
}

func (r *ActionRunner) dispatch(ctx context.Context, req ActionRequest) error {
	switch req.Kind {
	case ActionTranscribe:
		return r.transcribeFile(ctx, req.Path)
	case ActionRecordStart:
		return r.startRecording()
	case ActionRecordStop:
		return r.stopRecording(ctx)
	case ActionGenerate:
		return r.generate(ctx, req)
	case ActionEditFile:
		if err := r.Wizard.EditFile(req.File, req.Content); err != nil {
			return err
		}
		return r.Bridge.PublishState()
	case ActionScan:
		return r.Wizard.Scan(ctx)
	case ActionSkipScan:
		return r.Wizard.SkipScan(ctx)
	case ActionDeploy:
		if err := r.Wizard.Deploy(ctx); err != nil {
			return err
		}
		st := r.Wizard.Snapshot()
		if st.Deploy != nil && r.Deployments != nil {
			r.Deployments.Update(st.DeploymentID, store.StatusPatch(st.Deploy.Status))
		}
		return nil
	case ActionReset:
		r.Wizard.Reset()
		return r.Bridge.PublishState()
	case ActionRefreshDeployments:
		return r.Deployments.Refresh(ctx, r.Services.Deployments, services.ListOptions{
			Limit:  r.PageSize,
			Status: req.StatusFilter,
		})
	case ActionLoadDeployment:
		return r.loadDeployment(ctx, req.DeploymentID)
	case ActionDestroy:
		return r.destroy(ctx, req.DeploymentID)
	case ActionLoadStats:
		stats, err := r.Services.Deployments.Stats(ctx)
		if err != nil {
			return err
		}
		return publish(r.pub, TopicEvents, DomainTypeStatsLoaded, StatsLoaded{At: time.Now(), Stats: *stats})
	default:
		return errors.Errorf("unknown action: %s", req.Kind)
	}
}

func (r *ActionRunner) transcribeFile(ctx context.Context, path string) error {
	if path == "" {
		return errors.New("no audio file given")
	}
	if !services.IsSupportedAudio(path) {
		return errors.Errorf("unsupported audio format: %s", filepath.Ext(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open audio file")
	}
	defer func() { _ = f.Close() }()
	if err := r.Wizard.SetMode(wizard.ModeVoice); err != nil {
		return err
	}
	return r.Wizard.Transcribe(ctx, filepath.Base(path), f)
}

func (r *ActionRunner) startRecording() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rec != nil {
		return errors.New("already recording")
	}
	rec := r.NewRecorder()
	if err := rec.Start(); err != nil {
		r.publishRecording(RecordingStatus{At: time.Now(), Error: err.Error()})
		return err
	}
	r.rec = rec
	r.publishRecording(RecordingStatus{At: time.Now(), Recording: true})
	return nil
}

func (r *ActionRunner) stopRecording(ctx context.Context) error {
	r.mu.Lock()
	rec := r.rec
	r.rec = nil
	r.mu.Unlock()
	if rec == nil {
		return errors.New("not recording")
	}
	defer func() { _ = rec.Close() }()

	elapsed := rec.Elapsed()
	path, err := rec.Stop(ctx)
	status := RecordingStatus{At: time.Now(), Elapsed: elapsed.Seconds()}
	if err != nil {
		status.Error = err.Error()
	}
	r.publishRecording(status)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open recording")
	}
	defer func() { _ = f.Close() }()
	if err := r.Wizard.SetMode(wizard.ModeVoice); err != nil {
		return err
	}
	return r.Wizard.Transcribe(ctx, rec.Filename(), f)
}

func (r *ActionRunner) generate(ctx context.Context, req ActionRequest) error {
	if req.Mode != "" {
		if err := r.Wizard.SetMode(req.Mode); err != nil {
			return err
		}
	}
	if req.Provider != "" {
		if err := r.Wizard.SetProvider(req.Provider); err != nil {
			return err
		}
	}
	if req.Region != "" {
		if err := r.Wizard.SetRegion(req.Region); err != nil {
			return err
		}
	}
	setText := r.Wizard.SetText
	if r.Wizard.Snapshot().Mode == wizard.ModeVoice {
		setText = r.Wizard.SetTranscript
	}
	if err := setText(req.Text); err != nil {
		return err
	}
	err := r.Wizard.Generate(ctx)
	if errors.Is(err, wizard.ErrEmptyDescription) {
		// No transition happened; the error only lives in the snapshot.
		_ = r.Bridge.PublishState()
	}
	return err
}

func (r *ActionRunner) loadDeployment(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("missing deployment id")
	}
	d, err := r.Services.Deployments.Get(ctx, id)
	if err != nil {
		return err
	}
	cost, err := r.Services.Cost.ForDeployment(ctx, id)
	if err != nil {
		if !errors.Is(err, api.ErrNotFound) {
			log.Warn().Err(err).Str("deployment_id", id).Msg("load cost estimate")
		}
		cost = nil
	}
	r.mu.Lock()
	r.costs[id] = cost
	r.mu.Unlock()
	r.Deployments.SetCurrent(d)
	return nil
}

func (r *ActionRunner) destroy(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("missing deployment id")
	}
	if cur := r.Deployments.Current(); cur != nil && cur.ID == id && !cur.CanDestroy() {
		return errors.Errorf("cannot destroy a deployment that is %s", cur.Status)
	}
	res, err := r.Services.Deployments.Destroy(ctx, id)
	if err != nil {
		return err
	}
	r.Deployments.Update(id, store.StatusPatch(res.Status))
	r.logf(ActionDestroy, LogLevelInfo, "%s", res.Message)
	return nil
}

func (r *ActionRunner) publishDeployments() {
	now := time.Now()
	if err := publish(r.pub, TopicEvents, DomainTypeDeploymentsLoaded, DeploymentsLoaded{At: now, Deployments: r.Deployments.Deployments()}); err != nil {
		log.Warn().Err(err).Msg("publish deployments")
	}
	cur := r.Deployments.Current()
	if cur == nil {
		return
	}
	r.mu.Lock()
	cost := r.costs[cur.ID]
	r.mu.Unlock()
	if err := publish(r.pub, TopicEvents, DomainTypeDeploymentLoaded, DeploymentLoaded{At: now, Deployment: cur, Cost: cost}); err != nil {
		log.Warn().Err(err).Msg("publish deployment")
	}
}

func (r *ActionRunner) publishRecording(s RecordingStatus) {
	if err := publish(r.pub, TopicEvents, DomainTypeRecording, s); err != nil {
		log.Warn().Err(err).Msg("publish recording status")
	}
}

func (r *ActionRunner) logf(kind ActionKind, level LogLevel, format string, args ...any) {
	ev := ActionLog{At: time.Now(), Kind: kind, Level: level, Text: fmt.Sprintf(format, args...)}
	if err := publish(r.pub, TopicEvents, DomainTypeActionLog, ev); err != nil {
		log.Warn().Err(err).Msg("publish action log")
	}
}
