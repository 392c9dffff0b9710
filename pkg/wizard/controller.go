package wizard

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/go-go-golems/infravoice/pkg/api"
	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const DefaultRedirectDelay = 3 * time.Second

type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (*services.Transcript, error)
}

type Generator interface {
	Generate(ctx context.Context, req services.GenerateRequest) (*services.GenerateResponse, error)
}

type Scanner interface {
	Scan(ctx context.Context, code, deploymentID string) (*services.SecurityScan, error)
}

type Estimator interface {
	Estimate(ctx context.Context, code, deploymentID string) (*services.CostEstimate, error)
}

type Deployer interface {
	Deploy(ctx context.Context, id string) (*services.ActionResult, error)
}

type Navigator interface {
	Navigate(path string)
}

type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// Transition is reported for every step change. State is the snapshot
// taken when the step changed.
type Transition struct {
	From  Step
	To    Step
	At    time.Time
	Error string
	State State
}

type Observer interface {
	OnTransition(t Transition)
}

type ObserverFunc func(t Transition)

func (f ObserverFunc) OnTransition(t Transition) { f(t) }

// Timer is the handle returned by an AfterFunc scheduler.
type Timer interface {
	Stop() bool
}

type Deps struct {
	Transcriber Transcriber
	Generator   Generator
	Scanner     Scanner
	Estimator   Estimator
	Deployer    Deployer
	Navigator   Navigator
	Observer    Observer
	// AfterFunc schedules the post-deploy redirect; time.AfterFunc when nil.
	AfterFunc func(d time.Duration, f func()) Timer
	Now       func() time.Time
}

// ServiceDeps wires the backend services into Deps.
func ServiceDeps(svc *services.Services) Deps {
	return Deps{
		Transcriber: svc.Voice,
		Generator:   svc.Code,
		Scanner:     svc.Security,
		Estimator:   svc.Cost,
		Deployer:    svc.Deployments,
	}
}

type Options struct {
	Mode          InputMode
	Provider      services.CloudProvider
	Region        string
	RedirectDelay time.Duration
}

// State is a snapshot of the wizard.
type State struct {
	Step       Step
	Mode       InputMode
	Text       string
	Transcript string
	Provider   services.CloudProvider
	Region     string

	DeploymentID string
	Resources    []string
	Files        FileSet

	Scan        *services.SecurityScan
	ScanSkipped bool
	Estimate    *services.CostEstimate
	// CostWarning is set when estimation failed. It never blocks deploying.
	CostWarning string

	Deploy     *services.ActionResult
	RedirectTo string

	Error string
}

// Description is what Generate sends: the transcript in voice mode, the
// typed text otherwise.
func (s State) Description() string {
	if s.Mode == ModeVoice {
		return s.Transcript
	}
	return s.Text
}

// Controller serialises wizard transitions. Each operation issues at most
// one backend call per step; a second operation while one is in flight
// fails with ErrBusy.
type Controller struct {
	deps Deps
	opts Options

	mu      sync.Mutex
	st      State
	busy    bool
	epoch   int
	timer   Timer
	pending []Transition
	closed  bool
}

func NewController(deps Deps, opts Options) *Controller {
	if opts.Mode == "" {
		opts.Mode = ModeVoice
	}
	if opts.Provider == "" {
		opts.Provider = services.ProviderAWS
	}
	if opts.Region == "" {
		opts.Region = services.DefaultRegion(opts.Provider)
	}
	if opts.RedirectDelay <= 0 {
		opts.RedirectDelay = DefaultRedirectDelay
	}
	if deps.AfterFunc == nil {
		deps.AfterFunc = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	c := &Controller{deps: deps, opts: opts}
	c.st = c.initialState(opts.Mode, opts.Provider, opts.Region)
	return c
}

func (c *Controller) initialState(mode InputMode, provider services.CloudProvider, region string) State {
	return State{Step: StepInput, Mode: mode, Provider: provider, Region: region}
}

func (c *Controller) SetObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deps.Observer = o
}

func (c *Controller) SetNavigator(n Navigator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deps.Navigator = n
}

func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	s := c.st
	s.Files = s.Files.clone()
	s.Resources = append([]string(nil), s.Resources...)
	return s
}

func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *Controller) SetMode(m InputMode) error {
	if m != ModeVoice && m != ModeText {
		return errors.Errorf("unknown input mode %q", m)
	}
	return c.editInput("set mode", func(s *State) { s.Mode = m })
}

func (c *Controller) SetText(text string) error {
	return c.editInput("set text", func(s *State) { s.Text = text })
}

func (c *Controller) SetTranscript(text string) error {
	return c.editInput("set transcript", func(s *State) { s.Transcript = text })
}

func (c *Controller) SetProvider(p services.CloudProvider) error {
	if _, err := services.ParseProvider(string(p)); err != nil {
		return err
	}
	return c.editInput("set provider", func(s *State) { s.Provider = p })
}

func (c *Controller) SetRegion(region string) error {
	region = strings.TrimSpace(region)
	if region == "" {
		return errors.New("region is empty")
	}
	return c.editInput("set region", func(s *State) { s.Region = region })
}

func (c *Controller) editInput(op string, fn func(s *State)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(op, StepInput); err != nil {
		return err
	}
	fn(&c.st)
	return nil
}

// Transcribe uploads audio and replaces the transcript. The wizard returns
// to input either way.
func (c *Controller) Transcribe(ctx context.Context, filename string, audio io.Reader) error {
	c.mu.Lock()
	if err := c.checkLocked("transcribe", StepInput); err != nil {
		c.mu.Unlock()
		return err
	}
	epoch := c.beginLocked(StepTranscribing)
	c.unlockAndFlush()

	res, err := c.deps.Transcriber.Transcribe(ctx, filename, audio)

	c.mu.Lock()
	if !c.finishLocked(epoch) {
		c.mu.Unlock()
		return ErrReset
	}
	if err != nil {
		c.failLocked(StepInput, err, FallbackTranscribe)
		c.unlockAndFlush()
		return err
	}
	c.st.Transcript = res.Transcript
	c.moveLocked(StepInput, "")
	c.unlockAndFlush()
	log.Debug().Float64("confidence", res.Confidence).Msg("transcribed")
	return nil
}

func (c *Controller) Generate(ctx context.Context) error {
	c.mu.Lock()
	if err := c.checkLocked("generate", StepInput); err != nil {
		c.mu.Unlock()
		return err
	}
	desc := c.st.Description()
	if strings.TrimSpace(desc) == "" {
		c.st.Error = ErrEmptyDescription.Error()
		c.mu.Unlock()
		return ErrEmptyDescription
	}
	req := services.GenerateRequest{
		Description:   desc,
		CloudProvider: c.st.Provider,
		Region:        c.st.Region,
	}
	epoch := c.beginLocked(StepGenerating)
	c.unlockAndFlush()

	res, err := c.deps.Generator.Generate(ctx, req)

	c.mu.Lock()
	if !c.finishLocked(epoch) {
		c.mu.Unlock()
		return ErrReset
	}
	if err != nil {
		c.failLocked(StepInput, err, FallbackGenerate)
		c.unlockAndFlush()
		return err
	}
	c.st.DeploymentID = res.DeploymentID
	c.st.Resources = append([]string(nil), res.Resources...)
	c.st.Files = NewFileSet(res)
	c.st.Scan, c.st.Estimate, c.st.ScanSkipped, c.st.CostWarning = nil, nil, false, ""
	c.moveLocked(StepReviewing, "")
	c.unlockAndFlush()
	log.Info().Str("deployment_id", res.DeploymentID).Int("resources", len(res.Resources)).Msg("terraform generated")
	return nil
}

// EditFile replaces the content of one generated file. Edits after a scan
// keep the wizard in its current step; the scan result is not recomputed.
func (c *Controller) EditFile(name, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked("edit file", StepReviewing, StepReady); err != nil {
		return err
	}
	fs, err := c.st.Files.with(name, content)
	if err != nil {
		return err
	}
	c.st.Files = fs
	return nil
}

// Scan runs the security scan on main.tf and, when it succeeds, the cost
// estimate. A failed scan returns to reviewing; a failed estimate still
// reaches ready with CostWarning set.
func (c *Controller) Scan(ctx context.Context) error {
	c.mu.Lock()
	if err := c.checkLocked("scan", StepReviewing); err != nil {
		c.mu.Unlock()
		return err
	}
	code, _ := c.st.Files.Get(FileMain)
	id := c.st.DeploymentID
	epoch := c.beginLocked(StepScanning)
	c.unlockAndFlush()

	res, err := c.deps.Scanner.Scan(ctx, code, id)

	c.mu.Lock()
	if !c.currentLocked(epoch) {
		c.mu.Unlock()
		return ErrReset
	}
	if err != nil {
		c.busy = false
		c.failLocked(StepReviewing, err, FallbackScan)
		c.unlockAndFlush()
		return err
	}
	c.st.Scan = res
	c.st.ScanSkipped = false
	c.moveLocked(StepEstimating, "")
	c.unlockAndFlush()
	log.Info().Str("deployment_id", id).Float64("score", res.SecurityScore).Msg("security scan done")

	return c.estimate(ctx, epoch, code, id)
}

// SkipScan goes straight to the cost estimate without a security scan.
func (c *Controller) SkipScan(ctx context.Context) error {
	c.mu.Lock()
	if err := c.checkLocked("skip scan", StepReviewing); err != nil {
		c.mu.Unlock()
		return err
	}
	code, _ := c.st.Files.Get(FileMain)
	id := c.st.DeploymentID
	c.st.Scan = nil
	c.st.ScanSkipped = true
	epoch := c.beginLocked(StepEstimating)
	c.unlockAndFlush()

	return c.estimate(ctx, epoch, code, id)
}

func (c *Controller) estimate(ctx context.Context, epoch int, code, id string) error {
	res, err := c.deps.Estimator.Estimate(ctx, code, id)

	c.mu.Lock()
	if !c.finishLocked(epoch) {
		c.mu.Unlock()
		return ErrReset
	}
	if err != nil {
		c.st.Estimate = nil
		c.st.CostWarning = api.Message(err, FallbackEstimate)
		log.Warn().Err(err).Str("deployment_id", id).Msg("cost estimate failed; continuing")
	} else {
		c.st.Estimate = res
		c.st.CostWarning = ""
	}
	c.moveLocked(StepReady, "")
	c.unlockAndFlush()
	return nil
}

// Deploy starts the deployment and, on success, schedules navigation to the
// deployment's detail page after the redirect delay.
func (c *Controller) Deploy(ctx context.Context) error {
	c.mu.Lock()
	if err := c.checkLocked("deploy", StepReady); err != nil {
		c.mu.Unlock()
		return err
	}
	id := c.st.DeploymentID
	if id == "" {
		c.mu.Unlock()
		return ErrNoDeployment
	}
	epoch := c.beginLocked(StepDeploying)
	c.unlockAndFlush()

	res, err := c.deps.Deployer.Deploy(ctx, id)

	c.mu.Lock()
	if !c.finishLocked(epoch) {
		c.mu.Unlock()
		return ErrReset
	}
	if err != nil {
		c.failLocked(StepReady, err, FallbackDeploy)
		c.unlockAndFlush()
		return err
	}
	path := DeploymentPath(id)
	c.st.Deploy = res
	c.st.RedirectTo = path
	c.moveLocked(StepSuccess, "")
	c.timer = c.deps.AfterFunc(c.opts.RedirectDelay, func() { c.redirect(epoch, path) })
	c.unlockAndFlush()
	log.Info().Str("deployment_id", id).Dur("redirect_in", c.opts.RedirectDelay).Msg("deployment started")
	return nil
}

// DeploymentPath is the detail route of a deployment.
func DeploymentPath(id string) string { return "/deployments/" + id }

func (c *Controller) redirect(epoch int, path string) {
	c.mu.Lock()
	if c.closed || epoch != c.epoch || c.st.Step != StepSuccess || c.st.RedirectTo != path {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	nav := c.deps.Navigator
	c.mu.Unlock()
	if nav != nil {
		nav.Navigate(path)
	}
}

// Reset starts over: back to input with generated code, results and errors
// cleared. Mode, provider and region are kept. A call in flight finishes
// against the old state and its result is dropped.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.epoch++
	c.stopTimerLocked()
	c.busy = false
	from := c.st.Step
	c.st = c.initialState(c.st.Mode, c.st.Provider, c.st.Region)
	if from != StepInput {
		c.recordLocked(from, StepInput, "")
	}
	c.unlockAndFlush()
}

// Close cancels the pending redirect. The controller stays readable.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.epoch++
	c.stopTimerLocked()
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) checkLocked(op string, allowed ...Step) error {
	if c.busy {
		return errors.Wrapf(ErrBusy, "%s during %s", op, c.st.Step)
	}
	for _, s := range allowed {
		if c.st.Step == s {
			return nil
		}
	}
	return errors.Wrapf(ErrInvalidTransition, "%s from %s", op, c.st.Step)
}

func (c *Controller) beginLocked(to Step) int {
	c.busy = true
	c.st.Error = ""
	c.moveLocked(to, "")
	return c.epoch
}

func (c *Controller) currentLocked(epoch int) bool {
	return epoch == c.epoch
}

// finishLocked ends the in-flight call. It reports false when the wizard was
// reset in the meantime.
func (c *Controller) finishLocked(epoch int) bool {
	if !c.currentLocked(epoch) {
		return false
	}
	c.busy = false
	return true
}

func (c *Controller) failLocked(to Step, err error, fallback string) {
	msg := api.Message(err, fallback)
	c.st.Error = msg
	c.moveLocked(to, msg)
	log.Warn().Err(err).Str("step", string(to)).Msg("wizard step failed")
}

func (c *Controller) moveLocked(to Step, errMsg string) {
	from := c.st.Step
	c.st.Step = to
	c.recordLocked(from, to, errMsg)
}

func (c *Controller) recordLocked(from, to Step, errMsg string) {
	if c.deps.Observer == nil {
		return
	}
	c.pending = append(c.pending, Transition{From: from, To: to, At: c.deps.Now(), Error: errMsg, State: c.snapshotLocked()})
}

// unlockAndFlush releases the lock, then reports queued transitions so
// observers may call back into the controller.
func (c *Controller) unlockAndFlush() {
	pending := c.pending
	c.pending = nil
	obs := c.deps.Observer
	c.mu.Unlock()
	if obs == nil {
		return
	}
	for _, t := range pending {
		obs.OnTransition(t)
	}
}
