package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/go-go-golems/infravoice/pkg/store"
	"github.com/go-go-golems/infravoice/pkg/tui"
	"github.com/go-go-golems/infravoice/pkg/tui/styles"
	"github.com/go-go-golems/infravoice/pkg/tui/widgets"
	"github.com/go-go-golems/infravoice/pkg/wizard"
)

type wizardField int

const (
	fieldDescription wizardField = iota
	fieldAudioPath
	fieldRegion
)

const maxIssuesShown = 5

// WizardModel renders the deployment wizard. It never changes wizard state
// itself: keys become action requests and snapshots come back over the bus.
type WizardModel struct {
	width  int
	height int

	state         wizard.State
	redirectDelay time.Duration

	recording     bool
	recordStarted time.Time
	notice        string

	desc      textarea.Model
	audioPath textinput.Model
	region    textinput.Model
	focus     wizardField
	focused   bool

	fileIdx int
	code    viewport.Model
	editor  textarea.Model
	modals  *store.ModalRegistry

	spin spinner.Model
}

func NewWizardModel(initial wizard.State, modals *store.ModalRegistry, redirectDelay time.Duration) WizardModel {
	desc := textarea.New()
	desc.Placeholder = "Describe your infrastructure, e.g. \"a web server with a postgres database and an S3 bucket for uploads\""
	desc.CharLimit = 2000
	desc.ShowLineNumbers = false

	audioPath := textinput.New()
	audioPath.Prompt = "audio file: "
	audioPath.Placeholder = "path/to/recording.wav"

	region := textinput.New()
	region.Prompt = "region: "
	region.CharLimit = 40

	editor := textarea.New()
	editor.ShowLineNumbers = true
	editor.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	if modals == nil {
		modals = store.NewModalRegistry()
	}
	m := WizardModel{
		redirectDelay: redirectDelay,
		desc:          desc,
		audioPath:     audioPath,
		region:        region,
		editor:        editor,
		modals:        modals,
		spin:          sp,
		code:          viewport.New(0, 0),
	}
	return m.withState(initial, nil)
}

func (m WizardModel) State() wizard.State { return m.state }

// Capturing reports whether keys go to a text field.
func (m WizardModel) Capturing() bool {
	return m.editorOpen() || (m.state.Step == wizard.StepInput && m.focused)
}

func (m WizardModel) WithSize(width, height int) WizardModel {
	m.width, m.height = width, height
	w := maxInt(20, width-4)
	m.desc.SetWidth(w)
	m.desc.SetHeight(maxInt(3, minInt(8, height/4)))
	m.editor.SetWidth(w)
	m.editor.SetHeight(maxInt(5, height-10))
	m.code.Width = w
	m.code.Height = maxInt(5, height-10)
	m = m.refreshCode()
	return m
}

func (m WizardModel) Update(msg tea.Msg) (WizardModel, tea.Cmd) {
	switch v := msg.(type) {
	case tui.WizardStateMsg:
		wasBusy := m.state.Step.Transient()
		m = m.withState(v.State, v.Transition)
		if m.state.Step.Transient() && !wasBusy {
			return m, m.spin.Tick
		}
		return m, nil
	case spinner.TickMsg:
		if !m.state.Step.Transient() && !m.recording {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(v)
		return m, cmd
	case tui.RecordingMsg:
		m.recording = v.Status.Recording
		if v.Status.Recording {
			m.recordStarted = v.Status.At
			return m, m.spin.Tick
		}
		return m, nil
	case tui.ActionDoneMsg:
		if v.Done.Error != "" {
			m.notice = v.Done.Error
		}
		return m, nil
	case tea.KeyMsg:
		if m.editorOpen() {
			return m.updateEditor(v)
		}
		if m.state.Step == wizard.StepInput && m.focused {
			return m.updateFields(v)
		}
		return m.updateKeys(v)
	}
	return m, nil
}

func (m WizardModel) withState(s wizard.State, t *tui.WizardTransition) WizardModel {
	prev := m.state.Step
	m.state = s
	if s.Step == wizard.StepInput {
		m.desc.SetValue(s.Description())
		m.region.SetValue(s.Region)
	}
	if s.Step == wizard.StepReviewing && prev != wizard.StepReviewing && prev != wizard.StepScanning {
		m.fileIdx = 0
	}
	if t != nil && t.To == wizard.StepInput && t.From != wizard.StepInput {
		m.modals.Close(store.ModalFileEditor)
	}
	if s.Step != wizard.StepInput {
		m = m.blurAll()
	}
	return m.refreshCode()
}

func (m WizardModel) updateKeys(k tea.KeyMsg) (WizardModel, tea.Cmd) {
	step := m.state.Step
	if k.String() == "x" && step != wizard.StepInput {
		m.notice = ""
		return m, action(tui.ActionRequest{Kind: tui.ActionReset})
	}

	switch step {
	case wizard.StepInput:
		switch k.String() {
		case "m":
			m.state.Mode = otherMode(m.state.Mode)
			return m, nil
		case "p":
			m = m.cycleProvider()
			return m, nil
		case "i", "enter":
			return m.focusField(fieldDescription)
		case "f":
			if m.state.Mode == wizard.ModeVoice {
				return m.focusField(fieldAudioPath)
			}
		case "r":
			return m.toggleRecording()
		case "g", "ctrl+g":
			return m.generate()
		}
	case wizard.StepReviewing, wizard.StepReady:
		switch k.String() {
		case "left", "h":
			m.fileIdx = (m.fileIdx + len(m.state.Files) - 1) % maxInt(1, len(m.state.Files))
			return m.refreshCode(), nil
		case "right", "l":
			m.fileIdx = (m.fileIdx + 1) % maxInt(1, len(m.state.Files))
			return m.refreshCode(), nil
		case "e":
			return m.openEditor()
		case "s":
			if step == wizard.StepReviewing {
				m.notice = ""
				return m, action(tui.ActionRequest{Kind: tui.ActionScan})
			}
		case "k":
			if step == wizard.StepReviewing {
				m.notice = ""
				return m, action(tui.ActionRequest{Kind: tui.ActionSkipScan})
			}
		case "d":
			if step == wizard.StepReady {
				m.notice = ""
				return m, action(tui.ActionRequest{Kind: tui.ActionDeploy})
			}
		}
		var cmd tea.Cmd
		m.code, cmd = m.code.Update(k)
		return m, cmd
	case wizard.StepSuccess:
		if k.String() == "enter" && m.state.RedirectTo != "" {
			path := m.state.RedirectTo
			return m, func() tea.Msg { return tui.NavigateMsg{Path: path} }
		}
	}
	return m, nil
}

func (m WizardModel) updateFields(k tea.KeyMsg) (WizardModel, tea.Cmd) {
	switch k.String() {
	case "esc":
		return m.blurAll(), nil
	case "ctrl+g":
		return m.generate()
	case "ctrl+r":
		return m.toggleRecording()
	case "tab":
		return m.focusField(m.nextField())
	case "enter":
		switch m.focus {
		case fieldAudioPath:
			path := strings.TrimSpace(m.audioPath.Value())
			if path == "" {
				return m, nil
			}
			m.notice = ""
			return m.blurAll(), action(tui.ActionRequest{Kind: tui.ActionTranscribe, Path: path})
		case fieldRegion:
			return m.blurAll(), nil
		}
	}

	var cmd tea.Cmd
	switch m.focus {
	case fieldDescription:
		m.desc, cmd = m.desc.Update(k)
	case fieldAudioPath:
		m.audioPath, cmd = m.audioPath.Update(k)
	case fieldRegion:
		m.region, cmd = m.region.Update(k)
	}
	return m, cmd
}

func (m WizardModel) nextField() wizardField {
	order := []wizardField{fieldDescription, fieldRegion}
	if m.state.Mode == wizard.ModeVoice {
		order = []wizardField{fieldAudioPath, fieldDescription, fieldRegion}
	}
	for i, f := range order {
		if f == m.focus {
			return order[(i+1)%len(order)]
		}
	}
	return order[0]
}

func (m WizardModel) focusField(f wizardField) (WizardModel, tea.Cmd) {
	m = m.blurAll()
	m.focus = f
	m.focused = true
	switch f {
	case fieldAudioPath:
		return m, m.audioPath.Focus()
	case fieldRegion:
		return m, m.region.Focus()
	default:
		return m, m.desc.Focus()
	}
}

func (m WizardModel) blurAll() WizardModel {
	m.desc.Blur()
	m.audioPath.Blur()
	m.region.Blur()
	m.focused = false
	return m
}

func (m WizardModel) cycleProvider() WizardModel {
	cur := m.state.Provider
	next := services.Providers[0]
	for i, p := range services.Providers {
		if p == cur {
			next = services.Providers[(i+1)%len(services.Providers)]
		}
	}
	// Follow the provider's default region unless the user typed another.
	if strings.TrimSpace(m.region.Value()) == services.DefaultRegion(cur) {
		m.region.SetValue(services.DefaultRegion(next))
	}
	m.state.Provider = next
	return m
}

func (m WizardModel) toggleRecording() (WizardModel, tea.Cmd) {
	if m.state.Mode != wizard.ModeVoice {
		m.notice = "switch to voice mode ([m]) to record"
		return m, nil
	}
	m.notice = ""
	if m.recording {
		return m, action(tui.ActionRequest{Kind: tui.ActionRecordStop})
	}
	return m, action(tui.ActionRequest{Kind: tui.ActionRecordStart})
}

func (m WizardModel) generate() (WizardModel, tea.Cmd) {
	m.notice = ""
	req := tui.ActionRequest{
		Kind:     tui.ActionGenerate,
		Mode:     m.state.Mode,
		Text:     m.desc.Value(),
		Provider: m.state.Provider,
		Region:   strings.TrimSpace(m.region.Value()),
	}
	return m.blurAll(), action(req)
}

func (m WizardModel) editorOpen() bool {
	return m.modals.IsOpen(store.ModalFileEditor)
}

func (m WizardModel) currentFile() (wizard.CodeFile, bool) {
	if len(m.state.Files) == 0 {
		return wizard.CodeFile{}, false
	}
	return m.state.Files[m.fileIdx%len(m.state.Files)], true
}

func (m WizardModel) openEditor() (WizardModel, tea.Cmd) {
	f, ok := m.currentFile()
	if !ok {
		return m, nil
	}
	m.modals.Open(store.ModalFileEditor, f.Name)
	m.editor.SetValue(f.Content)
	return m, m.editor.Focus()
}

func (m WizardModel) updateEditor(k tea.KeyMsg) (WizardModel, tea.Cmd) {
	switch k.String() {
	case "esc":
		m.editor.Blur()
		m.modals.Close(store.ModalFileEditor)
		return m, nil
	case "ctrl+s":
		name, _ := m.modals.Data(store.ModalFileEditor).(string)
		content := m.editor.Value()
		m.editor.Blur()
		m.modals.Close(store.ModalFileEditor)
		return m, action(tui.ActionRequest{Kind: tui.ActionEditFile, File: name, Content: content})
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(k)
	return m, cmd
}

func (m WizardModel) refreshCode() WizardModel {
	f, ok := m.currentFile()
	if !ok {
		m.code.SetContent("")
		return m
	}
	m.code.SetContent(numberLines(f.Content))
	return m
}

func (m WizardModel) View() string {
	theme := styles.DefaultTheme()
	s := m.state

	labels := make([]string, len(wizard.ProgressStages))
	for i, st := range wizard.ProgressStages {
		labels[i] = st.Label
	}
	var sections []string
	sections = append(sections, widgets.NewStepper(labels, wizard.ProgressIndex(s.Step)).WithFailed(s.Error != "").Render(), "")

	switch {
	case m.editorOpen():
		name, _ := m.modals.Data(store.ModalFileEditor).(string)
		sections = append(sections, widgets.NewBox("Edit "+name).
			WithTitleRight("[ctrl+s] save  [esc] cancel").
			WithContent(m.editor.View()).
			WithActive(true).
			WithSize(m.width, 0).Render())
	case s.Step == wizard.StepInput:
		sections = append(sections, m.inputView(theme))
	case s.Step.Transient():
		sections = append(sections, m.spin.View()+" "+busyText(s))
	case s.Step == wizard.StepReviewing:
		sections = append(sections, m.filesView(theme))
	case s.Step == wizard.StepReady:
		sections = append(sections, m.reportView(theme), m.filesView(theme))
	case s.Step == wizard.StepSuccess:
		sections = append(sections, m.successView(theme))
	}

	if s.Error != "" {
		sections = append(sections, theme.StatusFailed.Render(styles.IconError+" "+s.Error))
	}
	if m.notice != "" && m.notice != s.Error {
		sections = append(sections, theme.StatusWarn.Render(styles.IconWarning+" "+m.notice))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m WizardModel) inputView(theme styles.Theme) string {
	s := m.state
	var b strings.Builder

	modeLine := fmt.Sprintf("mode: %s   provider: %s", theme.KeybindKey.Render(string(s.Mode)), theme.KeybindKey.Render(string(s.Provider)))
	b.WriteString(modeLine + "\n")
	b.WriteString(m.region.View() + "\n\n")

	title := "Description"
	if s.Mode == wizard.ModeVoice {
		b.WriteString(m.audioPath.View() + "\n")
		if m.recording {
			elapsed := time.Since(m.recordStarted).Round(time.Second)
			b.WriteString(theme.StatusFailed.Render(styles.IconMic+" recording "+elapsed.String()) + "  " + m.spin.View() + "\n")
		}
		b.WriteString("\n")
		title = "Transcript"
	}
	b.WriteString(widgets.NewBox(title).
		WithTitleRight(fmt.Sprintf("%d/2000", len(m.desc.Value()))).
		WithContent(m.desc.View()).
		WithActive(m.focused && m.focus == fieldDescription).
		WithSize(m.width, 0).Render())
	return b.String()
}

func (m WizardModel) filesView(theme styles.Theme) string {
	tabs := make([]string, 0, len(m.state.Files))
	for i, f := range m.state.Files {
		if i == m.fileIdx%maxInt(1, len(m.state.Files)) {
			tabs = append(tabs, theme.KeybindKey.Underline(true).Render(f.Name))
		} else {
			tabs = append(tabs, theme.TitleMuted.Render(f.Name))
		}
	}
	title := fmt.Sprintf("Generated Terraform (%d resources)", len(m.state.Resources))
	return widgets.NewBox(title).
		WithTitleRight(strings.Join(tabs, "  ")).
		WithContent(m.code.View()).
		WithSize(m.width, 0).Render()
}

func (m WizardModel) reportView(theme styles.Theme) string {
	s := m.state
	var b strings.Builder

	switch {
	case s.ScanSkipped:
		b.WriteString(theme.TitleMuted.Render("Security scan skipped") + "\n")
	case s.Scan != nil:
		grade := s.Scan.Grade()
		b.WriteString("Security  " + widgets.NewScoreBar(s.Scan.SecurityScore, 10).WithLevel(styles.GradeLevel(grade)).Render())
		b.WriteString("  " + theme.ForLevel(styles.GradeLevel(grade)).Render(grade) + "\n")
		b.WriteString(theme.TitleMuted.Render(fmt.Sprintf("  passed %d  failed %d  critical %d  high %d  medium %d  low %d",
			s.Scan.PassedChecks, s.Scan.FailedChecks, s.Scan.CriticalIssues, s.Scan.HighIssues, s.Scan.MediumIssues, s.Scan.LowIssues)) + "\n")
		for i, is := range s.Scan.Issues {
			if i == maxIssuesShown {
				b.WriteString(theme.TitleMuted.Render(fmt.Sprintf("  … %d more", len(s.Scan.Issues)-maxIssuesShown)) + "\n")
				break
			}
			icon, lvl := styles.SeverityIcon(is.Severity)
			b.WriteString("  " + theme.ForLevel(lvl).Render(icon) + " " + is.Title + theme.TitleMuted.Render(" ("+is.Resource+")") + "\n")
		}
	}

	b.WriteString("\n")
	switch {
	case s.CostWarning != "":
		b.WriteString(theme.StatusWarn.Render(styles.IconWarning+" Cost estimate unavailable: "+s.CostWarning) + "\n")
	case s.Estimate != nil:
		e := s.Estimate
		b.WriteString(fmt.Sprintf("Cost      $%.2f/month  $%.2f/year\n", e.MonthlyCost, e.AnnualCost))
		for _, k := range e.BreakdownKeys() {
			b.WriteString(theme.TitleMuted.Render(fmt.Sprintf("  %-12s $%.2f", k, e.Breakdown[k])) + "\n")
		}
		if e.OverThreshold() {
			b.WriteString(theme.StatusWarn.Render(fmt.Sprintf("  %s over $%.0f/month", styles.IconWarning, services.CostWarningThreshold)) + "\n")
		}
		if e.Warning != "" {
			b.WriteString(theme.StatusWarn.Render("  "+e.Warning) + "\n")
		}
		if savings := e.PotentialSavings(); savings > 0 {
			b.WriteString(theme.StatusOK.Render(fmt.Sprintf("  %d recommendations, save up to $%.2f/month", len(e.Recommendations), savings)) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m WizardModel) successView(theme styles.Theme) string {
	s := m.state
	msg := "Deployment started."
	if s.Deploy != nil && s.Deploy.Message != "" {
		msg = s.Deploy.Message
	}
	lines := []string{
		theme.StatusOK.Render(styles.IconSuccess + " " + msg),
		theme.TitleMuted.Render(fmt.Sprintf("Opening deployment %s in %s…", s.DeploymentID, m.redirectDelay)),
	}
	return strings.Join(lines, "\n")
}

// Keybinds lists the hints for the current step.
func (m WizardModel) Keybinds() []widgets.Keybind {
	if m.editorOpen() {
		return []widgets.Keybind{{Key: "ctrl+s", Label: "save"}, {Key: "esc", Label: "cancel"}}
	}
	switch m.state.Step {
	case wizard.StepInput:
		if m.focused {
			return []widgets.Keybind{{Key: "ctrl+g", Label: "generate"}, {Key: "tab", Label: "next field"}, {Key: "esc", Label: "done"}}
		}
		kb := []widgets.Keybind{{Key: "i", Label: "edit"}, {Key: "m", Label: "mode"}, {Key: "p", Label: "provider"}, {Key: "g", Label: "generate"}}
		if m.state.Mode == wizard.ModeVoice {
			kb = append(kb, widgets.Keybind{Key: "f", Label: "audio file"}, widgets.Keybind{Key: "r", Label: "record"})
		}
		return kb
	case wizard.StepReviewing:
		return []widgets.Keybind{{Key: "←/→", Label: "file"}, {Key: "e", Label: "edit"}, {Key: "s", Label: "scan"}, {Key: "k", Label: "skip scan"}, {Key: "x", Label: "start over"}}
	case wizard.StepReady:
		return []widgets.Keybind{{Key: "d", Label: "deploy"}, {Key: "e", Label: "edit"}, {Key: "x", Label: "start over"}}
	case wizard.StepSuccess:
		return []widgets.Keybind{{Key: "enter", Label: "open now"}, {Key: "x", Label: "start over"}}
	default:
		return []widgets.Keybind{{Key: "x", Label: "start over"}}
	}
}

func busyText(s wizard.State) string {
	switch s.Step {
	case wizard.StepTranscribing:
		return "Transcribing audio…"
	case wizard.StepGenerating:
		return fmt.Sprintf("Generating %s Terraform for %s…", strings.ToUpper(string(s.Provider)), s.Region)
	case wizard.StepScanning:
		return "Running security scan…"
	case wizard.StepEstimating:
		return "Estimating costs…"
	case wizard.StepDeploying:
		return "Starting deployment…"
	}
	return string(s.Step)
}

func otherMode(m wizard.InputMode) wizard.InputMode {
	if m == wizard.ModeVoice {
		return wizard.ModeText
	}
	return wizard.ModeVoice
}

func numberLines(content string) string {
	theme := styles.DefaultTheme()
	lines := strings.Split(content, "\n")
	width := len(fmt.Sprint(len(lines)))
	var b strings.Builder
	for i, l := range lines {
		b.WriteString(theme.LineNumber.Render(fmt.Sprintf("%*d ", width, i+1)))
		b.WriteString(theme.Code.Render(l))
		b.WriteString("\n")
	}
	return b.String()
}

func action(req tui.ActionRequest) tea.Cmd {
	return func() tea.Msg { return tui.ActionRequestMsg{Request: req} }
}
