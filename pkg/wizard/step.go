// Package wizard drives the deployment wizard: describe infrastructure by
// voice or text, generate Terraform, review it, scan and estimate it, then
// deploy. The Controller owns the step machine; front-ends only render its
// snapshots and call its operations.
package wizard

type Step string

const (
	StepInput        Step = "input"
	StepTranscribing Step = "transcribing"
	StepGenerating   Step = "generating"
	StepReviewing    Step = "reviewing"
	StepScanning     Step = "scanning"
	StepEstimating   Step = "estimating"
	StepReady        Step = "ready"
	StepDeploying    Step = "deploying"
	StepSuccess      Step = "success"
)

var Steps = []Step{
	StepInput, StepTranscribing, StepGenerating, StepReviewing, StepScanning,
	StepEstimating, StepReady, StepDeploying, StepSuccess,
}

// Transient steps last exactly as long as one backend call.
func (s Step) Transient() bool {
	switch s {
	case StepTranscribing, StepGenerating, StepScanning, StepEstimating, StepDeploying:
		return true
	}
	return false
}

type InputMode string

const (
	ModeVoice InputMode = "voice"
	ModeText  InputMode = "text"
)

// ProgressStage is one entry of the progress header.
type ProgressStage struct {
	Label string
	Steps []Step
}

var ProgressStages = []ProgressStage{
	{Label: "Input", Steps: []Step{StepInput, StepTranscribing}},
	{Label: "Generate", Steps: []Step{StepGenerating}},
	{Label: "Review", Steps: []Step{StepReviewing}},
	{Label: "Security", Steps: []Step{StepScanning}},
	{Label: "Cost", Steps: []Step{StepEstimating}},
	{Label: "Deploy", Steps: []Step{StepReady, StepDeploying}},
}

// ProgressIndex returns the index of the stage s belongs to. StepSuccess
// is past the last stage.
func ProgressIndex(s Step) int {
	if s == StepSuccess {
		return len(ProgressStages)
	}
	for i, st := range ProgressStages {
		for _, x := range st.Steps {
			if x == s {
				return i
			}
		}
	}
	return 0
}
