package wizard

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid wizard transition")
	ErrBusy              = errors.New("wizard is busy")
	ErrEmptyDescription  = errors.New("Please provide a description of your infrastructure")
	ErrNoDeployment      = errors.New("no deployment to deploy")
	ErrUnknownFile       = errors.New("unknown file")
	// ErrReset is returned by an operation whose result arrived after the
	// wizard was reset. The result is dropped.
	ErrReset = errors.New("wizard was reset")
)

// Messages shown when the backend gives no detail.
const (
	FallbackTranscribe = "Failed to transcribe audio"
	FallbackGenerate   = "Failed to generate code"
	FallbackScan       = "Failed to run security scan"
	FallbackEstimate   = "Failed to estimate costs"
	FallbackDeploy     = "Failed to deploy infrastructure"
)
