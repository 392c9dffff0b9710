package styles

import "strings"

const (
	IconSuccess = "✓"
	IconError   = "✗"
	IconWarning = "⚠"
	IconInfo    = "ℹ"
	IconRunning = "▶"
	IconPending = "○"
	IconSkipped = "⊘"
	IconBullet  = "•"
	IconMic     = "●"
	IconCloud   = "☁"
)

// Level groups statuses that share a color.
type Level int

const (
	LevelIdle Level = iota
	LevelActive
	LevelOK
	LevelWarn
	LevelFailed
)

// DeploymentStatusIcon returns the icon and level for a deployment status.
func DeploymentStatusIcon(status string) (string, Level) {
	switch status {
	case "deployed":
		return IconSuccess, LevelOK
	case "failed":
		return IconError, LevelFailed
	case "destroyed":
		return IconSkipped, LevelIdle
	case "ready", "generated":
		return IconPending, LevelIdle
	case "deploying", "destroying", "generating", "scanning", "estimating", "pending":
		return IconRunning, LevelActive
	default:
		return IconBullet, LevelIdle
	}
}

// SeverityIcon maps a security finding severity.
func SeverityIcon(severity string) (string, Level) {
	switch strings.ToUpper(severity) {
	case "CRITICAL", "HIGH":
		return IconError, LevelFailed
	case "MEDIUM":
		return IconWarning, LevelWarn
	default:
		return IconInfo, LevelIdle
	}
}

// GradeLevel colors a security grade.
func GradeLevel(grade string) Level {
	switch grade {
	case "excellent", "good":
		return LevelOK
	case "fair":
		return LevelWarn
	default:
		return LevelFailed
	}
}

// LogLevelIcon returns the appropriate icon for a log level.
func LogLevelIcon(level string) string {
	switch strings.ToLower(level) {
	case "error":
		return IconError
	case "warn", "warning":
		return IconWarning
	case "info":
		return IconInfo
	default:
		return IconBullet
	}
}
