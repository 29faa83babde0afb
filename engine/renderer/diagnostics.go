package renderer

import "github.com/spaghettifunk/trigon/engine/core"

type Severity uint8

const (
	SeverityVerbose Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityVerbose:
		return "verbose"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "unknown"
}

type Category uint8

const (
	CategoryGeneral Category = iota
	CategoryValidation
	CategoryPerformance
)

func (c Category) String() string {
	switch c {
	case CategoryGeneral:
		return "general"
	case CategoryValidation:
		return "validation"
	case CategoryPerformance:
		return "performance"
	}
	return "unknown"
}

// DiagnosticSink receives messages from the graphics API debug layer. It is
// called synchronously from inside API calls.
type DiagnosticSink func(severity Severity, category Category, message string)

// LogDiagnostic is the default sink.
func LogDiagnostic(severity Severity, category Category, message string) {
	switch severity {
	case SeverityError:
		core.LogError("[%s] %s", category, message)
	case SeverityWarning:
		core.LogWarn("[%s] %s", category, message)
	case SeverityInfo:
		core.LogInfo("[%s] %s", category, message)
	default:
		core.LogDebug("[%s] %s", category, message)
	}
}
