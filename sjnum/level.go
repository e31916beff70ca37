// Package sjnum provides constants shared across the spanjson packages.
package sjnum

import "fmt"

type Level int32

// Numeric values follow the OpenTelemetry severity numbers so that
// emitted levels order correctly against OTEL-sourced logs.
// https://github.com/open-telemetry/opentelemetry-proto/blob/main/opentelemetry/proto/logs/v1/logs.proto
const (
	TraceLevel Level = 2
	DebugLevel Level = 5
	InfoLevel  Level = 9
	WarnLevel  Level = 13
	ErrorLevel Level = 17
)

func (level Level) String() string {
	switch level {
	case TraceLevel:
		return "TRACE"
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int32(level))
	}
}

// LevelString parses the document-schema form of a level.
func LevelString(s string) (Level, error) {
	switch s {
	case "TRACE":
		return TraceLevel, nil
	case "DEBUG":
		return DebugLevel, nil
	case "INFO":
		return InfoLevel, nil
	case "WARN":
		return WarnLevel, nil
	case "ERROR":
		return ErrorLevel, nil
	default:
		return 0, fmt.Errorf("'%s' is not a valid level", s)
	}
}
