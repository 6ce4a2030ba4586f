package model

import "time"

// TraceKind classifies a trace message.
type TraceKind string

const (
	// TraceCollaboratorUnreachable means an external API call failed.
	TraceCollaboratorUnreachable TraceKind = "collaborator_unreachable"
	// TraceMalformedOutput means model text could not be decoded.
	TraceMalformedOutput TraceKind = "malformed_output"
	// TraceSchemaViolation means decoded model output failed its shape.
	TraceSchemaViolation TraceKind = "schema_violation"
	// TraceEmptyResultSet means a stage left nothing for the next stage.
	TraceEmptyResultSet TraceKind = "empty_result_set"
	// TraceInfo is a descriptive, non-failure message.
	TraceInfo TraceKind = "info"
)

// Trace is one diagnostic message produced by a stage. Email is set when
// the message concerns a single record.
type Trace struct {
	Stage   string    `json:"stage"`
	Kind    TraceKind `json:"kind"`
	Email   string    `json:"email,omitempty"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// IsFailure reports whether the trace describes a failure.
func (t Trace) IsFailure() bool {
	switch t.Kind {
	case TraceCollaboratorUnreachable, TraceMalformedOutput, TraceSchemaViolation:
		return true
	default:
		return false
	}
}
