package agent

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an operation was rejected. Kinds are stable
// strings so they survive JSON round trips through planner observations.
type ErrorKind string

const (
	KindNoDataset           ErrorKind = "no_dataset"
	KindUnknownColumn       ErrorKind = "unknown_column"
	KindInvalidArgument     ErrorKind = "invalid_argument"
	KindUnsupportedMethod   ErrorKind = "unsupported_method"
	KindInsufficientNumeric ErrorKind = "insufficient_numeric_columns"
	KindUnsupportedKind     ErrorKind = "unsupported_kind"
	KindMissingSecondary    ErrorKind = "missing_secondary_column"
	KindToolParse           ErrorKind = "tool_parse_error"
	KindArtifactWrite       ErrorKind = "artifact_write_error"
)

// OpError is a typed operation failure. Recoverable errors go back to the
// planner as observations so it can correct itself; the rest abort the turn.
type OpError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *OpError) Error() string {
	return e.Message
}

// Recoverable reports whether the planner should see this error and retry
// with different arguments instead of failing the whole turn.
func (e *OpError) Recoverable() bool {
	return e.Kind != KindArtifactWrite
}

func opErrorf(kind ErrorKind, format string, args ...any) *OpError {
	return &OpError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Loop-level failures. These abort a turn instead of flowing back to the
// planner as observations.
var (
	ErrIterationLimit   = errors.New("analysis stopped after reaching the iteration limit")
	ErrPlannerTransport = errors.New("planner request failed")
	ErrArtifactWrite    = errors.New("failed to write chart artifact")
)
