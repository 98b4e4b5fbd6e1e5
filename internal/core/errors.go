package core

import (
	"errors"
	"fmt"
)

// Static errors.
var (
	ErrTextEmpty       = errors.New("text cannot be empty")
	ErrOutputPathEmpty = errors.New("output path cannot be empty")
	ErrUnknownEngine   = errors.New("unsupported TTS engine")
	ErrBinaryNotFound  = errors.New("backend executable not found")
	ErrOutputMissing   = errors.New("backend reported success but produced no output file")
	ErrModelEmpty      = errors.New("model name cannot be empty")
)

// Backend operations reported in a BackendError.
const (
	OpPrepare    = "prepare"
	OpLoad       = "load"
	OpSynthesize = "synthesize"
	OpVerify     = "verify"
)

// UsageError reports a malformed command line. No side effects have happened
// when it is returned.
type UsageError struct {
	Reason string
}

func (e *UsageError) Error() string {
	return "usage: " + e.Reason
}

// BackendError wraps any failure from preparing the output location, loading
// the model or running the synthesis.
type BackendError struct {
	Op     string
	Engine string
	Err    error
}

func (e *BackendError) Error() string {
	if e.Engine == "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s %s failed: %v", e.Engine, e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError wraps err for the given operation and engine.
func NewBackendError(op, engine string, err error) error {
	return &BackendError{Op: op, Engine: engine, Err: err}
}
