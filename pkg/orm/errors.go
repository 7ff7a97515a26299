package orm

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownAdapter is returned when a connection references an
	// adapter name absent from the registry. Configuration authoring
	// error, not recoverable at runtime.
	ErrUnknownAdapter = errors.New("unknown adapter")

	// ErrUnknownConnection is returned when a model resolves to a
	// connection name absent from the connection table.
	ErrUnknownConnection = errors.New("unknown connection")

	// ErrTransitionInProgress is returned when initialize, reload or
	// teardown is invoked while another transition is still running.
	ErrTransitionInProgress = errors.New("lifecycle transition already in progress")

	// ErrNotReady is returned when collections are requested outside the
	// Ready state.
	ErrNotReady = errors.New("lifecycle is not ready")

	// ErrModelAlreadyRegistered is returned when a model name is
	// registered twice.
	ErrModelAlreadyRegistered = errors.New("model already registered")
)

// ModelRegistrationError reports a model whose schema was rejected by
// its storage engine during binding.
type ModelRegistrationError struct {
	Model string
	Err   error
}

func (e *ModelRegistrationError) Error() string {
	return fmt.Sprintf("failed to register model %q: %v", e.Model, e.Err)
}

func (e *ModelRegistrationError) Unwrap() error { return e.Err }
