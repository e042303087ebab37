package pipeline

import (
	"errors"
	"fmt"
)

// Failure kinds, one per stage that can fail. Match with errors.Is.
var (
	ErrConnect   = errors.New("connect failed")
	ErrHandshake = errors.New("handshake failed")
	ErrCall      = errors.New("call failed")
)

// StageError records the stage a run failed in and the underlying cause.
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.kind(), e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Is matches the failure kind of the stage.
func (e *StageError) Is(target error) bool {
	kind := e.kind()
	return kind != nil && target == kind
}

func (e *StageError) kind() error {
	switch e.Stage {
	case Connecting:
		return ErrConnect
	case Handshaking:
		return ErrHandshake
	case Calling:
		return ErrCall
	default:
		return nil
	}
}

func stageFailure(stage State, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
