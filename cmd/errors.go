package cmd

import (
	"errors"
	"fmt"

	"github.com/pipetrigger/pipetrigger/pkg/actions"
)

// wrapActionError wraps errors from the action registry with CLI-specific
// guidance.
func wrapActionError(err error, id string) error {
	if errors.Is(err, actions.ErrActionNotFound) {
		return NewErrUnknownAction(err, id)
	}
	if errors.Is(err, actions.ErrInvalidInput) {
		return NewErrInvalidActionInput(err, id)
	}
	return err
}

type ErrUnknownAction struct {
	Err error
	ID  string
}

func NewErrUnknownAction(err error, id string) error {
	return &ErrUnknownAction{Err: err, ID: id}
}

func (e *ErrUnknownAction) Error() string {
	return fmt.Sprintf(`%v

No action with the id %q is available.
Run 'pipetrigger actions' to list the available actions.`, e.Err, e.ID)
}

func (e *ErrUnknownAction) Unwrap() error {
	return e.Err
}

type ErrInvalidActionInput struct {
	Err error
	ID  string
}

func NewErrInvalidActionInput(err error, id string) error {
	return &ErrInvalidActionInput{Err: err, ID: id}
}

func (e *ErrInvalidActionInput) Error() string {
	return fmt.Sprintf(`%v

Provide the inputs with --input name=value or --input-file.
Run 'pipetrigger describe %v' to see the inputs of the action.`, e.Err, e.ID)
}

func (e *ErrInvalidActionInput) Unwrap() error {
	return e.Err
}
