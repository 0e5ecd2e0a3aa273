package actions

import "errors"

var (
	ErrActionNotFound  = errors.New("action not found")
	ErrActionIDInvalid = errors.New("action id required")
	ErrDuplicateAction = errors.New("action already registered")
	ErrHandlerRequired = errors.New("action handler required")
	ErrInvalidInput    = errors.New("invalid action input")
)
