package tekton

import (
	"errors"
	"fmt"
)

var (
	ErrPipelineRunNotCreated = errors.New("pipelinerun has not been created")
	ErrPipelineRunTimeout    = errors.New("pipelinerun takes too long")
	ErrBuildTaskNotFound     = errors.New("build task run not found")
	ErrImageResultsMissing   = errors.New("image reference and digest results missing")
)

// ErrPipelineRunFailed is returned when a followed PipelineRun reports a
// False condition.
type ErrPipelineRunFailed struct {
	Namespace string
	Name      string
	// Conditions of the run, JSON encoded.
	Conditions string
	// Message of the failing TaskRun or the log of its failing step, when
	// available.
	Message string
}

func (e *ErrPipelineRunFailed) Error() string {
	msg := fmt.Sprintf("pipelinerun %v/%v failed: %v", e.Namespace, e.Name, e.Conditions)
	if e.Message != "" {
		msg += "\n" + e.Message
	}
	return msg
}
