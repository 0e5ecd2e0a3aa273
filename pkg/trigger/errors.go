package trigger

import "fmt"

// ErrNotAccepted is returned when an EventListener answers with anything
// other than 202 Accepted.
type ErrNotAccepted struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *ErrNotAccepted) Error() string {
	return fmt.Sprintf("pipeline build could not be triggered (status %d from %v), check the task references and their parameters", e.StatusCode, e.Endpoint)
}
