package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sync"

	"github.com/go-logr/logr"
)

// Handler executes an action.  A returned error marks the invocation as
// failed; outputs written before the error are still reported.
type Handler func(ctx context.Context, rc *Context) error

// OutputProperty documents a value an action may write with Context.Output.
type OutputProperty struct {
	Name        string `json:"name" yaml:"name"`
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Action is a named, schema-validated unit of work which can be invoked by a
// developer portal template.
type Action struct {
	// ID as referenced from templates, e.g. "ibm:call-mq-build-pipeline".
	ID          string
	Description string
	// Input is a pointer to the zero value of the input struct.  Its JSON
	// schema is reflected from the struct's json and jsonschema tags.
	Input any
	// Output lists the values the handler may produce.
	Output  []OutputProperty
	Handler Handler
}

// Context is the per invocation state handed to a Handler.
type Context struct {
	// Invocation uniquely identifies this run of the action.
	Invocation string
	// Action is the id of the running action.
	Action string
	// Logger carries the action and invocation as key/values.
	Logger logr.Logger

	input map[string]any

	mu      sync.Mutex
	outputs map[string]any
}

// NewContext returns a Context for the given, already validated, input.
func NewContext(action, invocation string, input map[string]any, log logr.Logger) *Context {
	return &Context{
		Invocation: invocation,
		Action:     action,
		Logger:     log,
		input:      input,
		outputs:    map[string]any{},
	}
}

// Decode the input into v, usually a pointer to the action's input struct.
func (c *Context) Decode(v any) error {
	bb, err := json.Marshal(c.input)
	if err != nil {
		return fmt.Errorf("cannot encode input: %w", err)
	}
	if err = json.Unmarshal(bb, v); err != nil {
		return fmt.Errorf("cannot decode input: %w", err)
	}
	return nil
}

// Output records a named output value.
func (c *Context) Output(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outputs[name] = value
}

// Outputs returns a copy of the outputs recorded so far.
func (c *Context) Outputs() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.outputs)
}
