package actions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/pipetrigger/pipetrigger/pkg/metrics"
)

// Registry is the catalog of actions available for invocation.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]Action
}

// NewRegistry returns a registry holding the given actions.
func NewRegistry(aa ...Action) (*Registry, error) {
	r := &Registry{actions: map[string]Action{}}
	for _, a := range aa {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register an action.  Ids must be unique.
func (r *Registry) Register(a Action) error {
	if a.ID == "" {
		return ErrActionIDInvalid
	}
	if a.Handler == nil {
		return fmt.Errorf("%w: %v", ErrHandlerRequired, a.ID)
	}
	if _, err := a.Schema(); err != nil {
		return fmt.Errorf("cannot reflect input schema of %v: %w", a.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.actions[a.ID]; ok {
		return fmt.Errorf("%w: %v", ErrDuplicateAction, a.ID)
	}
	r.actions[a.ID] = a
	return nil
}

// Get the action with the given id.
func (r *Registry) Get(id string) (Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[id]
	if !ok {
		return Action{}, fmt.Errorf("%w: %v", ErrActionNotFound, id)
	}
	return a, nil
}

// List the registered actions sorted by id.
func (r *Registry) List() []Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	aa := make([]Action, 0, len(r.actions))
	for _, a := range r.actions {
		aa = append(aa, a)
	}
	sort.Slice(aa, func(i, j int) bool { return aa[i].ID < aa[j].ID })
	return aa
}

// Result of an action invocation.
type Result struct {
	Action     string         `json:"id" yaml:"id"`
	Invocation string         `json:"invocation" yaml:"invocation"`
	Output     map[string]any `json:"output" yaml:"output"`
}

// Run validates the input and invokes the action with the given id.
// The outputs recorded by the handler are returned even when it fails.
func (r *Registry) Run(ctx context.Context, id string, input map[string]any, log logr.Logger) (Result, error) {
	a, err := r.Get(id)
	if err != nil {
		return Result{Action: id}, err
	}

	invocation := uuid.NewString()
	res := Result{Action: id, Invocation: invocation, Output: map[string]any{}}
	start := time.Now()

	if err = a.Validate(input); err != nil {
		metrics.ObserveActionRun(id, metrics.ResultInvalid, time.Since(start))
		return res, err
	}

	log = log.WithValues("action", id, "invocation", invocation)
	rc := NewContext(id, invocation, input, log)

	err = a.Handler(ctx, rc)
	res.Output = rc.Outputs()

	result := metrics.ResultSucceeded
	if err != nil {
		result = metrics.ResultFailed
		if errors.Is(err, context.Canceled) {
			log.Info("action canceled")
		}
	}
	metrics.ObserveActionRun(id, result, time.Since(start))
	return res, err
}
