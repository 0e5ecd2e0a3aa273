package actions_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
	"gotest.tools/v3/assert"

	"github.com/pipetrigger/pipetrigger/pkg/actions"
)

type greetInput struct {
	Name   string `json:"name" jsonschema:"title=Name,description=Who to greet"`
	Shout  bool   `json:"shout,omitempty"`
	Target string `json:"target" jsonschema:"enum=world,enum=team"`
}

func greet() actions.Action {
	return actions.Action{
		ID:    "test:greet",
		Input: &greetInput{},
		Output: []actions.OutputProperty{
			{Name: "greeting"},
		},
		Handler: func(ctx context.Context, rc *actions.Context) error {
			in := greetInput{}
			if err := rc.Decode(&in); err != nil {
				return err
			}
			g := "hello " + in.Name + " of the " + in.Target
			if in.Shout {
				g += "!"
			}
			rc.Output("greeting", g)
			return nil
		},
	}
}

func TestRegistryRegister(t *testing.T) {
	r, err := actions.NewRegistry(greet())
	if err != nil {
		t.Fatal(err)
	}

	err = r.Register(greet())
	assert.Assert(t, errors.Is(err, actions.ErrDuplicateAction), "got %v", err)

	err = r.Register(actions.Action{Handler: greet().Handler})
	assert.Assert(t, errors.Is(err, actions.ErrActionIDInvalid), "got %v", err)

	err = r.Register(actions.Action{ID: "test:nohandler"})
	assert.Assert(t, errors.Is(err, actions.ErrHandlerRequired), "got %v", err)
}

func TestRegistryGetAndList(t *testing.T) {
	b := greet()
	b.ID = "test:another"
	r, err := actions.NewRegistry(greet(), b)
	if err != nil {
		t.Fatal(err)
	}

	_, err = r.Get("test:missing")
	assert.Assert(t, errors.Is(err, actions.ErrActionNotFound), "got %v", err)

	a, err := r.Get("test:greet")
	assert.NilError(t, err)
	assert.Equal(t, a.ID, "test:greet")

	ids := []string{}
	for _, a := range r.List() {
		ids = append(ids, a.ID)
	}
	if diff := cmp.Diff([]string{"test:another", "test:greet"}, ids); diff != "" {
		t.Errorf("unexpected list (-want, +got): %v", diff)
	}
}

func TestRegistryRun(t *testing.T) {
	r, err := actions.NewRegistry(greet())
	if err != nil {
		t.Fatal(err)
	}

	res, err := r.Run(context.Background(), "test:greet", map[string]any{
		"name":   "gopher",
		"target": "world",
		"shout":  true,
	}, logr.Discard())
	assert.NilError(t, err)
	assert.Equal(t, res.Action, "test:greet")
	assert.Assert(t, res.Invocation != "")
	assert.Equal(t, res.Output["greeting"], "hello gopher of the world!")
}

func TestRegistryRunInvalidInput(t *testing.T) {
	r, err := actions.NewRegistry(greet())
	if err != nil {
		t.Fatal(err)
	}

	_, err = r.Run(context.Background(), "test:greet", map[string]any{
		"target": "moon",
	}, logr.Discard())
	assert.Assert(t, errors.Is(err, actions.ErrInvalidInput), "got %v", err)
	assert.ErrorContains(t, err, "name")
	assert.ErrorContains(t, err, "target")
}

func TestRegistryRunKeepsOutputsOnFailure(t *testing.T) {
	boom := errors.New("boom")
	a := actions.Action{
		ID: "test:fail",
		Handler: func(ctx context.Context, rc *actions.Context) error {
			rc.Output("partial", "yes")
			return boom
		},
	}
	r, err := actions.NewRegistry(a)
	if err != nil {
		t.Fatal(err)
	}

	res, err := r.Run(context.Background(), "test:fail", nil, logr.Discard())
	assert.Assert(t, errors.Is(err, boom))
	assert.Equal(t, res.Output["partial"], "yes")
}
