package actions

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gotest.tools/v3/assert"
)

type deployInput struct {
	ClusterName string `json:"clusterName" jsonschema:"title=Cluster Name,description=The name of the cluster"`
	MultiZone   bool   `json:"multiZone"`
	Replicas    int    `json:"replicas,omitempty"`
	Cloud       string `json:"cloud" jsonschema:"enum=AWS,enum=IBM Cloud"`
}

func deployAction() Action {
	return Action{ID: "test:deploy", Input: &deployInput{}}
}

func TestSchemaIsValidJSON(t *testing.T) {
	bb, err := deployAction().Schema()
	if err != nil {
		t.Fatal(err)
	}
	doc := map[string]any{}
	if err = json.Unmarshal(bb, &doc); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, doc["type"], "object")
}

func TestProperties(t *testing.T) {
	props, err := deployAction().Properties()
	if err != nil {
		t.Fatal(err)
	}

	want := []Property{
		{Name: "clusterName", Type: "string", Title: "Cluster Name", Description: "The name of the cluster", Required: true},
		{Name: "multiZone", Type: "boolean", Required: true},
		{Name: "replicas", Type: "integer"},
		{Name: "cloud", Type: "string", Enum: []any{"AWS", "IBM Cloud"}, Required: true},
	}
	if diff := cmp.Diff(want, props); diff != "" {
		t.Errorf("unexpected properties (-want, +got): %v", diff)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		wantErr bool
	}{
		{
			name:  "valid",
			input: map[string]any{"clusterName": "c1", "multiZone": false, "cloud": "AWS"},
		},
		{
			name:    "missing required",
			input:   map[string]any{"clusterName": "c1"},
			wantErr: true,
		},
		{
			name:    "wrong type",
			input:   map[string]any{"clusterName": "c1", "multiZone": "yes", "cloud": "AWS"},
			wantErr: true,
		},
		{
			name:    "not in enum",
			input:   map[string]any{"clusterName": "c1", "multiZone": true, "cloud": "Moon"},
			wantErr: true,
		},
		{
			name:    "unknown member",
			input:   map[string]any{"clusterName": "c1", "multiZone": true, "cloud": "AWS", "colour": "red"},
			wantErr: true,
		},
		{
			name:    "nil input",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := deployAction().Validate(tt.input)
			if tt.wantErr {
				assert.Assert(t, errors.Is(err, ErrInvalidInput), "got %v", err)
				return
			}
			assert.NilError(t, err)
		})
	}
}

func TestValidateWithoutInputStruct(t *testing.T) {
	a := Action{ID: "test:none"}
	assert.NilError(t, a.Validate(nil))
}

func TestCoerce(t *testing.T) {
	input, err := deployAction().Coerce(map[string]string{
		"clusterName": "c1",
		"multiZone":   "true",
		"replicas":    "3",
		"extra":       "kept",
	})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"clusterName": "c1",
		"multiZone":   true,
		"replicas":    int64(3),
		"extra":       "kept",
	}
	if diff := cmp.Diff(want, input); diff != "" {
		t.Errorf("unexpected input (-want, +got): %v", diff)
	}

	_, err = deployAction().Coerce(map[string]string{"multiZone": "sometimes"})
	assert.Assert(t, errors.Is(err, ErrInvalidInput), "got %v", err)
}

func TestDescribe(t *testing.T) {
	a := deployAction()
	a.Description = "Deploys a cluster"
	a.Output = []OutputProperty{{Name: "eventID", Title: "Event ID"}}

	d, err := a.Describe()
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, d.ID, "test:deploy")
	assert.Equal(t, d.Description, "Deploys a cluster")
	assert.Equal(t, len(d.Inputs), 4)
	assert.DeepEqual(t, d.Outputs, a.Output)
	props, ok := d.Schema["properties"].(map[string]any)
	assert.Assert(t, ok, "schema has no properties: %v", d.Schema)
	_, ok = props["clusterName"]
	assert.Assert(t, ok)
}
