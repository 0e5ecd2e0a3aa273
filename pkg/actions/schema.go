package actions

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/alecthomas/jsonschema"
	"github.com/hashicorp/go-multierror"
	"github.com/xeipuuv/gojsonschema"
)

// Property describes a single input of an action as derived from its schema.
type Property struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Enum        []any  `json:"enum,omitempty" yaml:"enum,omitempty"`
	Required    bool   `json:"required" yaml:"required"`
}

type schemaDoc struct {
	Properties map[string]struct {
		Type        string `json:"type"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Enum        []any  `json:"enum"`
	} `json:"properties"`
	Required []string `json:"required"`
}

// Schema returns the JSON schema of the action input.
func (a Action) Schema() ([]byte, error) {
	if a.Input == nil {
		return []byte(`{"type":"object"}`), nil
	}
	r := jsonschema.Reflector{ExpandedStruct: true}
	return json.Marshal(r.Reflect(a.Input))
}

// Properties lists the inputs of the action in declaration order.
func (a Action) Properties() ([]Property, error) {
	if a.Input == nil {
		return nil, nil
	}
	bb, err := a.Schema()
	if err != nil {
		return nil, err
	}
	doc := schemaDoc{}
	if err = json.Unmarshal(bb, &doc); err != nil {
		return nil, fmt.Errorf("cannot read schema of %v: %w", a.ID, err)
	}

	props := []Property{}
	for _, name := range fieldNames(a.Input) {
		p, ok := doc.Properties[name]
		if !ok {
			continue
		}
		props = append(props, Property{
			Name:        name,
			Type:        p.Type,
			Title:       p.Title,
			Description: p.Description,
			Enum:        p.Enum,
			Required:    slices.Contains(doc.Required, name),
		})
	}
	return props, nil
}

// Validate the input against the action's schema.  Every violation is
// reported, wrapped in ErrInvalidInput.
func (a Action) Validate(input map[string]any) error {
	bb, err := a.Schema()
	if err != nil {
		return err
	}
	if input == nil {
		input = map[string]any{}
	}
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(bb), gojsonschema.NewGoLoader(input))
	if err != nil {
		return fmt.Errorf("%w for %v: %w", ErrInvalidInput, a.ID, err)
	}
	if res.Valid() {
		return nil
	}
	var merr *multierror.Error
	for _, e := range res.Errors() {
		merr = multierror.Append(merr, errors.New(e.String()))
	}
	return fmt.Errorf("%w for %v: %w", ErrInvalidInput, a.ID, merr.ErrorOrNil())
}

// Coerce converts string values, as given on a command line, into the types
// the schema expects.  Unknown names are kept as strings so that validation
// reports them.
func (a Action) Coerce(raw map[string]string) (map[string]any, error) {
	props, err := a.Properties()
	if err != nil {
		return nil, err
	}
	types := map[string]string{}
	for _, p := range props {
		types[p.Name] = p.Type
	}

	input := make(map[string]any, len(raw))
	for k, v := range raw {
		switch types[k] {
		case "boolean":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %v must be a boolean: %w", ErrInvalidInput, k, err)
			}
			input[k] = b
		case "integer":
			i, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %v must be an integer: %w", ErrInvalidInput, k, err)
			}
			input[k] = i
		case "number":
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %v must be a number: %w", ErrInvalidInput, k, err)
			}
			input[k] = f
		default:
			input[k] = v
		}
	}
	return input, nil
}

// fieldNames returns the json names of the exported fields of the struct
// pointed to by v, in declaration order.
func fieldNames(v any) []string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	names := []string{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			continue
		case "":
			name = f.Name
		}
		names = append(names, name)
	}
	return names
}

// Description is the serializable documentation of an action.
type Description struct {
	ID          string           `json:"id" yaml:"id"`
	Description string           `json:"description" yaml:"description"`
	Inputs      []Property       `json:"inputs" yaml:"inputs"`
	Outputs     []OutputProperty `json:"outputs" yaml:"outputs"`
	Schema      map[string]any   `json:"schema" yaml:"schema"`
}

// Describe the inputs, outputs and input schema of the action.
func (a Action) Describe() (d Description, err error) {
	d = Description{ID: a.ID, Description: a.Description, Outputs: a.Output}
	if d.Inputs, err = a.Properties(); err != nil {
		return
	}
	bb, err := a.Schema()
	if err != nil {
		return
	}
	err = json.Unmarshal(bb, &d.Schema)
	return
}
