package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gotest.tools/v3/assert"

	"github.com/pipetrigger/pipetrigger/pkg/actions"
)

// runEcho runs the echo action with the given arguments, returning the
// result printed as json.
func runEcho(t *testing.T, stdin string, args ...string) (actions.Result, error) {
	t.Helper()
	cmd := NewRunCmd(NewTestClient(echo()))
	cmd.SilenceUsage = true
	out := bytes.Buffer{}
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"test:echo", "-o", "json"}, args...))
	err := cmd.Execute()

	// prompts, if any, precede the result
	res := actions.Result{}
	if i := bytes.IndexByte(out.Bytes(), '{'); i >= 0 {
		if jerr := json.NewDecoder(bytes.NewReader(out.Bytes()[i:])).Decode(&res); jerr != nil {
			t.Fatalf("cannot decode %q: %v", out.String(), jerr)
		}
	}
	return res, err
}

func TestRun_Inputs(t *testing.T) {
	fromCleanEnv(t)

	res, err := runEcho(t, "", "-i", "name=ab", "-i", "count=2", "--input", "loud=true")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, res.Action, "test:echo")
	assert.Assert(t, res.Invocation != "")
	if diff := cmp.Diff(map[string]any{"echo": "ABAB"}, res.Output); diff != "" {
		t.Errorf("unexpected output (-want, +got): %v", diff)
	}
}

func TestRun_InputFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"yaml", "input.yaml", "name: ab\nloud: false\ncount: 3\n"},
		{"json", "input.json", `{"name":"ab","loud":false,"count":3}`},
		{"toml", "input.toml", "name = \"ab\"\nloud = false\ncount = 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fromCleanEnv(t)
			path := filepath.Join(t.TempDir(), tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}

			// --input takes precedence over the file
			res, err := runEcho(t, "", "-f", path, "-i", "count=1")
			if err != nil {
				t.Fatal(err)
			}
			assert.Equal(t, res.Output["echo"], "ab")
		})
	}
}

func TestRun_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing required", []string{"-i", "name=ab"}},
		{"not a boolean", []string{"-i", "name=ab", "-i", "loud=maybe"}},
		{"not a pair", []string{"-i", "name"}},
		{"unknown input", []string{"-i", "name=ab", "-i", "loud=true", "-i", "color=red"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fromCleanEnv(t)
			_, err := runEcho(t, "", tt.args...)

			var e *ErrInvalidActionInput
			assert.Assert(t, errors.As(err, &e), "got %v", err)
			assert.Assert(t, errors.Is(err, actions.ErrInvalidInput))
		})
	}
}

// TestRun_Failure ensures the outputs of a failed action are printed and its
// error returned.
func TestRun_Failure(t *testing.T) {
	fromCleanEnv(t)

	res, err := runEcho(t, "", "-i", "name=fail", "-i", "loud=false")
	assert.ErrorContains(t, err, "echo failed")
	assert.Equal(t, res.Output["echo"], "fail")
}

func TestRun_Unknown(t *testing.T) {
	fromCleanEnv(t)

	cmd := NewRunCmd(NewTestClient(echo()))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"test:nope"})
	err := cmd.Execute()

	var e *ErrUnknownAction
	assert.Assert(t, errors.As(err, &e), "got %v", err)
}

// TestRun_Confirm ensures missing required inputs are prompted for, and
// provided ones are not.
func TestRun_Confirm(t *testing.T) {
	fromCleanEnv(t)

	res, err := runEcho(t, "true\n", "-i", "name=ab", "--confirm")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, res.Output["echo"], "AB")
}

func TestRun_Plain(t *testing.T) {
	fromCleanEnv(t)

	cmd := NewRunCmd(NewTestClient(echo()))
	out := bytes.Buffer{}
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"test:echo", "-i", "name=ab", "-i", "loud=false", "-o", "plain"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, out.String(), "echo=ab\n")
}
