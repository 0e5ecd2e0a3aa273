package cmd

import (
	"bytes"
	"strings"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/pipetrigger/pipetrigger/pkg/config"
)

func runConfigCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewConfigCmd()
	cmd.SilenceUsage = true
	out := bytes.Buffer{}
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// TestConfig_SetGet ensures values set are persisted to the config file
// without the static defaults, and read back.
func TestConfig_SetGet(t *testing.T) {
	fromCleanEnv(t)

	if _, err := runConfigCmd(t, "set", "environment", "development"); err != nil {
		t.Fatal(err)
	}
	if _, err := runConfigCmd(t, "set", "endpoints.ibm:call-mq-build-pipeline", "http://el-mq.example.com"); err != nil {
		t.Fatal(err)
	}

	out, err := runConfigCmd(t, "get", "environment")
	assert.NilError(t, err)
	assert.Equal(t, out, "development\n")

	out, err = runConfigCmd(t, "get", "endpoints.ibm:call-mq-build-pipeline")
	assert.NilError(t, err)
	assert.Equal(t, out, "http://el-mq.example.com\n")

	onDisk, err := config.Load(config.File())
	assert.NilError(t, err)
	assert.Equal(t, onDisk.Environment, "development")
	assert.Equal(t, onDisk.FinishAttempts, 0)
}

func TestConfig_Errors(t *testing.T) {
	fromCleanEnv(t)

	_, err := runConfigCmd(t, "get", "nope")
	assert.ErrorContains(t, err, "unknown config key")

	_, err = runConfigCmd(t, "set", "startAttempts", "many")
	assert.Assert(t, err != nil)
}

func TestConfig_Show(t *testing.T) {
	fromCleanEnv(t)

	out, err := runConfigCmd(t)
	assert.NilError(t, err)
	assert.Assert(t, strings.HasPrefix(out, "# "+config.File()+"\n"), out)
	assert.Assert(t, strings.Contains(out, "startAttempts: 10"), out)

	out, err = runConfigCmd(t, "path")
	assert.NilError(t, err)
	assert.Equal(t, out, config.File()+"\n")

	out, err = runConfigCmd(t, "list")
	assert.NilError(t, err)
	assert.Assert(t, strings.Contains(out, "backendUrl\n"), out)
}
