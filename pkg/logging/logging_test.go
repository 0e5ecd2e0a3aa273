package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Format: FormatJSON, Writer: &buf})

	log.WithValues("action", "ibm:call-mq-build-pipeline").Info("Pipeline build started successfully.")
	log.V(1).Info("hidden unless verbose")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, len(lines), 1)

	entry := map[string]any{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, entry["msg"], "Pipeline build started successfully.")
	assert.Equal(t, entry["action"], "ibm:call-mq-build-pipeline")
	assert.Equal(t, entry["level"], "info")
}

func TestNewVerbose(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Verbose: true, Writer: &buf})

	log.V(1).Info("polling pipelinerun")

	assert.Assert(t, strings.Contains(buf.String(), "polling pipelinerun"))
}
