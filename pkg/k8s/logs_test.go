package k8s_test

import (
	"context"
	"testing"

	"gotest.tools/v3/assert"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/pipetrigger/pipetrigger/pkg/k8s"
)

func TestGetPodLogs(t *testing.T) {
	// the fake clientset answers every log request with a fixed body
	logs, err := k8s.GetPodLogs(context.Background(), fake.NewSimpleClientset(), "tekton", "build-pod", "step-push", 20)
	assert.NilError(t, err)
	assert.Equal(t, logs, "fake logs")
}
