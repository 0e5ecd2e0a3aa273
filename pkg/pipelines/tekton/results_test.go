package tekton

import (
	"context"
	"errors"
	"testing"

	"github.com/tektoncd/pipeline/pkg/apis/pipeline/v1beta1"
	fakepipelineclientset "github.com/tektoncd/pipeline/pkg/client/clientset/versioned/fake"
	"gotest.tools/v3/assert"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func buildTaskRun(name string, results ...v1beta1.TaskRunResult) *v1beta1.TaskRun {
	return &v1beta1.TaskRun{
		ObjectMeta: metav1.ObjectMeta{Namespace: "tekton", Name: name},
		Status: v1beta1.TaskRunStatus{
			TaskRunStatusFields: v1beta1.TaskRunStatusFields{TaskRunResults: results},
		},
	}
}

func result(name, value string) v1beta1.TaskRunResult {
	return v1beta1.TaskRunResult{
		Name:  name,
		Type:  v1beta1.ResultsTypeString,
		Value: *v1beta1.NewStructuredValues(value),
	}
}

func TestBuildResults(t *testing.T) {
	tests := []struct {
		name    string
		refs    []v1beta1.ChildStatusReference
		taskRun *v1beta1.TaskRun
		wantRef string
		wantSHA string
		wantErr error
	}{
		{
			name: "positional results with trailing newlines",
			taskRun: buildTaskRun("run-a-build-push-image",
				result("image-ref", "quay.io/acme/app:latest\n"),
				result("image-sha", "sha256:abc\n")),
			wantRef: "quay.io/acme/app:latest",
			wantSHA: "sha256:abc",
		},
		{
			name: "order wins over result names",
			taskRun: buildTaskRun("run-a-build-push-image",
				result("IMAGE_DIGEST", "sha256:def"),
				result("IMAGE_URL", "quay.io/acme/app:1")),
			wantRef: "sha256:def",
			wantSHA: "quay.io/acme/app:1",
		},
		{
			name: "task run found through child references",
			refs: []v1beta1.ChildStatusReference{
				{Name: "run-a-fetch"},
				{Name: "run-a-build-xyz", PipelineTaskName: BuildTaskName},
			},
			taskRun: buildTaskRun("run-a-build-xyz",
				result("a", "quay.io/acme/app:2"),
				result("b", "sha256:123")),
			wantRef: "quay.io/acme/app:2",
			wantSHA: "sha256:123",
		},
		{
			name:    "missing task run",
			taskRun: buildTaskRun("another"),
			wantErr: ErrBuildTaskNotFound,
		},
		{
			name: "single result",
			taskRun: buildTaskRun("run-a-build-push-image",
				result("image-ref", "quay.io/acme/app:latest")),
			wantErr: ErrImageResultsMissing,
		},
		{
			name: "empty digest",
			taskRun: buildTaskRun("run-a-build-push-image",
				result("image-ref", "quay.io/acme/app:latest"),
				result("image-sha", "\n")),
			wantErr: ErrImageResultsMissing,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pr := pipelineRun("tekton", "run-a", "ev")
			pr.Status.ChildReferences = tt.refs
			w := NewWatcher(WithClientset(fakepipelineclientset.NewSimpleClientset(pr, tt.taskRun)))

			ref, sha, err := w.BuildResults(context.Background(), pr, nil)
			if tt.wantErr != nil {
				assert.Assert(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			assert.NilError(t, err)
			assert.Equal(t, ref, tt.wantRef)
			assert.Equal(t, sha, tt.wantSHA)
		})
	}
}
