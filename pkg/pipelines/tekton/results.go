package tekton

import (
	"context"
	"fmt"
	"strings"

	"github.com/tektoncd/pipeline/pkg/apis/pipeline/v1beta1"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	// BuildTaskName is the pipeline task producing the image.
	BuildTaskName = "build-push-image"
)

// BuildResults returns the image reference and digest reported by the
// build-push-image task of the given run: its first and second results,
// whatever their names.
func (w *Watcher) BuildResults(ctx context.Context, pr *v1beta1.PipelineRun, status *v1beta1.PipelineRunStatus) (imageReference, imageSHA string, err error) {
	if status == nil {
		status = &pr.Status
	}
	client, err := w.client()
	if err != nil {
		return "", "", err
	}

	taskRunName := pr.Name + "-" + BuildTaskName
	for _, ref := range status.ChildReferences {
		if ref.PipelineTaskName == BuildTaskName {
			taskRunName = ref.Name
			break
		}
	}

	tr, err := client.TektonV1beta1().TaskRuns(pr.Namespace).Get(ctx, taskRunName, metav1.GetOptions{})
	if k8serrors.IsNotFound(err) {
		return "", "", fmt.Errorf("%w: %v/%v", ErrBuildTaskNotFound, pr.Namespace, taskRunName)
	}
	if err != nil {
		return "", "", k8sError(fmt.Sprintf("cannot get taskrun %v/%v", pr.Namespace, taskRunName), err)
	}

	values := []string{}
	for _, r := range tr.Status.TaskRunResults {
		values = append(values, strings.TrimSuffix(r.Value.StringVal, "\n"))
	}
	if len(values) < 2 || values[0] == "" || values[1] == "" {
		return "", "", fmt.Errorf("%w in taskrun %v/%v", ErrImageResultsMissing, pr.Namespace, taskRunName)
	}
	return values[0], values[1], nil
}
