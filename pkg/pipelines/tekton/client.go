// Package tekton finds and follows the PipelineRuns created by Tekton
// Triggers EventListeners.
package tekton

import (
	"fmt"

	"github.com/tektoncd/pipeline/pkg/client/clientset/versioned"
	"k8s.io/client-go/kubernetes"

	"github.com/pipetrigger/pipetrigger/pkg/k8s"
)

// NewTektonClientset returns a Tekton clientset for the current kubernetes
// context.
func NewTektonClientset() (versioned.Interface, error) {
	restConfig, err := k8s.NewRestConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create new tekton clientset: %w", err)
	}

	client, err := versioned.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create new tekton clientset: %w", err)
	}

	return client, nil
}

// allows simple mocking in unit tests
var newTektonClientset func() (versioned.Interface, error) = NewTektonClientset

var newKubernetesClientset func() (kubernetes.Interface, error) = func() (kubernetes.Interface, error) {
	return k8s.NewKubernetesClientset()
}
