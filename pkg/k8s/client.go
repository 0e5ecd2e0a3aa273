package k8s

import (
	"fmt"

	"k8s.io/client-go/kubernetes"
	_ "k8s.io/client-go/plugin/pkg/client/auth"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// GetClientConfig returns the deferred loading client config, honoring
// $KUBECONFIG, ~/.kube/config and the in-cluster service account in that
// order.
func GetClientConfig() clientcmd.ClientConfig {
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		clientcmd.NewDefaultClientConfigLoadingRules(),
		&clientcmd.ConfigOverrides{})
}

// NewRestConfig resolves the rest config of the currently active context.
func NewRestConfig() (*rest.Config, error) {
	restConfig, err := GetClientConfig().ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create new kubernetes client config: %w", err)
	}
	return restConfig, nil
}

func NewKubernetesClientset() (*kubernetes.Clientset, error) {
	restConfig, err := NewRestConfig()
	if err != nil {
		return nil, err
	}
	return kubernetes.NewForConfig(restConfig)
}
