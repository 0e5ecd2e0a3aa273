package builtin

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/pipetrigger/pipetrigger/pkg/config"
)

func TestDevSecOpsEndpoint(t *testing.T) {
	t.Setenv("NODE_ENV", "")
	t.Setenv("OPENSHIFT_BASE_DOMAIN", "apps.cluster.example.com")

	tests := []struct {
		name string
		cfg  config.Global
		want string
	}{
		{
			name: "production",
			cfg:  config.Global{Environment: config.EnvironmentProduction},
			want: "http://el-backstage-cr.tekton.svc.cluster.local:8080",
		},
		{
			name: "development from environment",
			cfg:  config.Global{Environment: config.EnvironmentDevelopment},
			want: "http://ryu-test-backstage.apps.cluster.example.com",
		},
		{
			name: "development with configured domain",
			cfg:  config.Global{Environment: config.EnvironmentDevelopment, OpenShiftBaseDomain: "apps.dev.example.com"},
			want: "http://ryu-test-backstage.apps.dev.example.com",
		},
		{
			name: "configured endpoint wins",
			cfg: config.Global{
				Environment: config.EnvironmentDevelopment,
				Endpoints:   map[string]string{DevSecOpsID: "http://127.0.0.1:8080"},
			},
			want: "http://127.0.0.1:8080",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Builtins{cfg: tt.cfg}
			assert.Equal(t, b.devSecOpsEndpoint(), tt.want)
		})
	}
}

// TestDevSecOpsEndpointFromNodeEnv ensures NODE_ENV selects the development
// route when neither the config file nor a flag names an environment.
func TestDevSecOpsEndpointFromNodeEnv(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("PIPETRIGGER_CONFIG_FILE", "")
	t.Setenv("NODE_ENV", "development")
	t.Setenv("OPENSHIFT_BASE_DOMAIN", "apps.dev.example.com")

	cfg, err := config.NewDefault()
	if err != nil {
		t.Fatal(err)
	}
	b := New(cfg)
	defer b.Close()
	assert.Equal(t, b.devSecOpsEndpoint(), "http://ryu-test-backstage.apps.dev.example.com")

	t.Setenv("NODE_ENV", "")
	assert.Equal(t, b.devSecOpsEndpoint(), DevSecOpsEndpoint)
}
