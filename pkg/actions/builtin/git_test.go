package builtin

import (
	"errors"
	"testing"

	"github.com/pipetrigger/pipetrigger/pkg/actions"
)

func TestValidateGitURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"", false},
		{"https://github.com/acme/app", false},
		{"https://github.com/acme/app.git", false},
		{"ssh://git@github.com/acme/app.git", false},
		{"git@github.com:acme/app.git", false},
		{"file:///srv/git/app", false},
		{"not a repository", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := validateGitURL("repoURL", tt.url)
			if tt.wantErr != (err != nil) {
				t.Fatalf("validateGitURL(%q) = %v, want error %v", tt.url, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, actions.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
