package builtin

import (
	"fmt"
	"strings"

	giturls "github.com/chainguard-dev/git-urls"

	"github.com/pipetrigger/pipetrigger/pkg/actions"
)

// validateGitURL ensures a repository input is a URL git can clone, either
// with a transport (https://, ssh://, git://, file://) or in scp form
// (git@host:path).  Empty values are left to the pipeline.
func validateGitURL(input, url string) error {
	if url == "" {
		return nil
	}
	_, err := giturls.ParseTransport(url)
	if err != nil {
		_, err = giturls.ParseScp(url)
	}
	if err != nil {
		msg := fmt.Sprintf("%v %q is not a valid git repository URL", input, url)
		if !strings.HasSuffix(err.Error(), "is not a valid transport") {
			msg = fmt.Sprintf("%v: %v", msg, err)
		}
		return fmt.Errorf("%w: %v", actions.ErrInvalidInput, msg)
	}
	return nil
}
