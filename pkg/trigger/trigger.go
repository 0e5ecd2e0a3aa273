// Package trigger starts Tekton pipelines by posting events to Tekton
// Triggers EventListeners.
package trigger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-logr/logr"

	pthttp "github.com/pipetrigger/pipetrigger/pkg/http"
)

// maximum number of response body bytes kept for error reporting
const maxErrorBody = 4096

// Response of an EventListener which accepted an event.
type Response struct {
	EventListener    string `json:"eventListener"`
	Namespace        string `json:"namespace"`
	EventListenerUID string `json:"eventListenerUID"`
	EventID          string `json:"eventID"`
}

// Client posts events to EventListeners.
type Client struct {
	httpClient *http.Client
	verbose    bool
	log        logr.Logger
}

type Opt func(*Client)

// WithTransport sets the round tripper used to reach the EventListeners.
func WithTransport(t http.RoundTripper) Opt {
	return func(c *Client) {
		c.httpClient = &http.Client{Transport: t}
	}
}

// WithVerbose logs every request and response.
func WithVerbose(verbose bool) Opt {
	return func(c *Client) {
		c.verbose = verbose
	}
}

func WithLogger(l logr.Logger) Opt {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient returns a Client.  Without WithTransport a fresh transport of
// pkg/http is used.
func NewClient(opts ...Opt) *Client {
	c := &Client{log: logr.Discard()}
	for _, o := range opts {
		o(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Transport: pthttp.NewRoundTripper()}
	}
	return c
}

// Trigger posts payload, serialized as JSON, to the EventListener at
// endpoint.  Only an Accepted answer means a PipelineRun is being created;
// anything else is reported as *ErrNotAccepted.
//
// Requests are never retried, as each accepted event starts a new pipeline.
func (c *Client) Trigger(ctx context.Context, endpoint string, payload any) (Response, error) {
	var r Response

	body, err := json.Marshal(payload)
	if err != nil {
		return r, fmt.Errorf("cannot encode pipeline payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return r, fmt.Errorf("cannot create request for %v: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.verbose {
		c.log.Info("triggering pipeline", "endpoint", endpoint, "payload", string(body))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return r, fmt.Errorf("cannot reach event listener %v: %w", endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return r, fmt.Errorf("cannot read event listener response: %w", err)
	}

	if c.verbose {
		c.log.Info("event listener answered", "status", resp.StatusCode, "body", string(respBody))
	}

	if resp.StatusCode != http.StatusAccepted {
		if len(respBody) > maxErrorBody {
			respBody = respBody[:maxErrorBody]
		}
		return r, &ErrNotAccepted{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	// Older EventListeners answer with an empty body.
	if len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, &r); err != nil {
			c.log.V(1).Info("cannot decode event listener response", "endpoint", endpoint, "error", err.Error(), "body", string(respBody))
		}
	}
	return r, nil
}
