// Package imagecontext forwards the image produced by a pipeline to the
// developer portal backend.
package imagecontext

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	// Path of the image context API relative to the backend base URL.
	Path = "/api/rhacs/v1/imagecontext"

	DefaultRetries = 3
)

var ErrBackendURLNotSet = errors.New("backend URL has not been loaded")

// ImageContext identifies a built image.
type ImageContext struct {
	ImageReference string `json:"imageReference"`
	ImageSha       string `json:"imageSha"`
}

// Client posts image contexts to the backend.
type Client struct {
	backendURL string
	retries    int
	transport  http.RoundTripper
	waitMin    time.Duration
	waitMax    time.Duration
	log        logr.Logger
}

type Opt func(*Client)

func WithRetries(n int) Opt {
	return func(c *Client) {
		c.retries = n
	}
}

func WithTransport(t http.RoundTripper) Opt {
	return func(c *Client) {
		c.transport = t
	}
}

// WithRetryWait bounds the backoff between retries.
func WithRetryWait(waitMin, waitMax time.Duration) Opt {
	return func(c *Client) {
		c.waitMin = waitMin
		c.waitMax = waitMax
	}
}

func WithLogger(l logr.Logger) Opt {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient returns a client for the backend at backendURL, for example
// "http://backstage.example.com".
func NewClient(backendURL string, opts ...Opt) *Client {
	c := &Client{
		backendURL: strings.TrimSuffix(backendURL, "/"),
		retries:    DefaultRetries,
		waitMin:    time.Second,
		waitMax:    10 * time.Second,
		log:        logr.Discard(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Save posts ic to the backend and returns the image context it echoes.
// Connection errors and server errors are retried.
func (c *Client) Save(ctx context.Context, ic ImageContext) (ImageContext, error) {
	var saved ImageContext
	if c.backendURL == "" {
		return saved, ErrBackendURLNotSet
	}

	body, err := json.Marshal(ic)
	if err != nil {
		return saved, fmt.Errorf("cannot encode image context: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.backendURL+Path, body)
	if err != nil {
		return saved, fmt.Errorf("cannot create image context request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return saved, fmt.Errorf("cannot save image context: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return saved, fmt.Errorf("cannot read image context response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return saved, fmt.Errorf("cannot save image context: %v: %s", resp.Status, bytes.TrimSpace(respBody))
	}

	c.log.Info("image context saved", "status", resp.Status)
	if len(bytes.TrimSpace(respBody)) == 0 {
		return ic, nil
	}
	if err = json.Unmarshal(respBody, &saved); err != nil {
		return saved, fmt.Errorf("cannot decode image context response: %w", err)
	}
	return saved, nil
}

func (c *Client) httpClient() *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = c.retries
	rc.RetryWaitMin = c.waitMin
	rc.RetryWaitMax = c.waitMax
	rc.Logger = leveledLogger{c.log}
	if c.transport != nil {
		rc.HTTPClient = &http.Client{Transport: c.transport}
	}
	return rc
}

// leveledLogger adapts logr to the retryablehttp logging interface.
type leveledLogger struct {
	log logr.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...any) {
	l.log.Error(nil, msg, keysAndValues...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...any) {
	l.log.V(1).Info(msg, keysAndValues...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...any) {
	l.log.V(2).Info(msg, keysAndValues...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...any) {
	l.log.Info(msg, keysAndValues...)
}
