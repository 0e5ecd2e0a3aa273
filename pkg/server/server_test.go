package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
	"gotest.tools/v3/assert"

	"github.com/pipetrigger/pipetrigger/pkg/actions"
	"github.com/pipetrigger/pipetrigger/pkg/server"
)

type buildInput struct {
	Name string `json:"name" jsonschema:"title=Name"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	r, err := actions.NewRegistry(
		actions.Action{
			ID:          "test:build",
			Description: "Builds things",
			Input:       &buildInput{},
			Output:      []actions.OutputProperty{{Name: "image"}},
			Handler: func(ctx context.Context, rc *actions.Context) error {
				in := buildInput{}
				if err := rc.Decode(&in); err != nil {
					return err
				}
				rc.Output("image", "registry.example.com/"+in.Name)
				return nil
			},
		},
		actions.Action{
			ID:    "test:fail",
			Input: &buildInput{},
			Handler: func(ctx context.Context, rc *actions.Context) error {
				rc.Output("eventID", "ev-1")
				return errors.New("pipelinerun failed")
			},
		},
		actions.Action{
			ID: "test:panic",
			Handler: func(ctx context.Context, rc *actions.Context) error {
				panic("boom")
			},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	s := httptest.NewServer(server.NewHandler(r, logr.Discard()))
	t.Cleanup(s.Close)
	return s
}

func post(t *testing.T, url, body string) (*http.Response, server.RunResponse) {
	t.Helper()
	res, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	rr := server.RunResponse{}
	if res.StatusCode != http.StatusInternalServerError {
		if err = json.NewDecoder(res.Body).Decode(&rr); err != nil {
			t.Fatal(err)
		}
	}
	return res, rr
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	res, err := http.Get(s.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	bb, _ := io.ReadAll(res.Body)
	assert.Equal(t, res.StatusCode, http.StatusOK)
	assert.Equal(t, string(bb), "OK")
}

func TestListAndDescribe(t *testing.T) {
	s := newTestServer(t)

	res, err := http.Get(s.URL + "/v1/actions")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	dd := []actions.Description{}
	if err = json.NewDecoder(res.Body).Decode(&dd); err != nil {
		t.Fatal(err)
	}
	ids := []string{}
	for _, d := range dd {
		ids = append(ids, d.ID)
	}
	if diff := cmp.Diff([]string{"test:build", "test:fail", "test:panic"}, ids); diff != "" {
		t.Errorf("unexpected actions (-want, +got): %v", diff)
	}

	res, err = http.Get(s.URL + "/v1/actions/test:build")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	d := actions.Description{}
	if err = json.NewDecoder(res.Body).Decode(&d); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, d.Description, "Builds things")
	assert.Equal(t, d.Inputs[0].Name, "name")

	res, err = http.Get(s.URL + "/v1/actions/test:nope")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	assert.Equal(t, res.StatusCode, http.StatusNotFound)
}

func TestRun(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name       string
		id         string
		body       string
		wantStatus int
		wantOutput map[string]any
		wantErr    bool
	}{
		{
			name:       "succeeds",
			id:         "test:build",
			body:       `{"input":{"name":"app"}}`,
			wantStatus: http.StatusOK,
			wantOutput: map[string]any{"image": "registry.example.com/app"},
		},
		{
			name:       "invalid input",
			id:         "test:build",
			body:       `{"input":{}}`,
			wantStatus: http.StatusBadRequest,
			wantOutput: map[string]any{},
			wantErr:    true,
		},
		{
			name:       "malformed body",
			id:         "test:build",
			body:       `{"inputs":{"name":"app"}}`,
			wantStatus: http.StatusBadRequest,
			wantOutput: map[string]any{},
			wantErr:    true,
		},
		{
			name:       "unknown action",
			id:         "test:nope",
			body:       `{"input":{}}`,
			wantStatus: http.StatusNotFound,
			wantOutput: map[string]any{},
			wantErr:    true,
		},
		{
			name:       "failing action keeps outputs",
			id:         "test:fail",
			body:       `{"input":{"name":"app"}}`,
			wantStatus: http.StatusBadGateway,
			wantOutput: map[string]any{"eventID": "ev-1"},
			wantErr:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, rr := post(t, s.URL+"/v1/actions/"+tt.id, tt.body)
			assert.Equal(t, res.StatusCode, tt.wantStatus)
			assert.Equal(t, rr.Action, tt.id)
			assert.Equal(t, rr.Error != "", tt.wantErr, "error: %q", rr.Error)
			if diff := cmp.Diff(tt.wantOutput, rr.Output); diff != "" {
				t.Errorf("unexpected output (-want, +got): %v", diff)
			}
		})
	}
}

func TestRunRecoversPanics(t *testing.T) {
	s := newTestServer(t)
	res, _ := post(t, s.URL+"/v1/actions/test:panic", `{"input":{}}`)
	assert.Equal(t, res.StatusCode, http.StatusInternalServerError)
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t)
	_, _ = post(t, s.URL+"/v1/actions/test:build", `{"input":{"name":"app"}}`)

	res, err := http.Get(s.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	bb, _ := io.ReadAll(res.Body)
	assert.Equal(t, res.StatusCode, http.StatusOK)
	assert.Assert(t, strings.Contains(string(bb), `pipetrigger_action_runs_total{action="test:build",result="succeeded"}`))
}

func TestServeShutsDownOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx, l, http.NotFoundHandler(), logr.Discard())
	}()

	// the server is up once a request is answered
	deadline := time.Now().Add(5 * time.Second)
	for {
		res, err := http.Get("http://" + l.Addr().String() + "/")
		if err == nil {
			res.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		assert.NilError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

// TestServeCancelsRequestsInFlight ensures a handler blocked on its request
// context returns when the server context is done, and the server then
// shuts down without error.
func TestServeCancelsRequestsInFlight(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NilError(t, err)

	started := make(chan struct{})
	canceled := make(chan struct{})
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
		close(canceled)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx, l, h, logr.Discard())
	}()

	go func() {
		res, err := http.Get("http://" + l.Addr().String() + "/")
		if err == nil {
			res.Body.Close()
		}
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("request did not reach the handler")
	}
	cancel()

	select {
	case <-canceled:
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not see cancellation")
	}
	select {
	case err := <-done:
		assert.NilError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
