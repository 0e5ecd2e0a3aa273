// package testing includes minor testing helpers.
//
// These helpers include extensions to the testing nomenclature which exist to
// ease the development of tests for pipeline actions.  It is mostly just
// syntactic sugar and closures for creating temporary directories and fake
// EventListener endpoints.
//
// They have no build tags such that no combination of tags can cause them to
// either be missing or interfere with each other.
package testing

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
)

// Mktemp creates a temporary directory, CDs the current processes (test) to
// said directory, and returns the path to said directory.
// Usage:
//
//	path, rm := Mktemp(t)
//	defer rm()
//	CWD is now 'path'
//
// errors encountererd fail the current test.
func Mktemp(t *testing.T) (string, func()) {
	t.Helper()
	tmp := t.TempDir()
	owd := pwd(t)
	cd(t, tmp)
	return tmp, func() {
		cd(t, owd)
	}
}

// pwd prints the current working directory.
// errors fail the test.
func pwd(t *testing.T) string {
	t.Helper()
	d, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	return d
}

// cd changes directory to the given directory.
// errors fail the given test.
func cd(t *testing.T, dir string) {
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
}

// ClearEnvs sets all environment variables with the prefix of PIPETRIGGER_ to
// empty (unsets) for the duration of the test t and is used when
// a test needs to completely clear related envs prior to running.
func ClearEnvs(t *testing.T) {
	t.Helper()
	for _, v := range os.Environ() {
		if strings.HasPrefix(v, "PIPETRIGGER_") {
			parts := strings.SplitN(v, "=", 2)
			t.Setenv(parts[0], "")
		}
	}
}

// EventListener is a fake Tekton EventListener sink recording every request
// body it receives.
type EventListener struct {
	URL string

	mu       sync.Mutex
	requests []Request
}

// Request received by an EventListener.
type Request struct {
	Method      string
	ContentType string
	Body        []byte
}

// Requests returns a copy of the requests received so far.
func (e *EventListener) Requests() []Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Request(nil), e.requests...)
}

// Payload decodes the body of the i-th request into a generic map, failing
// the test if there is no such request.
func (e *EventListener) Payload(t *testing.T, i int) map[string]any {
	t.Helper()
	rr := e.Requests()
	if len(rr) <= i {
		t.Fatalf("expected at least %d requests, got %d", i+1, len(rr))
	}
	payload := map[string]any{}
	if err := json.Unmarshal(rr[i].Body, &payload); err != nil {
		t.Fatalf("request body is not JSON: %v", err)
	}
	return payload
}

// NewEventListener starts a fake EventListener which answers every request
// with the given status code.  An Accepted answer carries eventID in the
// response body the way Tekton Triggers does.  The server is closed when the
// test completes.
func NewEventListener(t *testing.T, status int, eventID string) *EventListener {
	t.Helper()
	el := &EventListener{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		el.mu.Lock()
		el.requests = append(el.requests, Request{
			Method:      r.Method,
			ContentType: r.Header.Get("Content-Type"),
			Body:        body,
		})
		el.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusAccepted {
			_, _ = fmt.Fprintf(w, `{"eventListener":"el-test","namespace":"tekton","eventListenerUID":"0d7c0b3e","eventID":%q}`, eventID)
			return
		}
		_, _ = io.WriteString(w, `{"errorMessage":"rejected"}`)
	}))
	t.Cleanup(srv.Close)
	el.URL = srv.URL
	return el
}
