// Package server exposes an action registry over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/pipetrigger/pipetrigger/pkg/actions"
	"github.com/pipetrigger/pipetrigger/pkg/metrics"
)

const (
	DefaultAddress = ":8080"

	// ShutdownTimeout bounds how long in flight invocations may take to
	// finish once the server is asked to stop.
	ShutdownTimeout = 30 * time.Second

	maxBodyBytes = 1 << 20
)

// RunRequest is the body of POST /v1/actions/{id}.
type RunRequest struct {
	Input map[string]any `json:"input"`
}

// RunResponse is returned by POST /v1/actions/{id}.  Error is set when the
// invocation failed; outputs recorded before the failure are kept.
type RunResponse struct {
	actions.Result
	Error string `json:"error,omitempty"`
}

type handler struct {
	registry *actions.Registry
	log      logr.Logger
}

// NewHandler returns the HTTP API of the registry:
//
//	GET  /healthz
//	GET  /metrics
//	GET  /v1/actions
//	GET  /v1/actions/{id}
//	POST /v1/actions/{id}   {"input":{...}}
func NewHandler(registry *actions.Registry, log logr.Logger) http.Handler {
	h := &handler{registry: registry, log: log}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	v1 := router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/actions", h.list).Methods(http.MethodGet)
	v1.HandleFunc("/actions/{id}", h.describe).Methods(http.MethodGet)
	v1.HandleFunc("/actions/{id}", h.run).Methods(http.MethodPost)

	router.Use(h.logging, h.recover)
	return router
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, "OK")
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	dd := []actions.Description{}
	for _, a := range h.registry.List() {
		d, err := a.Describe()
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, RunResponse{Result: actions.Result{Action: a.ID}}, err)
			return
		}
		dd = append(dd, d)
	}
	h.writeJSON(w, http.StatusOK, dd)
}

func (h *handler) describe(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	a, err := h.registry.Get(id)
	if err != nil {
		h.writeError(w, http.StatusNotFound, RunResponse{Result: actions.Result{Action: id}}, err)
		return
	}
	d, err := a.Describe()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, RunResponse{Result: actions.Result{Action: id}}, err)
		return
	}
	h.writeJSON(w, http.StatusOK, d)
}

func (h *handler) run(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	req := RunRequest{}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		err = fmt.Errorf("%w: cannot decode request body: %w", actions.ErrInvalidInput, err)
		h.writeError(w, http.StatusBadRequest, RunResponse{Result: actions.Result{Action: id}}, err)
		return
	}

	res, err := h.registry.Run(r.Context(), id, req.Input, h.log)
	if err != nil {
		h.writeError(w, statusOf(err), RunResponse{Result: res}, err)
		return
	}
	h.writeJSON(w, http.StatusOK, RunResponse{Result: res})
}

// statusOf maps the error of an invocation to a response status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, actions.ErrActionNotFound):
		return http.StatusNotFound
	case errors.Is(err, actions.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func (h *handler) writeError(w http.ResponseWriter, status int, resp RunResponse, err error) {
	if resp.Output == nil {
		resp.Output = map[string]any{}
	}
	resp.Error = err.Error()
	h.writeJSON(w, status, resp)
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error(err, "cannot write response")
	}
}

// Middleware
// ----------

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *handler) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.log.V(1).Info("request", "method", r.Method, "path", r.URL.Path,
			"status", rec.status, "duration", time.Since(start).String())
	})
}

func (h *handler) recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				h.log.Error(fmt.Errorf("panic: %v", v), "request handler panicked", "path", r.URL.Path, "stack", string(debug.Stack()))
				w.WriteHeader(http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Serve the handler on the listener until ctx is done, then shut down
// gracefully.  Requests in flight see ctx canceled.
func Serve(ctx context.Context, l net.Listener, h http.Handler, log logr.Logger) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "address", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
