package tekton

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/tektoncd/pipeline/pkg/apis/pipeline/v1beta1"
	"github.com/tektoncd/pipeline/pkg/client/clientset/versioned"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"
	"knative.dev/pkg/apis"

	"github.com/pipetrigger/pipetrigger/pkg/k8s"
	"github.com/pipetrigger/pipetrigger/pkg/k8s/labels"
	"github.com/pipetrigger/pipetrigger/pkg/metrics"
)

const (
	DefaultStartInterval  = 1 * time.Second
	DefaultStartAttempts  = 10
	DefaultFinishInterval = 5 * time.Second
	DefaultFinishAttempts = 120

	reasonSucceeded = "Succeeded"
	reasonCompleted = "Completed"
	reasonFailed    = "Failed"

	// lines of the failing step log attached to ErrPipelineRunFailed
	failedStepLogLines = 50
)

var errAttemptsExhausted = errors.New("attempts exhausted")

// WaitOptions bound the polling of a PipelineRun.
type WaitOptions struct {
	StartInterval  time.Duration
	StartAttempts  int
	FinishInterval time.Duration
	FinishAttempts int
}

// DefaultWaitOptions wait about ten seconds for a run to appear and about
// ten minutes for it to finish.
func DefaultWaitOptions() WaitOptions {
	return WaitOptions{
		StartInterval:  DefaultStartInterval,
		StartAttempts:  DefaultStartAttempts,
		FinishInterval: DefaultFinishInterval,
		FinishAttempts: DefaultFinishAttempts,
	}
}

type Opt func(*Watcher)

// Watcher looks up and follows PipelineRuns.
type Watcher struct {
	tekton versioned.Interface
	kube   kubernetes.Interface
	wait   WaitOptions
	log    logr.Logger
}

// WithClientset sets the Tekton clientset.  By default one is created for
// the current kubernetes context on first use.
func WithClientset(c versioned.Interface) Opt {
	return func(w *Watcher) {
		w.tekton = c
	}
}

// WithKubernetesClientset sets the clientset used to read the logs of
// failed steps.
func WithKubernetesClientset(c kubernetes.Interface) Opt {
	return func(w *Watcher) {
		w.kube = c
	}
}

// WithWaitOptions overrides the polling bounds.  Zero members keep their
// defaults.
func WithWaitOptions(o WaitOptions) Opt {
	return func(w *Watcher) {
		d := DefaultWaitOptions()
		if o.StartInterval <= 0 {
			o.StartInterval = d.StartInterval
		}
		if o.StartAttempts <= 0 {
			o.StartAttempts = d.StartAttempts
		}
		if o.FinishInterval <= 0 {
			o.FinishInterval = d.FinishInterval
		}
		if o.FinishAttempts <= 0 {
			o.FinishAttempts = d.FinishAttempts
		}
		w.wait = o
	}
}

func WithLogger(l logr.Logger) Opt {
	return func(w *Watcher) {
		w.log = l
	}
}

func NewWatcher(opts ...Opt) *Watcher {
	w := &Watcher{
		wait: DefaultWaitOptions(),
		log:  logr.Discard(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

func (w *Watcher) client() (versioned.Interface, error) {
	if w.tekton != nil {
		return w.tekton, nil
	}
	c, err := newTektonClientset()
	if err != nil {
		return nil, err
	}
	w.tekton = c
	return c, nil
}

// FindPipelineRunByEventID returns the PipelineRun created for the given
// trigger event in any namespace, or nil when there is none (yet).
func (w *Watcher) FindPipelineRunByEventID(ctx context.Context, eventID string) (*v1beta1.PipelineRun, error) {
	client, err := w.client()
	if err != nil {
		return nil, err
	}
	prs, err := client.TektonV1beta1().PipelineRuns(metav1.NamespaceAll).List(ctx, metav1.ListOptions{
		LabelSelector: labels.EventSelector(eventID),
	})
	if err != nil {
		return nil, k8sError("cannot list pipelineruns", err)
	}
	if len(prs.Items) == 0 {
		return nil, nil
	}
	return &prs.Items[0], nil
}

// GetPipelineRunStatus returns the current status of the named PipelineRun.
func (w *Watcher) GetPipelineRunStatus(ctx context.Context, namespace, name string) (*v1beta1.PipelineRunStatus, error) {
	pr, err := w.getPipelineRun(ctx, namespace, name)
	if err != nil {
		return nil, err
	}
	return &pr.Status, nil
}

func (w *Watcher) getPipelineRun(ctx context.Context, namespace, name string) (*v1beta1.PipelineRun, error) {
	client, err := w.client()
	if err != nil {
		return nil, err
	}
	pr, err := client.TektonV1beta1().PipelineRuns(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, k8sError(fmt.Sprintf("cannot get pipelinerun %v/%v", namespace, name), err)
	}
	return pr, nil
}

// WaitForPipelineRunStart polls until the PipelineRun created for eventID
// exists.
func (w *Watcher) WaitForPipelineRunStart(ctx context.Context, eventID string) (*v1beta1.PipelineRun, error) {
	start := time.Now()
	defer func() { metrics.ObservePipelineRunWait(metrics.PhaseStart, time.Since(start)) }()

	var pr *v1beta1.PipelineRun
	err := poll(ctx, w.wait.StartInterval, w.wait.StartAttempts, func(ctx context.Context) (bool, error) {
		found, err := w.FindPipelineRunByEventID(ctx, eventID)
		if err != nil {
			return false, err
		}
		if found == nil {
			w.log.V(1).Info("pipelinerun not created yet", "eventID", eventID)
			return false, nil
		}
		pr = found
		w.log.V(1).Info("pipelinerun created", "pipelinerun", found.Name, "namespace", found.Namespace,
			"eventListener", found.Labels[labels.EventListenerKey], "trigger", found.Labels[labels.TriggerKey])
		return true, nil
	})
	switch {
	case errors.Is(err, errAttemptsExhausted):
		return nil, fmt.Errorf("%w {eventID: %v}", ErrPipelineRunNotCreated, eventID)
	case err != nil:
		return nil, err
	}
	return pr, nil
}

// WaitForPipelineRunFinish polls the named PipelineRun until one of its
// conditions reports success, one reports failure, or the attempts run out.
func (w *Watcher) WaitForPipelineRunFinish(ctx context.Context, namespace, name string) (*v1beta1.PipelineRunStatus, error) {
	start := time.Now()
	defer func() { metrics.ObservePipelineRunWait(metrics.PhaseFinish, time.Since(start)) }()

	var (
		pr     *v1beta1.PipelineRun
		failed bool
	)
	err := poll(ctx, w.wait.FinishInterval, w.wait.FinishAttempts, func(ctx context.Context) (bool, error) {
		current, err := w.getPipelineRun(ctx, namespace, name)
		if err != nil {
			return false, err
		}
		pr = current
		switch {
		case succeeded(&pr.Status):
			return true, nil
		case hasFalseCondition(&pr.Status):
			failed = true
			return true, nil
		}
		w.log.V(1).Info("pipelinerun still running", "pipelinerun", name, "namespace", namespace)
		return false, nil
	})
	switch {
	case errors.Is(err, errAttemptsExhausted):
		return &pr.Status, fmt.Errorf("%w: %v", ErrPipelineRunTimeout, conditionsJSON(&pr.Status))
	case err != nil:
		return nil, err
	case failed:
		return &pr.Status, &ErrPipelineRunFailed{
			Namespace:  namespace,
			Name:       name,
			Conditions: conditionsJSON(&pr.Status),
			Message:    w.failureMessage(ctx, pr),
		}
	}
	return &pr.Status, nil
}

// failureMessage returns the log of the first unsuccessful step of the
// failing TaskRun, falling back to its condition message and then to the
// message of the PipelineRun itself.
func (w *Watcher) failureMessage(ctx context.Context, pr *v1beta1.PipelineRun) string {
	cond := pr.Status.GetCondition(apis.ConditionSucceeded)
	if cond == nil {
		return ""
	}
	message := cond.Message
	if cond.Reason != reasonFailed {
		return message
	}
	client, err := w.client()
	if err != nil {
		return message
	}
	for _, ref := range pr.Status.ChildReferences {
		if ref.Kind != "" && ref.Kind != "TaskRun" {
			continue
		}
		tr, err := client.TektonV1beta1().TaskRuns(pr.Namespace).Get(ctx, ref.Name, metav1.GetOptions{})
		if err != nil {
			return fmt.Sprintf("error getting TaskRun %s: %v", ref.Name, err)
		}
		trCond := tr.Status.GetCondition(apis.ConditionSucceeded)
		if trCond == nil || trCond.Status != corev1.ConditionFalse {
			continue
		}
		for _, s := range tr.Status.Steps {
			if s.Terminated == nil || s.Terminated.ExitCode == 0 {
				continue
			}
			if logs, err := w.stepLogs(ctx, tr.Namespace, tr.Status.PodName, s.ContainerName); err == nil && logs != "" {
				return logs
			}
			break
		}
		return fmt.Sprintf("TaskRun %s: %s", tr.Name, trCond.Message)
	}
	return message
}

func (w *Watcher) stepLogs(ctx context.Context, namespace, pod, container string) (string, error) {
	if w.kube == nil {
		kube, err := newKubernetesClientset()
		if err != nil {
			return "", err
		}
		w.kube = kube
	}
	return k8s.GetPodLogs(ctx, w.kube, namespace, pod, container, failedStepLogLines)
}

// poll runs condition immediately and then every interval, at most attempts
// times.  errAttemptsExhausted is returned when no attempt was conclusive.
func poll(ctx context.Context, interval time.Duration, attempts int, condition wait.ConditionWithContextFunc) error {
	if attempts < 1 {
		attempts = 1
	}
	n := 0
	err := wait.PollUntilContextCancel(ctx, interval, true, func(ctx context.Context) (bool, error) {
		n++
		done, err := condition(ctx)
		if done || err != nil {
			return done, err
		}
		if n >= attempts {
			return false, errAttemptsExhausted
		}
		return false, nil
	})
	if err != nil && !errors.Is(err, errAttemptsExhausted) && ctx.Err() != nil {
		return fmt.Errorf("stopped waiting for pipelinerun: %w", ctx.Err())
	}
	return err
}

func succeeded(s *v1beta1.PipelineRunStatus) bool {
	for _, c := range s.Conditions {
		if c.Reason == reasonSucceeded || c.Reason == reasonCompleted {
			return true
		}
	}
	return false
}

func hasFalseCondition(s *v1beta1.PipelineRunStatus) bool {
	for _, c := range s.Conditions {
		if c.Status == corev1.ConditionFalse {
			return true
		}
	}
	return false
}

func conditionsJSON(s *v1beta1.PipelineRunStatus) string {
	bb, err := json.Marshal(s.Conditions)
	if err != nil {
		return fmt.Sprintf("%v", s.Conditions)
	}
	return string(bb)
}

func k8sError(msg string, err error) error {
	if k8s.IsCRDNotFoundError(err) {
		return fmt.Errorf("%v, tekton not installed?: %w", msg, err)
	}
	if reason := k8s.Reason(err); reason != "" {
		return fmt.Errorf("%v (%v): %w", msg, reason, err)
	}
	return fmt.Errorf("%v: %w", msg, err)
}
