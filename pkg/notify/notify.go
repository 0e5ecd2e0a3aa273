// Package notify announces completed pipeline runs as CloudEvents.
package notify

import (
	"context"
	"fmt"
	"net/http"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"
	"github.com/google/uuid"
)

const (
	EventType     = "dev.pipetrigger.pipelinerun.completed"
	DefaultSource = "/pipetrigger"
)

// Completion is the data of a completion event.
type Completion struct {
	Action         string `json:"action"`
	Invocation     string `json:"invocation,omitempty"`
	PipelineRun    string `json:"pipelineRun"`
	Namespace      string `json:"namespace"`
	ImageReference string `json:"imageReference,omitempty"`
	ImageSha       string `json:"imageSha,omitempty"`
}

// Notifier sends completion events to a sink.  A Notifier without a sink,
// as well as a nil Notifier, sends nothing.
type Notifier struct {
	sink      string
	source    string
	transport http.RoundTripper
}

type Opt func(*Notifier)

// WithSource sets the CloudEvents source attribute, DefaultSource otherwise.
func WithSource(source string) Opt {
	return func(n *Notifier) {
		n.source = source
	}
}

func WithTransport(t http.RoundTripper) Opt {
	return func(n *Notifier) {
		n.transport = t
	}
}

func NewNotifier(sink string, opts ...Opt) *Notifier {
	n := &Notifier{
		sink:   sink,
		source: DefaultSource,
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// PipelineRunCompleted sends a completion event for c.
func (n *Notifier) PipelineRunCompleted(ctx context.Context, c Completion) error {
	if n == nil || n.sink == "" {
		return nil
	}

	event := cloudevents.NewEvent()
	event.SetID(uuid.NewString())
	event.SetSource(n.source)
	event.SetType(EventType)
	event.SetSubject(c.Namespace + "/" + c.PipelineRun)
	if err := event.SetData(cloudevents.ApplicationJSON, c); err != nil {
		return fmt.Errorf("cannot set data: %w", err)
	}

	opts := []cehttp.Option{cloudevents.WithTarget(n.sink)}
	if n.transport != nil {
		opts = append(opts, cloudevents.WithRoundTripper(n.transport))
	}
	client, err := cloudevents.NewClientHTTP(opts...)
	if err != nil {
		return fmt.Errorf("cannot create event client: %w", err)
	}

	result := client.Send(ctx, event)
	if cloudevents.IsUndelivered(result) {
		return fmt.Errorf("unable to deliver completion event: %v", result)
	}
	if !cloudevents.IsACK(result) {
		return fmt.Errorf("completion event rejected: %v", result)
	}
	return nil
}
