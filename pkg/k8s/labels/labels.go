package labels

import (
	k8slabels "k8s.io/apimachinery/pkg/labels"
)

const (
	// EventIDKey is set by Tekton Triggers on every resource created for an
	// event received by an EventListener.
	EventIDKey = "triggers.tekton.dev/triggers-eventid"
	// EventListenerKey names the EventListener which received the event.
	EventListenerKey = "triggers.tekton.dev/eventlistener"
	// TriggerKey names the Trigger which matched the event.
	TriggerKey = "triggers.tekton.dev/trigger"
)

// EventSelector selects the resources created for the given event.
func EventSelector(eventID string) string {
	return k8slabels.SelectorFromSet(k8slabels.Set{EventIDKey: eventID}).String()
}
