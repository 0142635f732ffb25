package client

import "strings"

// DefaultNamespace prefixes application event names that are not given
// fully qualified.
const DefaultNamespace = "App.Events"

// EventFormatter turns short event names into the class-style names the
// server publishes: "OrderShipped" becomes "App\Events\OrderShipped". A
// leading '.' or '\' marks a name as already qualified.
type EventFormatter struct {
	namespace string
}

func NewEventFormatter(namespace string) EventFormatter {
	return EventFormatter{namespace: namespace}
}

func (f EventFormatter) Format(event string) string {
	if strings.HasPrefix(event, ".") || strings.HasPrefix(event, `\`) {
		return event[1:]
	}
	if f.namespace != "" {
		event = f.namespace + "." + event
	}
	return strings.ReplaceAll(event, ".", `\`)
}
