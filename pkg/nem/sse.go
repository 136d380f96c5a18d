package nem

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Event is one server-sent event
type Event struct {
	ID    string
	Event string
	Data  any
	// Err ends the stream after an error event
	Err error
}

// SSEDirective streams a channel of events as text/event-stream
type SSEDirective struct {
	DirectiveBase
	RetryOnError time.Duration
}

// SSE streams the handler's <-chan Event. A non-zero retry is sent to the
// client as the reconnection delay.
func SSE(retryOnError time.Duration) *SSEDirective {
	return &SSEDirective{RetryOnError: retryOnError}
}

func (d *SSEDirective) End(hc *HookContext) error {
	var events <-chan Event
	switch ch := hc.Result.(type) {
	case <-chan Event:
		events = ch
	case chan Event:
		events = ch
	default:
		return fmt.Errorf("Invalid return type. Expected \"<-chan nem.Event\", %q given", kindName(hc.Result))
	}

	h := hc.Response.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")

	done := hc.Context.Done()
	return hc.Response.Stream(func(w io.Writer, flush func()) error {
		if d.RetryOnError > 0 {
			if _, err := fmt.Fprintf(w, "retry: %d\n\n", d.RetryOnError.Milliseconds()); err != nil {
				return err
			}
			flush()
		}
		for {
			select {
			case <-done:
				return nil
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				if err := writeEvent(w, ev); err != nil {
					return err
				}
				flush()
				if ev.Err != nil {
					return nil
				}
			}
		}
	})
}

func writeEvent(w io.Writer, ev Event) error {
	var b strings.Builder
	if ev.ID != "" {
		fmt.Fprintf(&b, "id: %s\n", ev.ID)
	}
	name, data := ev.Event, ev.Data
	if ev.Err != nil {
		name, data = "error", ev.Err.Error()
	}
	if name != "" {
		fmt.Fprintf(&b, "event: %s\n", name)
	}
	payload, err := eventPayload(data)
	if err != nil {
		return err
	}
	for _, line := range strings.Split(payload, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")
	_, err = io.WriteString(w, b.String())
	return err
}

func eventPayload(data any) (string, error) {
	switch v := data.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
