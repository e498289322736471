// Package status publishes task progress events to interested observers.
// The orchestrator emits one event per task transition; writers decide
// whether that becomes a log line or a websocket push.
package status

import (
	"log"
	"time"
)

type Event struct {
	Task   string    `json:"task"`
	Status string    `json:"status"`
	Detail string    `json:"detail,omitempty"`
	Time   time.Time `json:"time"`
}

type Writer interface {
	Publish(Event)
}

// LogWriter renders events as log lines.
type LogWriter struct {
	Logger *log.Logger
}

func (w LogWriter) Publish(e Event) {
	if w.Logger == nil {
		return
	}
	if e.Detail != "" {
		w.Logger.Printf("[%s] %s: %s", e.Task, e.Status, e.Detail)
		return
	}
	w.Logger.Printf("[%s] %s", e.Task, e.Status)
}

// Multi fans one event out to several writers.
type Multi []Writer

func (m Multi) Publish(e Event) {
	for _, w := range m {
		if w != nil {
			w.Publish(e)
		}
	}
}
