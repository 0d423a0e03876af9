package notifysvc

import (
	"sync"

	"github.com/trezcool/labtrack/core"
)

// ConsolePublisher logs events instead of delivering them. Dev stand-in for
// the websocket Hub.
type ConsolePublisher struct {
	logger core.Logger
}

var _ core.EventPublisher = (*ConsolePublisher)(nil)

func NewConsolePublisher(logger core.Logger) *ConsolePublisher {
	return &ConsolePublisher{logger: logger}
}

func (p ConsolePublisher) Publish(events ...core.Event) {
	for _, ev := range events {
		p.logger.Info("event: "+ev.Type, map[string]interface{}{"lab": ev.LabID, "group": ev.GroupID})
	}
}

// Recorder collects published events for assertions in tests.
type Recorder struct {
	mu     sync.Mutex
	events []core.Event
}

var _ core.EventPublisher = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(events ...core.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

// Events returns a snapshot of everything published so far.
func (r *Recorder) Events() []core.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset clears the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
