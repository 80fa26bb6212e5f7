package scholarship

import (
	"log/slog"
)

// Event is published after an operation commits.
type Event struct {
	Action     string
	Attributes []Attribute
	// Subject is the student address the operation changed, if any.
	Subject string
	// Student is the record of Subject after the operation.
	Student *Student
}

// Emitter receives committed events. Emit must not block.
type Emitter interface {
	Emit(Event)
}

// NopEmitter discards every event.
type NopEmitter struct{}

func (NopEmitter) Emit(Event) {}

// LogEmitter writes every event to a structured logger.
type LogEmitter struct {
	Logger *slog.Logger
}

func (l LogEmitter) Emit(ev Event) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	args := make([]any, 0, len(ev.Attributes))
	for _, attr := range ev.Attributes {
		args = append(args, slog.String(attr.Key, attr.Value))
	}
	logger.Info("scholarship event", slog.Group("attributes", args...))
}

// MultiEmitter fans an event out to every emitter in order.
type MultiEmitter []Emitter

func (m MultiEmitter) Emit(ev Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(ev)
		}
	}
}
