package ws

import (
	"context"

	"github.com/zaqqye/scholarship_backend/internal/scholarship"
)

// Hubs fans committed scholarship events out to websocket listeners.
type Hubs struct {
	Audit   *AuditHub
	Student *StudentHub
}

func NewHubs() *Hubs {
	return &Hubs{
		Audit:   NewAuditHub(),
		Student: NewStudentHub(),
	}
}

// Run blocks until ctx is done.
func (h *Hubs) Run(ctx context.Context) {
	go h.Student.Run(ctx)
	h.Audit.Run(ctx)
}

// Emit implements scholarship.Emitter. Every event reaches the audit stream;
// events that changed a student record also reach that student.
func (h *Hubs) Emit(ev scholarship.Event) {
	if h == nil {
		return
	}
	h.Audit.Broadcast(newAuditPayload(ev))
	if ev.Subject != "" && ev.Student != nil {
		h.Student.Notify(ev.Subject, StudentMessage{
			Type:     "status_update",
			Action:   ev.Action,
			Approved: ev.Student.Approved,
			Claimed:  ev.Student.Claimed,
		})
	}
}
