package contracts

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultJournalCap = 256

// Journal is a bounded in-memory event log. It stands in for a durable
// outbox: the app is single-process and keeps no state across restarts,
// so events only need to live long enough to be shown and asserted on.
type Journal struct {
	mu     sync.Mutex
	events []Event
	cap    int
}

func NewJournal() *Journal {
	return &Journal{cap: defaultJournalCap}
}

// Record appends an event, stamping its id and creation time. The oldest
// entries are dropped once the journal is full.
func (j *Journal) Record(eventType, orderID string, payload map[string]any) Event {
	ev := Event{
		EventID:   uuid.NewString(),
		OrderID:   orderID,
		CreatedAt: time.Now().UTC(),
		Type:      eventType,
		Payload:   payload,
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, ev)
	if len(j.events) > j.cap {
		j.events = j.events[len(j.events)-j.cap:]
	}
	return ev
}

// Snapshot returns a copy of the recorded events, oldest first.
func (j *Journal) Snapshot() []Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Event, len(j.events))
	copy(out, j.events)
	return out
}

// Last returns up to n of the most recent events, oldest first.
func (j *Journal) Last(n int) []Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	if n > len(j.events) {
		n = len(j.events)
	}
	out := make([]Event, n)
	copy(out, j.events[len(j.events)-n:])
	return out
}
