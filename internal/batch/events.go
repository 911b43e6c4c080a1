package batch

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gridline/contract-engine/internal/types"
)

// EventKind names the progress notifications a batch emits.
type EventKind string

// Event kinds, emitted in this order per job; document events arrive in
// completion order, not submission order.
const (
	EventJobStarted        EventKind = "job:started"
	EventDocumentProcessed EventKind = "document:processed"
	EventJobCompleted      EventKind = "job:completed"
)

// Event is one progress notification.
type Event struct {
	Kind       EventKind             `json:"kind"`
	JobID      uuid.UUID             `json:"job_id"`
	DocumentID string                `json:"document_id,omitempty"`
	Outcome    *types.DocumentOutcome `json:"outcome,omitempty"`
	Status     types.BatchStatus     `json:"status,omitempty"`
	At         time.Time             `json:"at"`
}

// broadcaster fans events out to subscribers without ever blocking the
// pipeline. Each subscriber has a bounded buffer; when a buffer is full the
// oldest event is dropped to make room for the newest.
type broadcaster struct {
	mu   sync.Mutex
	subs []chan Event
	size int
}

func newBroadcaster(bufferSize int) *broadcaster {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &broadcaster{size: bufferSize}
}

// subscribe registers a new observer. Subscribe before starting the run or
// early events may be missed.
func (b *broadcaster) subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, b.size)
	b.subs = append(b.subs, ch)
	return ch
}

// emit delivers the event to every subscriber, dropping each subscriber's
// oldest buffered event if its buffer is full.
func (b *broadcaster) emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- event:
			default:
			}
		}
	}
}

// close closes all subscriber channels.
func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
