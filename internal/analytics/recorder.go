package analytics

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/machinesoul11/yg-backend-sub016/internal/search"
)

// DefaultBufferSize is the default capacity of the recorder's event
// channel. When the buffer is full, new events are dropped rather than
// blocking the search response.
const DefaultBufferSize = 256

// writeTimeout bounds a single sink write so a stuck sink cannot wedge
// the worker.
const writeTimeout = 5 * time.Second

// Recorder buffers search analytics events and persists them in the
// background. Recording is fire-and-forget relative to the search
// response: a full buffer or failing sink never delays or fails a
// search. The worker runs on its own context, decoupled from request
// cancellation.
type Recorder struct {
	sink    Sink
	events  chan *Event
	logger  *slog.Logger
	metrics *RecorderMetrics

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewRecorder creates and starts a Recorder writing to sink.
// bufferSize <= 0 selects DefaultBufferSize.
func NewRecorder(sink Sink, bufferSize int, metrics *RecorderMetrics, logger *slog.Logger) *Recorder {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		sink:    sink,
		events:  make(chan *Event, bufferSize),
		logger:  logger,
		metrics: metrics,
		done:    make(chan struct{}),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Record enqueues a search outcome and returns the event id
// immediately. The id is valid for AttachClick once the event is
// persisted; if the buffer is full the event is dropped and counted.
func (r *Recorder) Record(q search.Query, resultCount int, duration time.Duration, perm search.PermissionContext) string {
	event := &Event{
		ID:          uuid.New().String(),
		Query:       q.Text,
		Kinds:       append([]search.EntityKind(nil), q.Kinds...),
		Filters:     q.Filters,
		ResultCount: resultCount,
		DurationMs:  duration.Milliseconds(),
		CallerID:    perm.CallerID,
		SessionID:   perm.SessionID,
		CreatedAt:   time.Now().UTC(),
	}

	select {
	case r.events <- event:
	default:
		r.metrics.dropped()
		r.logger.Warn("analytics buffer full, dropping search event",
			"event_id", event.ID,
			"query", event.Query)
	}
	return event.ID
}

// attachRetryDelay is how long AttachClick waits before its one retry
// when the event is not found, covering the window between Record
// returning an id and the worker persisting the event.
const attachRetryDelay = 100 * time.Millisecond

// AttachClick attaches click-through feedback to a previously recorded
// event. Safe to call multiple times for the same event; last write
// wins. Unknown event ids return ErrEventNotFound.
//
// A not-found result is retried once after a short delay: events persist
// asynchronously, so a click arriving right behind its search can beat
// the write. An id whose event was dropped on buffer overflow stays
// unattachable.
func (r *Recorder) AttachClick(ctx context.Context, eventID, resultID string, position int, kind search.EntityKind) error {
	click := Click{
		ResultID:  resultID,
		Position:  position,
		Kind:      kind,
		ClickedAt: time.Now().UTC(),
	}
	err := r.sink.AttachClick(ctx, eventID, click)
	if !errors.Is(err, ErrEventNotFound) {
		return err
	}
	select {
	case <-ctx.Done():
		return err
	case <-time.After(attachRetryDelay):
	}
	return r.sink.AttachClick(ctx, eventID, click)
}

// run drains the event channel until Close. Writes use a background
// context so a canceled search request cannot abort its analytics write.
func (r *Recorder) run() {
	defer r.wg.Done()
	for {
		select {
		case event := <-r.events:
			r.persist(event)
		case <-r.done:
			// Drain whatever is still buffered before exiting.
			for {
				select {
				case event := <-r.events:
					r.persist(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) persist(event *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.sink.Insert(ctx, event); err != nil {
		r.metrics.writeError()
		r.logger.Error("failed to persist search event",
			"event_id", event.ID,
			"error", err)
	}
}

// Close stops the worker after draining buffered events. Record calls
// after Close drop their events.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
	})
	r.wg.Wait()
}
