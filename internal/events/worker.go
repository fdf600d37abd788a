package events

import (
	"context"
	"log/slog"
)

// AsyncPublisher decouples emitters from delivery: Emit enqueues into a
// buffered inbox and a Worker drains it into the real publisher, so callback
// handling never waits on broker round trips.
type AsyncPublisher struct {
	inbox chan Event
}

func NewAsyncPublisher(size int) *AsyncPublisher {
	return &AsyncPublisher{inbox: make(chan Event, size)}
}

// Emit enqueues without blocking. A full inbox drops the event; completion
// events are advisory and the read interface stays authoritative.
func (p *AsyncPublisher) Emit(_ context.Context, event Event) error {
	select {
	case p.inbox <- event:
		return nil
	default:
		return ErrInboxFull
	}
}

// Worker drains the inbox into delegate until ctx is cancelled.
type Worker struct {
	source   *AsyncPublisher
	delegate Publisher
	logger   *slog.Logger
}

func NewWorker(source *AsyncPublisher, delegate Publisher, logger *slog.Logger) *Worker {
	return &Worker{source: source, delegate: delegate, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.source.inbox:
			if err := w.delegate.Emit(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "failed to publish completion event",
					"type", string(event.Type),
					"record_id", event.RecordID.String(),
					"error", err.Error(),
				)
			}
		}
	}
}
