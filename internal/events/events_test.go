package events

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veil/pkg/domain"
)

func TestMemoryPublisherKeepsHistoryAndFansOut(t *testing.T) {
	p := NewMemoryPublisher()
	sub := p.Subscribe()

	score := uint32(23)
	event := Event{
		Type:      TypeScoreRevealed,
		RecordID:  domain.RecordID(7),
		RequestID: domain.NewRequestID(),
		Score:     &score,
	}
	require.NoError(t, p.Emit(context.Background(), event))

	history := p.History()
	require.Len(t, history, 1)
	assert.Equal(t, TypeScoreRevealed, history[0].Type)
	assert.False(t, history[0].Timestamp.IsZero())

	select {
	case got := <-sub:
		assert.Equal(t, event.RecordID, got.RecordID)
		require.NotNil(t, got.Score)
		assert.Equal(t, uint32(23), *got.Score)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the event")
	}
}

func TestAsyncPublisherReportsFullInbox(t *testing.T) {
	p := NewAsyncPublisher(1)
	ctx := context.Background()

	require.NoError(t, p.Emit(ctx, Event{Type: TypeFieldsRevealed}))
	err := p.Emit(ctx, Event{Type: TypeFieldsRevealed})
	assert.ErrorIs(t, err, ErrInboxFull)
}

func TestWorkerDrainsIntoDelegate(t *testing.T) {
	source := NewAsyncPublisher(8)
	delegate := NewMemoryPublisher()
	worker := NewWorker(source, delegate, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()

	reached := true
	require.NoError(t, source.Emit(ctx, Event{Type: TypeGoalComparisonDecrypted, RecordID: 3, GoalReached: &reached}))
	require.NoError(t, source.Emit(ctx, Event{Type: TypeFieldsRevealed, RecordID: 4}))

	require.Eventually(t, func() bool {
		return len(delegate.History()) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done

	history := delegate.History()
	assert.Equal(t, TypeGoalComparisonDecrypted, history[0].Type)
	assert.Equal(t, TypeFieldsRevealed, history[1].Type)
}
