package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"veil/internal/fhe"
	"veil/internal/oracle"
	"veil/pkg/domain"
	"veil/pkg/platform/sentinel"
)

// InMemoryLedger keeps outstanding requests in process memory. Consumed ids
// are remembered so a random id collision with a retired request is detected
// as exhaustion rather than silently reopening it.
type InMemoryLedger struct {
	mu       sync.Mutex
	open     map[domain.RequestID]oracle.Request
	consumed map[domain.RequestID]struct{}
}

func NewInMemory() *InMemoryLedger {
	return &InMemoryLedger{
		open:     make(map[domain.RequestID]oracle.Request),
		consumed: make(map[domain.RequestID]struct{}),
	}
}

func (l *InMemoryLedger) Issue(_ context.Context, ciphertexts []fhe.Ciphertext, kind oracle.RequestKind, target domain.RecordID) (domain.RequestID, error) {
	id := domain.NewRequestID()

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, live := l.open[id]; live {
		return domain.RequestID{}, fmt.Errorf("request id collision: %w", sentinel.ErrExhausted)
	}
	if _, used := l.consumed[id]; used {
		return domain.RequestID{}, fmt.Errorf("request id collision: %w", sentinel.ErrExhausted)
	}

	cts := make([]fhe.Ciphertext, len(ciphertexts))
	for i, ct := range ciphertexts {
		cts[i] = ct.Clone()
	}
	l.open[id] = oracle.Request{
		ID:          id,
		Target:      target,
		Kind:        kind,
		Ciphertexts: cts,
		IssuedAt:    time.Now(),
	}
	return id, nil
}

func (l *InMemoryLedger) Resolve(_ context.Context, id domain.RequestID) (oracle.Request, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	req, ok := l.open[id]
	if !ok {
		return oracle.Request{}, fmt.Errorf("request %s: %w", id, sentinel.ErrNotFound)
	}
	delete(l.open, id)
	l.consumed[id] = struct{}{}
	return req, nil
}

// OpenCount reports how many requests are outstanding.
func (l *InMemoryLedger) OpenCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.open)
}
