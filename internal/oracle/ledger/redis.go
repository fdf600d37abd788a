package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"veil/internal/fhe"
	"veil/internal/oracle"
	"veil/pkg/domain"
	"veil/pkg/platform/sentinel"
)

const redisKeyPrefix = "veil:oracle:request:"

type redisRequest struct {
	ID          string    `json:"id"`
	Target      uint64    `json:"target"`
	Kind        string    `json:"kind"`
	Ciphertexts [][]byte  `json:"ciphertexts"`
	IssuedAt    time.Time `json:"issued_at"`
}

// RedisLedger persists outstanding requests in Redis so the single-resolution
// guarantee holds across service replicas. Resolve relies on GETDEL being
// atomic: exactly one concurrent caller receives the value.
type RedisLedger struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

func (l *RedisLedger) Issue(ctx context.Context, ciphertexts []fhe.Ciphertext, kind oracle.RequestKind, target domain.RecordID) (domain.RequestID, error) {
	id := domain.NewRequestID()

	cts := make([][]byte, len(ciphertexts))
	for i, ct := range ciphertexts {
		cts[i] = ct.Clone()
	}
	payload, err := json.Marshal(redisRequest{
		ID:          id.String(),
		Target:      uint64(target),
		Kind:        string(kind),
		Ciphertexts: cts,
		IssuedAt:    time.Now(),
	})
	if err != nil {
		return domain.RequestID{}, fmt.Errorf("marshal oracle request: %w", err)
	}

	// No TTL: the ledger never expires entries. SetNX detects an id
	// collision with a live request.
	ok, err := l.client.SetNX(ctx, redisKeyPrefix+id.String(), payload, 0).Result()
	if err != nil {
		return domain.RequestID{}, fmt.Errorf("store oracle request: %w", err)
	}
	if !ok {
		return domain.RequestID{}, fmt.Errorf("request id collision: %w", sentinel.ErrExhausted)
	}
	return id, nil
}

func (l *RedisLedger) Resolve(ctx context.Context, id domain.RequestID) (oracle.Request, error) {
	raw, err := l.client.GetDel(ctx, redisKeyPrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return oracle.Request{}, fmt.Errorf("request %s: %w", id, sentinel.ErrNotFound)
		}
		return oracle.Request{}, fmt.Errorf("consume oracle request: %w", err)
	}

	var stored redisRequest
	if err := json.Unmarshal(raw, &stored); err != nil {
		return oracle.Request{}, fmt.Errorf("unmarshal oracle request: %w", err)
	}
	cts := make([]fhe.Ciphertext, len(stored.Ciphertexts))
	for i, ct := range stored.Ciphertexts {
		cts[i] = ct
	}
	return oracle.Request{
		ID:          id,
		Target:      domain.RecordID(stored.Target),
		Kind:        oracle.RequestKind(stored.Kind),
		Ciphertexts: cts,
		IssuedAt:    stored.IssuedAt,
	}, nil
}
