// Package ledger maps outstanding oracle request ids to their decryption
// targets. It is the continuation table of the async oracle protocol: a
// request id is the only thing that ties the eventual callback back to the
// record it must resolve, and each id resolves exactly once.
package ledger

import (
	"context"

	"veil/internal/fhe"
	"veil/internal/oracle"
	"veil/pkg/domain"
)

// Ledger implementations return sentinel errors:
// sentinel.ErrNotFound from Resolve for ids never issued or already
// consumed, sentinel.ErrExhausted from Issue on id-space exhaustion.
type Ledger interface {
	// Issue allocates an unpredictable request id and records the mapping.
	// The ordered ciphertext list is retained for proof binding. Entries
	// never expire; an unanswered request stays open forever.
	Issue(ctx context.Context, ciphertexts []fhe.Ciphertext, kind oracle.RequestKind, target domain.RecordID) (domain.RequestID, error)
	// Resolve atomically consumes the request and returns it. Exactly one
	// caller wins across any number of concurrent or duplicate invocations;
	// the rest get sentinel.ErrNotFound.
	Resolve(ctx context.Context, id domain.RequestID) (oracle.Request, error)
}
