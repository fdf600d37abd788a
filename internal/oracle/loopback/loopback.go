// Package loopback is the development stand-in for the external decryption
// oracle. It decorates the request ledger: every issued request is answered
// asynchronously with plaintext-marker decryption and a properly signed
// proof, exercising the full callback path without a real oracle.
package loopback

import (
	"context"
	"log/slog"
	"time"

	"veil/internal/fhe"
	"veil/internal/oracle"
	"veil/internal/oracle/ledger"
	"veil/pkg/domain"
)

// CallbackFunc delivers the oracle response into the protocol handler.
type CallbackFunc func(ctx context.Context, requestID domain.RequestID, cleartexts []uint32, proof []byte) error

// Oracle wraps a ledger and answers every request after a short delay.
type Oracle struct {
	inner    ledger.Ledger
	algebra  *fhe.PlaintextAlgebra
	signer   *oracle.JWTProofService
	callback CallbackFunc
	delay    time.Duration
	logger   *slog.Logger
}

func New(inner ledger.Ledger, algebra *fhe.PlaintextAlgebra, signer *oracle.JWTProofService, callback CallbackFunc, logger *slog.Logger) *Oracle {
	return &Oracle{
		inner:    inner,
		algebra:  algebra,
		signer:   signer,
		callback: callback,
		delay:    50 * time.Millisecond,
		logger:   logger,
	}
}

// SetCallback installs the delivery function. Wiring is two-phase because the
// protocol handler needs the ledger and the loopback oracle needs the
// handler.
func (o *Oracle) SetCallback(callback CallbackFunc) {
	o.callback = callback
}

func (o *Oracle) Issue(ctx context.Context, ciphertexts []fhe.Ciphertext, kind oracle.RequestKind, target domain.RecordID) (domain.RequestID, error) {
	id, err := o.inner.Issue(ctx, ciphertexts, kind, target)
	if err != nil {
		return domain.RequestID{}, err
	}

	cts := make([]fhe.Ciphertext, len(ciphertexts))
	for i, ct := range ciphertexts {
		cts[i] = ct.Clone()
	}
	go o.answer(id, cts)
	return id, nil
}

func (o *Oracle) Resolve(ctx context.Context, id domain.RequestID) (oracle.Request, error) {
	return o.inner.Resolve(ctx, id)
}

func (o *Oracle) answer(id domain.RequestID, ciphertexts []fhe.Ciphertext) {
	time.Sleep(o.delay)
	ctx := context.Background()

	cleartexts := make([]uint32, len(ciphertexts))
	for i, ct := range ciphertexts {
		v, err := o.algebra.Decrypt(ct)
		if err != nil {
			o.logger.Error("loopback oracle cannot decrypt handle",
				"oracle_request_id", id.String(),
				"error", err.Error(),
			)
			return
		}
		cleartexts[i] = v
	}

	proof, err := o.signer.Sign(id, cleartexts, ciphertexts)
	if err != nil {
		o.logger.Error("loopback oracle cannot sign proof",
			"oracle_request_id", id.String(),
			"error", err.Error(),
		)
		return
	}

	if o.callback == nil {
		o.logger.Error("loopback oracle has no callback wired",
			"oracle_request_id", id.String(),
		)
		return
	}
	if err := o.callback(ctx, id, cleartexts, proof); err != nil {
		o.logger.Error("loopback oracle callback rejected",
			"oracle_request_id", id.String(),
			"error", err.Error(),
		)
	}
}
