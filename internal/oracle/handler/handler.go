// Package handler is the decryption protocol handler: the single entry point
// for oracle callbacks and the only code path allowed to transition
// revealed/plainScore state.
package handler

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"veil/internal/oracle"
	"veil/internal/oracle/ledger"
	"veil/internal/platform/metrics"
	"veil/internal/record"
	"veil/internal/simulation"
	"veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
	"veil/pkg/platform/sentinel"
)

// CallbackResult reports what a verified callback resolved. For
// goal-comparison callbacks the boolean rides here (and in the completion
// event); it is never persisted.
type CallbackResult struct {
	Target      domain.RecordID
	Kind        oracle.RequestKind
	GoalReached *bool
}

// Handler wires the ledger, the proof verifier and the two services that own
// reveal state.
type Handler struct {
	ledger      ledger.Ledger
	verifier    oracle.ProofVerifier
	records     *record.Service
	simulations *simulation.Service
	metrics     *metrics.Metrics
	logger      *slog.Logger
	tracer      trace.Tracer
}

func New(
	requestLedger ledger.Ledger,
	verifier oracle.ProofVerifier,
	records *record.Service,
	simulations *simulation.Service,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		ledger:      requestLedger,
		verifier:    verifier,
		records:     records,
		simulations: simulations,
		metrics:     m,
		logger:      logger,
		tracer:      otel.Tracer("veil/oracle/handler"),
	}
}

// OnOracleCallback processes one oracle callback:
//
//  1. Atomically consume the request from the ledger. An id that was never
//     issued or is already consumed fails with UnknownRequest; duplicates and
//     replays die here.
//  2. Verify the proof against the cleartexts and the original ciphertexts.
//     InvalidProof commits nothing; the request stays permanently unresolved
//     and re-requesting is the caller's recovery path.
//  3. Decode the cleartexts per request kind.
//  4. Dispatch to the owning service, which performs the one-time commit and
//     emits the completion event.
func (h *Handler) OnOracleCallback(ctx context.Context, requestID domain.RequestID, cleartexts []uint32, proof []byte) (CallbackResult, error) {
	ctx, span := h.tracer.Start(ctx, "oracle.callback",
		trace.WithAttributes(attribute.String("oracle.request_id", requestID.String())))
	defer span.End()

	request, err := h.ledger.Resolve(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			h.metrics.CallbacksRejected.WithLabelValues("unknown_request").Inc()
			h.logger.WarnContext(ctx, "callback for unknown or consumed request",
				"oracle_request_id", requestID.String(),
			)
			return CallbackResult{}, dErrors.Wrap(dErrors.CodeUnknownRequest, "request was never issued or is already resolved", err)
		}
		h.metrics.CallbacksRejected.WithLabelValues("ledger_failure").Inc()
		return CallbackResult{}, dErrors.Wrap(dErrors.CodeInternal, "ledger resolution failure", err)
	}
	span.SetAttributes(
		attribute.String("oracle.kind", string(request.Kind)),
		attribute.String("record.id", request.Target.String()),
	)

	if err := h.verifier.Verify(request, cleartexts, proof); err != nil {
		h.metrics.CallbacksRejected.WithLabelValues("invalid_proof").Inc()
		h.logger.ErrorContext(ctx, "callback proof rejected",
			"oracle_request_id", requestID.String(),
			"record_id", request.Target.String(),
			"error", err.Error(),
		)
		return CallbackResult{}, err
	}

	if len(cleartexts) != request.Kind.ExpectedValues() {
		h.metrics.CallbacksRejected.WithLabelValues("invalid_proof").Inc()
		return CallbackResult{}, dErrors.Newf(dErrors.CodeInvalidProof,
			"expected %d cleartext values for %s, got %d",
			request.Kind.ExpectedValues(), request.Kind, len(cleartexts))
	}

	result := CallbackResult{Target: request.Target, Kind: request.Kind}
	switch request.Kind {
	case oracle.KindRecordFields:
		err = h.records.ApplyFieldDecryption(ctx, request.Target, requestID, record.FieldValues{
			Skill:          cleartexts[0],
			LearningEffort: cleartexts[1],
			Impact:         cleartexts[2],
			Goal:           cleartexts[3],
		})
	case oracle.KindSimulationScore:
		err = h.simulations.ApplyScoreDecryption(ctx, request.Target, requestID, cleartexts[0])
	case oracle.KindGoalComparison:
		reached := cleartexts[0] != 0
		result.GoalReached = &reached
		h.simulations.EmitComparisonResult(ctx, request.Target, requestID, reached)
	default:
		err = dErrors.Newf(dErrors.CodeInternal, "unhandled request kind %q", request.Kind)
	}
	if err != nil {
		h.metrics.CallbacksRejected.WithLabelValues("apply_failed").Inc()
		return CallbackResult{}, err
	}

	h.logger.InfoContext(ctx, "oracle callback applied",
		"oracle_request_id", requestID.String(),
		"record_id", request.Target.String(),
		"kind", string(request.Kind),
	)
	return result, nil
}
