package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"numium/internal/model"
	"numium/internal/utils"
)

// FailureSink receives rejection and error records. A failing sink never fails the request.
type FailureSink interface {
	Record(ctx context.Context, rec model.FailureRecord) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event model.TransferEvent) error
}

// SignatureRecorder keeps the accepted authorization message for a principal.
type SignatureRecorder interface {
	RecordSignature(ctx context.Context, outcome model.AuthorizationOutcome, req model.TransferRequest) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.TransferEvent) error { return nil }

// Ledger runs a request through the authorization gate and the transfer engine, and reports the
// outcome to the failure sink, signature recorder and event publisher.
type Ledger struct {
	policy     AuthorizationPolicy
	engine     *TransferService
	sink       FailureSink
	signatures SignatureRecorder
	events     EventPublisher
	log        *zap.Logger
	now        func() time.Time
}

func NewLedger(policy AuthorizationPolicy, engine *TransferService, sink FailureSink, signatures SignatureRecorder, events EventPublisher, log *zap.Logger) *Ledger {
	if events == nil {
		events = NopPublisher{}
	}
	return &Ledger{
		policy:     policy,
		engine:     engine,
		sink:       sink,
		signatures: signatures,
		events:     events,
		log:        log,
		now:        time.Now,
	}
}

func (l *Ledger) Submit(ctx context.Context, req model.TransferRequest) (result model.TransferResult, err error) {
	if req.ID == "" {
		req.ID = utils.NewTransferID()
	}
	defer func() { result.TransferID = req.ID }()
	log := l.log.With(zap.String("transfer_id", req.ID))

	// The gate runs first so a blank sender is reported as a missing principal.
	outcome := l.policy.Authorize(req.Message, req.Sender)
	if !outcome.Authorized {
		log.Info("transfer rejected", zap.String("stage", string(model.StageAuthorize)), zap.String("reason", string(outcome.Reason)))
		l.record(ctx, model.StageAuthorize, outcome.Reason, req.ID, "")
		return model.Failed(outcome.Reason), model.NewTransferError(outcome.Reason, model.ErrUnauthorized)
	}

	if err := utils.ValidateRequest(req); err != nil {
		l.record(ctx, model.StageParse, model.ReasonInvalidRequest, req.ID, err.Error())
		return model.Failed(model.ReasonInvalidRequest), model.NewTransferError(model.ReasonInvalidRequest, err)
	}

	result, err = l.engine.Transfer(ctx, req, outcome)
	if err != nil {
		stage := model.StageTransfer
		if result.Reason == model.ReasonInconsistentState {
			stage = model.StageReconcile
		}
		l.record(ctx, stage, result.Reason, req.ID, err.Error())
		return result, err
	}

	if l.signatures != nil {
		if err := l.signatures.RecordSignature(ctx, outcome, req); err != nil {
			log.Warn("failed to record signature", zap.String("principal", outcome.Principal), zap.Error(err))
		}
	}

	event := model.TransferEvent{
		ID:                    req.ID,
		Sender:                req.Sender,
		Recipient:             req.Recipient,
		Amount:                req.Amount,
		Principal:             outcome.Principal,
		SenderBalanceAfter:    result.SenderBalanceAfter,
		RecipientBalanceAfter: result.RecipientBalanceAfter,
		CommittedAt:           l.now().UTC(),
	}
	if err := l.events.Publish(ctx, event); err != nil {
		log.Warn("failed to publish transfer event", zap.Error(err))
	}

	return result, nil
}

// RecordParseFailure reports a request that could not be decoded.
func (l *Ledger) RecordParseFailure(ctx context.Context, err error) {
	l.log.Info("transfer request rejected", zap.String("stage", string(model.StageParse)), zap.Error(err))
	l.record(ctx, model.StageParse, model.ReasonInvalidRequest, "", err.Error())
}

func (l *Ledger) Balance(ctx context.Context, id string) (model.Account, error) {
	return l.engine.Balance(ctx, id)
}

func (l *Ledger) record(ctx context.Context, stage model.Stage, reason model.Reason, transferID, detail string) {
	if l.sink == nil {
		return
	}
	rec := model.FailureRecord{
		Timestamp:  l.now().UTC(),
		Stage:      stage,
		Reason:     reason,
		TransferID: transferID,
		Detail:     detail,
	}
	if err := l.sink.Record(context.WithoutCancel(ctx), rec); err != nil {
		l.log.Warn("failed to write failure record",
			zap.String("stage", string(stage)), zap.String("reason", string(reason)), zap.Error(err))
	}
}
