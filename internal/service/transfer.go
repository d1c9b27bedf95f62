package service

import (
	"context"
	"errors"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"numium/internal/lock"
	"numium/internal/model"
	"numium/internal/repo"
)

// TransferService is the only writer of account balances. Every committed transfer debits the
// sender and credits the recipient by the same amount, or leaves both untouched.
type TransferService struct {
	store  repo.AccountStore
	locker lock.Locker
	log    *zap.Logger
}

func NewTransferService(store repo.AccountStore, locker lock.Locker, log *zap.Logger) *TransferService {
	return &TransferService{store: store, locker: locker, log: log}
}

func (s *TransferService) fail(reason model.Reason, cause error) (model.TransferResult, error) {
	return model.Failed(reason), model.NewTransferError(reason, cause)
}

func (s *TransferService) Transfer(ctx context.Context, req model.TransferRequest, auth model.AuthorizationOutcome) (model.TransferResult, error) {
	if !auth.Authorized {
		return s.fail(model.ReasonUnauthorized, nil)
	}

	for _, id := range []string{req.Sender, req.Recipient} {
		ok, err := s.store.Exists(ctx, id)
		if err != nil {
			return s.fail(model.ReasonStoreUnavailable, err)
		}
		if !ok {
			return s.fail(model.ReasonAccountNotFound, nil)
		}
	}

	if !req.Amount.IsPositive() {
		return s.fail(model.ReasonInvalidAmount, nil)
	}

	if req.Sender == req.Recipient {
		return s.fail(model.ReasonSelfTransfer, nil)
	}

	release, err := s.locker.Lock(ctx, req.Sender, req.Recipient)
	if err != nil {
		return s.fail(model.ReasonLockTimeout, err)
	}
	defer release()

	sender, err := s.get(ctx, req.Sender)
	if err != nil {
		return model.Failed(model.ReasonOf(err)), err
	}
	recipient, err := s.get(ctx, req.Recipient)
	if err != nil {
		return model.Failed(model.ReasonOf(err)), err
	}

	if sender.Balance.LessThan(req.Amount) {
		return s.fail(model.ReasonInsufficientBalance, nil)
	}

	senderAfter := model.Account{ID: sender.ID, Balance: sender.Balance.Sub(req.Amount)}
	recipientAfter := model.Account{ID: recipient.ID, Balance: recipient.Balance.Add(req.Amount)}

	// Past this point the transfer runs to completion even if the caller gives up.
	commitCtx := context.WithoutCancel(ctx)
	if err := s.commit(commitCtx, sender, recipient, senderAfter, recipientAfter); err != nil {
		reason := model.ReasonOf(err)
		if reason == model.ReasonInconsistentState {
			s.log.Error("transfer left ledger inconsistent, manual reconciliation required",
				zap.String("transfer_id", req.ID),
				zap.String("sender", req.Sender),
				zap.String("recipient", req.Recipient),
				zap.String("amount", req.Amount.String()),
				zap.String("sender_balance_before", sender.Balance.String()),
				zap.String("recipient_balance_before", recipient.Balance.String()),
				zap.Error(err))
		} else {
			s.log.Warn("transfer write failed", zap.String("transfer_id", req.ID),
				zap.Bool("conflict", errors.Is(err, repo.ErrConflict)), zap.Error(err))
		}
		return model.Failed(reason), err
	}

	s.log.Info("transfer committed",
		zap.String("transfer_id", req.ID),
		zap.String("sender", req.Sender),
		zap.String("recipient", req.Recipient),
		zap.String("amount", req.Amount.String()))
	return model.Committed(senderAfter.Balance, recipientAfter.Balance), nil
}

func (s *TransferService) get(ctx context.Context, id string) (model.Account, error) {
	a, err := s.store.Get(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Account{}, model.NewTransferError(model.ReasonAccountNotFound, err)
	}
	if err != nil {
		return model.Account{}, model.NewTransferError(model.ReasonStoreUnavailable, err)
	}
	return a, nil
}

// commit persists both sides. Stores that implement repo.Transactor get a single atomic write that
// is refused if either balance moved since it was read; otherwise the debit is written first and
// undone if the credit fails.
func (s *TransferService) commit(ctx context.Context, senderBefore, recipientBefore, senderAfter, recipientAfter model.Account) error {
	if tx, ok := s.store.(repo.Transactor); ok {
		err := tx.PutAll(ctx,
			repo.Change{Before: senderBefore, After: senderAfter},
			repo.Change{Before: recipientBefore, After: recipientAfter},
		)
		if err != nil {
			return model.NewTransferError(model.ReasonWriteFailed, err)
		}
		return nil
	}

	if err := s.store.Put(ctx, senderAfter); err != nil {
		return model.NewTransferError(model.ReasonWriteFailed, err)
	}

	writeErr := s.store.Put(ctx, recipientAfter)
	if writeErr == nil {
		return nil
	}

	if rollbackErr := s.store.Put(ctx, senderBefore); rollbackErr != nil {
		return model.NewTransferError(model.ReasonInconsistentState, multierr.Combine(writeErr, rollbackErr))
	}
	return model.NewTransferError(model.ReasonWriteFailed, writeErr)
}

// Balance reads an account without locking it.
func (s *TransferService) Balance(ctx context.Context, id string) (model.Account, error) {
	return s.get(ctx, id)
}
