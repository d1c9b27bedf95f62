package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"numium/internal/model"
	"numium/internal/repo"
)

const ackTimeout = 5 * time.Second

// RequestSource streams inbound transfer requests until ctx is done.
type RequestSource interface {
	Receive(ctx context.Context, out chan<- repo.Delivery) error
}

// Dispatcher feeds requests from a source through the ledger with a fixed pool of workers.
type Dispatcher struct {
	ledger  *Ledger
	workers int
	log     *zap.Logger
}

func NewDispatcher(ledger *Ledger, workers int, log *zap.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{ledger: ledger, workers: workers, log: log}
}

// Run blocks until the source stops and every received request has been handled.
func (d *Dispatcher) Run(ctx context.Context, src RequestSource) error {
	deliveries := make(chan repo.Delivery)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(deliveries)
		return src.Receive(gctx, deliveries)
	})
	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			for dl := range deliveries {
				d.handle(gctx, dl)
			}
			return nil
		})
	}
	return g.Wait()
}

func (d *Dispatcher) handle(ctx context.Context, dl repo.Delivery) {
	if dl.Err != nil {
		d.ledger.RecordParseFailure(ctx, dl.Err)
	} else {
		result, err := d.ledger.Submit(ctx, dl.Request)
		switch {
		case result.Reason == model.ReasonInconsistentState:
			d.log.Error("dispatched transfer needs reconciliation", zap.String("transfer_id", dl.Request.ID), zap.Error(err))
		case err != nil:
			d.log.Debug("dispatched transfer failed", zap.String("reason", string(result.Reason)), zap.Error(err))
		}
	}

	if dl.Ack == nil {
		return
	}
	ackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ackTimeout)
	defer cancel()
	if err := dl.Ack(ackCtx); err != nil {
		d.log.Warn("failed to acknowledge request", zap.Error(err))
	}
}
