package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"numium/internal/model"
	"numium/internal/repo"
)

type ledgerFixture struct {
	store      *repo.MemoryStore
	sink       *memorySink
	events     *recordingPublisher
	signatures *recordingSignatures
	ledger     *Ledger
}

func newLedgerFixture(accounts ...model.Account) *ledgerFixture {
	f := &ledgerFixture{
		store:      repo.NewMemoryStore(accounts...),
		sink:       &memorySink{},
		events:     &recordingPublisher{},
		signatures: &recordingSignatures{},
	}
	f.ledger = NewLedger(NewMarkerPolicy(DefaultMarker), newEngine(f.store), f.sink, f.signatures, f.events, zap.NewNop())
	return f
}

func TestLedger_SubmitCommitted(t *testing.T) {
	f := newLedgerFixture(account("alice", "100"), account("bob", "50"))

	result, err := f.ledger.Submit(context.Background(), model.TransferRequest{
		Sender: "alice", Recipient: "bob", Amount: dec("30"), Message: "*// rent",
	})
	require.NoError(t, err)
	require.True(t, result.Committed)
	requireBalance(t, f.store, "alice", "70")
	requireBalance(t, f.store, "bob", "80")

	require.Empty(t, f.sink.all())
	require.Equal(t, []string{"alice"}, f.signatures.principals)
	require.Len(t, f.events.events, 1)
	ev := f.events.events[0]
	require.NotEmpty(t, ev.ID)
	require.Equal(t, ev.ID, result.TransferID)
	require.Equal(t, "alice", ev.Principal)
	require.True(t, dec("70").Equal(ev.SenderBalanceAfter))
	require.True(t, dec("80").Equal(ev.RecipientBalanceAfter))
}

func TestLedger_MessageWithoutMarkerTouchesNothing(t *testing.T) {
	f := newLedgerFixture(account("alice", "100"), account("bob", "50"))
	before := f.store.Snapshot()

	result, err := f.ledger.Submit(context.Background(), model.TransferRequest{
		ID: "t-1", Sender: "alice", Recipient: "bob", Amount: dec("30"), Message: "rent",
	})
	require.ErrorIs(t, err, model.ErrUnauthorized)
	require.Equal(t, model.ReasonInvalidAuthorization, result.Reason)
	require.Equal(t, "t-1", result.TransferID)
	require.Equal(t, before, f.store.Snapshot())
	require.Empty(t, f.events.events)
	require.Empty(t, f.signatures.principals)

	recs := f.sink.all()
	require.Len(t, recs, 1)
	require.Equal(t, model.StageAuthorize, recs[0].Stage)
	require.Equal(t, model.ReasonInvalidAuthorization, recs[0].Reason)
	require.Equal(t, "t-1", recs[0].TransferID)
	require.False(t, recs[0].Timestamp.IsZero())
}

func TestLedger_InvalidRequest(t *testing.T) {
	f := newLedgerFixture(account("alice", "100"))

	result, err := f.ledger.Submit(context.Background(), model.TransferRequest{
		Sender: "alice", Recipient: "", Amount: dec("1"), Message: "*// x",
	})
	require.ErrorIs(t, err, model.ErrInvalidRequest)
	require.Equal(t, model.ReasonInvalidRequest, result.Reason)
	require.Equal(t, model.StageParse, f.sink.all()[0].Stage)
}

func TestLedger_BlankSenderIsMissingPrincipal(t *testing.T) {
	f := newLedgerFixture(account("bob", "50"))

	result, err := f.ledger.Submit(context.Background(), model.TransferRequest{
		Sender: "  ", Recipient: "bob", Amount: dec("1"), Message: "*// x",
	})
	require.ErrorIs(t, err, model.ErrUnauthorized)
	require.Equal(t, model.ReasonMissingPrincipal, result.Reason)

	recs := f.sink.all()
	require.Len(t, recs, 1)
	require.Equal(t, model.StageAuthorize, recs[0].Stage)
	require.Equal(t, model.ReasonMissingPrincipal, recs[0].Reason)
	requireBalance(t, f.store, "bob", "50")
}

func TestLedger_TransferFailureRecorded(t *testing.T) {
	f := newLedgerFixture(account("alice", "10"), account("bob", "50"))

	result, err := f.ledger.Submit(context.Background(), model.TransferRequest{
		Sender: "alice", Recipient: "bob", Amount: dec("30"), Message: "*// rent",
	})
	require.ErrorIs(t, err, model.ErrInsufficientBalance)
	require.Equal(t, model.ReasonInsufficientBalance, result.Reason)
	requireBalance(t, f.store, "alice", "10")
	requireBalance(t, f.store, "bob", "50")

	recs := f.sink.all()
	require.Len(t, recs, 1)
	require.Equal(t, model.StageTransfer, recs[0].Stage)
	require.Equal(t, model.ReasonInsufficientBalance, recs[0].Reason)
}

func TestLedger_InconsistentStateEscalated(t *testing.T) {
	store := &faultyStore{
		MemoryStore: repo.NewMemoryStore(account("alice", "100"), account("bob", "50")),
		failAt:      map[int]error{2: errDiskFull, 3: errDiskFull},
	}
	sink := &memorySink{}
	ledger := NewLedger(NewMarkerPolicy(DefaultMarker), newEngine(store), sink, nil, nil, zap.NewNop())

	result, err := ledger.Submit(context.Background(), model.TransferRequest{
		Sender: "alice", Recipient: "bob", Amount: dec("30"), Message: "*// rent",
	})
	require.ErrorIs(t, err, model.ErrInconsistentState)
	require.Equal(t, model.ReasonInconsistentState, result.Reason)
	require.Equal(t, model.StageReconcile, sink.all()[0].Stage)
}

func TestLedger_SinkAndPublisherFailuresDoNotPropagate(t *testing.T) {
	f := newLedgerFixture(account("alice", "100"), account("bob", "50"))
	f.sink.err = errors.New("log volume full")
	f.events.err = errors.New("broker down")

	_, err := f.ledger.Submit(context.Background(), model.TransferRequest{
		Sender: "alice", Recipient: "bob", Amount: dec("30"), Message: "rent",
	})
	require.Equal(t, model.ReasonInvalidAuthorization, model.ReasonOf(err))

	result, err := f.ledger.Submit(context.Background(), model.TransferRequest{
		Sender: "alice", Recipient: "bob", Amount: dec("30"), Message: "*// rent",
	})
	require.NoError(t, err)
	require.True(t, result.Committed)
}

func TestLedger_Balance(t *testing.T) {
	f := newLedgerFixture(account("alice", "100"))

	a, err := f.ledger.Balance(context.Background(), "alice")
	require.NoError(t, err)
	require.True(t, dec("100").Equal(a.Balance))

	_, err = f.ledger.Balance(context.Background(), "nobody")
	require.ErrorIs(t, err, model.ErrAccountNotFound)
}
