package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"numium/internal/lock"
	"numium/internal/model"
	"numium/internal/repo"
)

var errDiskFull = errors.New("disk full")

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func account(id, balance string) model.Account {
	return model.Account{ID: id, Balance: dec(balance)}
}

func authorized(principal string) model.AuthorizationOutcome {
	return model.Authorized(principal, "")
}

func newEngine(store repo.AccountStore) *TransferService {
	return NewTransferService(store, lock.NewLocalLocker(time.Second), zap.NewNop())
}

func requireBalance(t *testing.T, store repo.AccountStore, id, want string) {
	t.Helper()
	a, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	require.True(t, dec(want).Equal(a.Balance), "account %s: want %s, got %s", id, want, a.Balance)
}

func total(t *testing.T, store *repo.MemoryStore) decimal.Decimal {
	t.Helper()
	sum := decimal.Zero
	for _, a := range store.Snapshot() {
		sum = sum.Add(a.Balance)
	}
	return sum
}

// faultyStore fails the Nth Put call (1-based) with the mapped error.
type faultyStore struct {
	*repo.MemoryStore
	mu     sync.Mutex
	puts   int
	failAt map[int]error
}

func (s *faultyStore) Put(ctx context.Context, a model.Account) error {
	s.mu.Lock()
	s.puts++
	err := s.failAt[s.puts]
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryStore.Put(ctx, a)
}

// txStore applies PutAll atomically with the compare-and-set rule and can be told to fail it.
// interfere runs before the comparison, standing in for a writer outside this process.
type txStore struct {
	*repo.MemoryStore
	fail      error
	interfere func()
	putAll    int
}

func (s *txStore) PutAll(ctx context.Context, changes ...repo.Change) error {
	s.putAll++
	if s.fail != nil {
		return s.fail
	}
	if s.interfere != nil {
		s.interfere()
	}
	for _, c := range changes {
		current, err := s.MemoryStore.Get(ctx, c.Before.ID)
		if err != nil || !current.Balance.Equal(c.Before.Balance) {
			return repo.ErrConflict
		}
	}
	for _, c := range changes {
		if err := s.MemoryStore.Put(ctx, c.After); err != nil {
			return err
		}
	}
	return nil
}

// unreadableStore fails every Exists call.
type unreadableStore struct {
	*repo.MemoryStore
}

func (unreadableStore) Exists(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

type memorySink struct {
	mu      sync.Mutex
	records []model.FailureRecord
	err     error
}

func (s *memorySink) Record(_ context.Context, rec model.FailureRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return s.err
}

func (s *memorySink) all() []model.FailureRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.FailureRecord(nil), s.records...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.TransferEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e model.TransferEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

type recordingSignatures struct {
	mu         sync.Mutex
	principals []string
}

func (r *recordingSignatures) RecordSignature(_ context.Context, outcome model.AuthorizationOutcome, _ model.TransferRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.principals = append(r.principals, outcome.Principal)
	return nil
}
