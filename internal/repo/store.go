package repo

import (
	"context"
	"errors"

	"numium/internal/model"
)

var (
	ErrNotFound    = errors.New("account not found")
	ErrWriteFailed = errors.New("account write failed")
	// ErrConflict means a balance changed after it was read; nothing was written.
	ErrConflict = errors.New("account changed concurrently")
)

// AccountStore is the keyed balance persistence the transfer engine works against.
// Put must be durable before it returns nil; on error the previous record stays visible.
type AccountStore interface {
	Exists(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (model.Account, error)
	Put(ctx context.Context, account model.Account) error
}

// Change rewrites one account from the balance in Before to the balance in After.
type Change struct {
	Before model.Account
	After  model.Account
}

// Transactor is implemented by stores that can persist several records as one atomic unit.
// PutAll applies every change only if each stored balance still equals its Before balance, and
// returns ErrConflict otherwise. This keeps processes that do not share a lock from overwriting
// each other.
type Transactor interface {
	PutAll(ctx context.Context, changes ...Change) error
}
