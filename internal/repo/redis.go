package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"numium/config"
	"numium/internal/model"
)

func NewRedisClient(config *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Redis.RedisAddr,
		Password: config.Redis.Password,
		DB:       config.Redis.Db,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", config.Redis.RedisAddr, err)
	}
	return rdb, nil
}

// RedisStore keeps each balance as a decimal string under account:<id>.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func buildAccountKey(id string) string {
	return "account:" + id
}

func (s *RedisStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.rdb.Exists(ctx, buildAccountKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("check account %s: %w", id, err)
	}
	return n > 0, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (model.Account, error) {
	val, err := s.rdb.Get(ctx, buildAccountKey(id)).Result()
	if err == redis.Nil {
		return model.Account{}, ErrNotFound
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("get account %s: %w", id, err)
	}
	balance, err := decimal.NewFromString(val)
	if err != nil {
		return model.Account{}, fmt.Errorf("decode account %s: %w", id, err)
	}
	return model.Account{ID: id, Balance: balance}, nil
}

func (s *RedisStore) Put(ctx context.Context, account model.Account) error {
	if err := s.rdb.Set(ctx, buildAccountKey(account.ID), account.Balance.String(), 0).Err(); err != nil {
		return fmt.Errorf("%w: put account %s: %v", ErrWriteFailed, account.ID, err)
	}
	return nil
}

// PutAll watches every key, checks the stored balances against the Before values and writes
// the new balances in one MULTI/EXEC block. A key modified in between fails EXEC with ErrConflict.
func (s *RedisStore) PutAll(ctx context.Context, changes ...Change) error {
	keys := make([]string, 0, len(changes))
	for _, c := range changes {
		keys = append(keys, buildAccountKey(c.After.ID))
	}

	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		for _, c := range changes {
			val, err := tx.Get(ctx, buildAccountKey(c.Before.ID)).Result()
			if err == redis.Nil {
				return fmt.Errorf("%w: %s", ErrConflict, c.Before.ID)
			}
			if err != nil {
				return fmt.Errorf("%w: get account %s: %v", ErrWriteFailed, c.Before.ID, err)
			}
			current, err := decimal.NewFromString(val)
			if err != nil || !current.Equal(c.Before.Balance) {
				return fmt.Errorf("%w: %s", ErrConflict, c.Before.ID)
			}
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, c := range changes {
				pipe.Set(ctx, buildAccountKey(c.After.ID), c.After.Balance.String(), 0)
			}
			return nil
		})
		return err
	}, keys...)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, ErrConflict), errors.Is(err, ErrWriteFailed):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
}
