package cmd

import (
	"context"
	"database/sql"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"numium/config"
	"numium/internal/repo"
)

// Clients opens backend connections on first use, so a process only dials what its
// configuration selects, and closes them when the fx app stops.
type Clients struct {
	config *config.Config
	log    *zap.Logger

	mu     sync.Mutex
	db     *sql.DB
	redis  *redis.Client
	pubsub *repo.PubSub
	kafka  *repo.KafkaPublisher
}

func NewClients(lc fx.Lifecycle, config *config.Config, log *zap.Logger) *Clients {
	c := &Clients{config: config, log: log}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return c.Close()
		},
	})
	return c
}

func (c *Clients) Postgres() (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		db, err := repo.NewPostgresDB(c.config)
		if err != nil {
			return nil, err
		}
		c.db = db
	}
	return c.db, nil
}

func (c *Clients) SQLite() (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		db, err := repo.NewSQLiteDB(c.config)
		if err != nil {
			return nil, err
		}
		c.db = db
	}
	return c.db, nil
}

func (c *Clients) Redis() (*redis.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.redis == nil {
		rdb, err := repo.NewRedisClient(c.config)
		if err != nil {
			return nil, err
		}
		c.redis = rdb
	}
	return c.redis, nil
}

func (c *Clients) PubSub() (*repo.PubSub, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pubsub == nil {
		ps, err := repo.NewPubSubClient(c.config, c.log)
		if err != nil {
			return nil, err
		}
		c.pubsub = ps
	}
	return c.pubsub, nil
}

func (c *Clients) Kafka() *repo.KafkaPublisher {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kafka == nil {
		c.kafka = repo.NewKafkaPublisher(c.config, c.log)
	}
	return c.kafka
}

func (c *Clients) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	if c.kafka != nil {
		err = multierr.Append(err, c.kafka.Close())
	}
	if c.pubsub != nil {
		err = multierr.Append(err, c.pubsub.Close())
	}
	if c.redis != nil {
		err = multierr.Append(err, c.redis.Close())
	}
	if c.db != nil {
		err = multierr.Append(err, c.db.Close())
	}
	return err
}
