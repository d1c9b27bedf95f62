package cmd

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"numium/config"
	"numium/internal/lock"
	"numium/internal/logging"
	"numium/internal/repo"
	"numium/internal/service"
	"numium/internal/utils"
)

// ledgerModule provides everything needed to submit transfers against the configured backends.
func ledgerModule() fx.Option {
	return fx.Options(
		fx.Provide(
			config.LoadConfig,
			logging.NewLogger,
			NewClients,
			NewAccountStore,
			NewLocker,
			NewEventPublisher,
			NewFailureSink,
			NewSignatureRecorder,
			service.NewAuthorizationPolicy,
			service.NewTransferService,
			service.NewLedger,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Invoke(func(config *config.Config) error {
			return utils.InitSnowflake(config.Worker.NodeID)
		}),
	)
}

func NewAccountStore(config *config.Config, clients *Clients) (repo.AccountStore, error) {
	switch config.Store.Backend {
	case "file":
		return repo.NewFileStore(config.Files.AccountDir)
	case "postgres":
		db, err := clients.Postgres()
		if err != nil {
			return nil, err
		}
		return migrated(repo.NewSQLStore(db, repo.Postgres))
	case "sqlite":
		db, err := clients.SQLite()
		if err != nil {
			return nil, err
		}
		return migrated(repo.NewSQLStore(db, repo.SQLite))
	case "redis":
		rdb, err := clients.Redis()
		if err != nil {
			return nil, err
		}
		return repo.NewRedisStore(rdb), nil
	case "memory":
		return repo.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", config.Store.Backend)
	}
}

func migrated(store *repo.SQLStore) (repo.AccountStore, error) {
	if err := store.Migrate(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

func NewLocker(config *config.Config, clients *Clients, log *zap.Logger) (lock.Locker, error) {
	switch config.Lock.Backend {
	case "local":
		return lock.NewLocalLocker(config.Lock.Timeout), nil
	case "redis":
		rdb, err := clients.Redis()
		if err != nil {
			return nil, err
		}
		return lock.NewRedisLocker(rdb, config.Lock.Timeout, config.Lock.Expiry, log), nil
	default:
		return nil, fmt.Errorf("unknown LOCK_BACKEND %q", config.Lock.Backend)
	}
}

func NewEventPublisher(config *config.Config, clients *Clients) (service.EventPublisher, error) {
	switch config.Events.Backend {
	case "none", "":
		return service.NopPublisher{}, nil
	case "kafka":
		return clients.Kafka(), nil
	case "pubsub":
		return clients.PubSub()
	default:
		return nil, fmt.Errorf("unknown EVENTS_BACKEND %q", config.Events.Backend)
	}
}

func NewFailureSink(config *config.Config) service.FailureSink {
	return repo.NewFailureFile(config.Files.FailureLog)
}

func NewSignatureRecorder(config *config.Config) service.SignatureRecorder {
	return repo.NewSignatureFile(config.Files.SignatureDir)
}

// runApp starts app, runs fn with the caller's context and stops the app on the way out.
func runApp(ctx context.Context, app *fx.App, fn func(ctx context.Context) error) (err error) {
	if err := app.Err(); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, app.Stop(context.Background()))
	}()
	return fn(ctx)
}
