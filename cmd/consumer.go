package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"numium/config"
	"numium/internal/repo"
	"numium/internal/service"
)

func NewConsumeCommand() *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Process transfer requests from Kafka or Google Pub/Sub",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				ledgerModule(),
				fx.Provide(
					func(config *config.Config, clients *Clients, log *zap.Logger) (service.RequestSource, error) {
						return NewRequestSource(source, config, clients, log)
					},
					func(ledger *service.Ledger, config *config.Config, log *zap.Logger) *service.Dispatcher {
						return service.NewDispatcher(ledger, config.Worker.Concurrency, log)
					},
				),
				fx.Invoke(RegisterConsumer),
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "kafka", "request source: kafka or pubsub")
	return cmd
}

func NewRequestSource(source string, config *config.Config, clients *Clients, log *zap.Logger) (service.RequestSource, error) {
	switch source {
	case "kafka":
		return repo.NewKafkaRequestSource(config, log), nil
	case "pubsub":
		return clients.PubSub()
	default:
		return nil, fmt.Errorf("unknown request source %q", source)
	}
}

// RegisterConsumer runs the dispatcher for the lifetime of the app. OnStop cancels it and waits for
// in-flight requests to finish.
func RegisterConsumer(lc fx.Lifecycle, shutdowner fx.Shutdowner, dispatcher *service.Dispatcher, src service.RequestSource, log *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("starting request consumer")
			go func() {
				defer close(done)
				if err := dispatcher.Run(ctx, src); err != nil {
					log.Error("request consumer stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			log.Info("stopping request consumer")
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
			// Pub/Sub connections belong to Clients and close with it.
			if kafkaSrc, ok := src.(*repo.KafkaRequestSource); ok {
				return kafkaSrc.Close()
			}
			return nil
		},
	})
}
