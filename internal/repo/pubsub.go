package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/apiv1"
	pubsubpb "cloud.google.com/go/pubsub/apiv1/pubsubpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"numium/config"
	"numium/internal/model"
)

const (
	pubsubPublishAttempts = 3
	pubsubPullBatch       = 10
	pubsubIdleWait        = 500 * time.Millisecond
)

type PubSub struct {
	pubClient *pubsub.PublisherClient
	subClient *pubsub.SubscriberClient
	config    *config.Config
	log       *zap.Logger
}

// NewPubSubClient connects to the configured endpoint without credentials, as used with the emulator.
func NewPubSubClient(config *config.Config, log *zap.Logger) (*PubSub, error) {
	return NewPubSubWithOptions(context.Background(), config, log,
		option.WithEndpoint(config.PubSub.Endpoint),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
}

func NewPubSubWithOptions(ctx context.Context, config *config.Config, log *zap.Logger, opts ...option.ClientOption) (*PubSub, error) {
	pubClient, err := pubsub.NewPublisherClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub publisher client: %w", err)
	}

	subClient, err := pubsub.NewSubscriberClient(ctx, opts...)
	if err != nil {
		pubClient.Close()
		return nil, fmt.Errorf("failed to create pubsub subscriber client: %w", err)
	}

	return &PubSub{
		pubClient: pubClient,
		subClient: subClient,
		config:    config,
		log:       log,
	}, nil
}

func (p *PubSub) topicPath() string {
	return fmt.Sprintf("projects/%s/topics/%s", p.config.PubSub.ProjectID, p.config.PubSub.Topic)
}

func (p *PubSub) subscriptionPath() string {
	return fmt.Sprintf("projects/%s/subscriptions/%s", p.config.PubSub.ProjectID, p.config.PubSub.Subcription)
}

func (p *PubSub) Publish(ctx context.Context, event model.TransferEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode transfer event: %w", err)
	}

	var lastErr error
	for i := 0; i < pubsubPublishAttempts; i++ {
		attemptCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		resp, err := p.pubClient.Publish(attemptCtx, &pubsubpb.PublishRequest{
			Topic: p.topicPath(),
			Messages: []*pubsubpb.PubsubMessage{
				{Data: data, Attributes: map[string]string{"sender": event.Sender}},
			},
		})
		cancel()
		if err == nil {
			p.log.Debug("published transfer event",
				zap.String("transfer_id", event.ID),
				zap.Strings("message_ids", resp.MessageIds))
			return nil
		}

		lastErr = err
		p.log.Warn("pubsub publish attempt failed", zap.Int("attempt", i+1), zap.Error(err))
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("failed to publish after retries: %w", lastErr)
}

// Receive pulls request messages until ctx is done. Each message is acknowledged from its Ack.
func (p *PubSub) Receive(ctx context.Context, out chan<- Delivery) error {
	subPath := p.subscriptionPath()
	p.log.Info("pubsub request source started", zap.String("subscription", subPath))

	for {
		if ctx.Err() != nil {
			return nil
		}
		resp, err := p.subClient.Pull(ctx, &pubsubpb.PullRequest{
			Subscription: subPath,
			MaxMessages:  pubsubPullBatch,
		})
		if err != nil || len(resp.GetReceivedMessages()) == 0 {
			if err != nil && ctx.Err() == nil {
				p.log.Warn("pubsub pull failed", zap.Error(err))
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(pubsubIdleWait):
			}
			continue
		}

		for _, m := range resp.ReceivedMessages {
			req, decodeErr := DecodeRequest(m.GetMessage().GetData())
			ackID := m.AckId
			d := Delivery{
				Request: req,
				Err:     decodeErr,
				Ack: func(ctx context.Context) error {
					return p.subClient.Acknowledge(ctx, &pubsubpb.AcknowledgeRequest{
						Subscription: subPath,
						AckIds:       []string{ackID},
					})
				},
			}
			select {
			case out <- d:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (p *PubSub) Close() error {
	if err := p.pubClient.Close(); err != nil {
		p.subClient.Close()
		return err
	}
	return p.subClient.Close()
}
