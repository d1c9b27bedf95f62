package repo

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	pubsubpb "cloud.google.com/go/pubsub/apiv1/pubsubpb"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"numium/config"
	"numium/internal/model"
)

func newTestPubSub(t *testing.T) (*PubSub, *pstest.Server) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	cfg := &config.Config{PubSub: config.PubSubConfig{
		ProjectID:   "test-project",
		Topic:       "transfers",
		Subcription: "sub-transfers",
	}}
	ps, err := NewPubSubWithOptions(context.Background(), cfg, zap.NewNop(), option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { ps.Close() })

	ctx := context.Background()
	_, err = ps.pubClient.CreateTopic(ctx, &pubsubpb.Topic{Name: ps.topicPath()})
	require.NoError(t, err)
	_, err = ps.subClient.CreateSubscription(ctx, &pubsubpb.Subscription{
		Name:               ps.subscriptionPath(),
		Topic:              ps.topicPath(),
		AckDeadlineSeconds: 10,
	})
	require.NoError(t, err)
	return ps, srv
}

func TestPubSub_Publish(t *testing.T) {
	ps, srv := newTestPubSub(t)

	event := model.TransferEvent{ID: "1", Sender: "alice", Recipient: "bob", Amount: decimal.NewFromInt(5)}
	require.NoError(t, ps.Publish(context.Background(), event))

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "alice", msgs[0].Attributes["sender"])

	var got model.TransferEvent
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	require.Equal(t, "1", got.ID)
}

func TestPubSub_ReceiveDecodesAndAcks(t *testing.T) {
	ps, srv := newTestPubSub(t)

	srv.Publish(ps.topicPath(), []byte(`{"sender":"alice","claimer":"bob","msg":"*// x","amount":5}`), nil)
	srv.Publish(ps.topicPath(), []byte(`not json`), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out := make(chan Delivery)
	done := make(chan error, 1)
	go func() { done <- ps.Receive(ctx, out) }()

	var got []Delivery
	for len(got) < 2 {
		select {
		case d := <-out:
			require.NoError(t, d.Ack(ctx))
			got = append(got, d)
		case <-ctx.Done():
			t.Fatal("timed out waiting for deliveries")
		}
	}
	cancel()
	require.NoError(t, <-done)

	var decoded, failed int
	for _, d := range got {
		if d.Err != nil {
			failed++
			continue
		}
		decoded++
		require.Equal(t, "alice", d.Request.Sender)
		require.Equal(t, "bob", d.Request.Recipient)
	}
	require.Equal(t, 1, decoded)
	require.Equal(t, 1, failed)

	for _, m := range srv.Messages() {
		require.Equal(t, 1, m.Acks)
	}
}
