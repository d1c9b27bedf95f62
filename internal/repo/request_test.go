package repo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"numium/internal/model"
)

func TestDecodeRequest(t *testing.T) {
	cases := []struct {
		name    string
		doc     string
		want    model.TransferRequest
		wantErr bool
	}{
		{
			name: "numeric amount",
			doc:  `{"sender":"alice","claimer":"bob","ip_send":"10.0.0.1","msg":"*// rent","amount":30}`,
			want: model.TransferRequest{Sender: "alice", Recipient: "bob", Message: "*// rent", Amount: decimal.NewFromInt(30)},
		},
		{
			name: "string amount",
			doc:  `{"sender":"alice","claimer":"bob","msg":"*// rent","amount":"12.75"}`,
			want: model.TransferRequest{Sender: "alice", Recipient: "bob", Message: "*// rent", Amount: decimal.RequireFromString("12.75")},
		},
		{
			name: "non-string msg",
			doc:  `{"sender":"alice","claimer":"bob","msg":42,"amount":1}`,
			want: model.TransferRequest{Sender: "alice", Recipient: "bob", Amount: decimal.NewFromInt(1)},
		},
		{
			name: "missing msg",
			doc:  `{"sender":"alice","claimer":"bob","amount":1}`,
			want: model.TransferRequest{Sender: "alice", Recipient: "bob", Amount: decimal.NewFromInt(1)},
		},
		{name: "missing amount", doc: `{"sender":"alice","claimer":"bob","msg":"*// x"}`, wantErr: true},
		{name: "non-numeric amount", doc: `{"sender":"alice","claimer":"bob","amount":"ten"}`, wantErr: true},
		{name: "not json", doc: `sender=alice`, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeRequest([]byte(tc.doc))
			if tc.wantErr {
				require.ErrorIs(t, err, model.ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want.Sender, got.Sender)
			require.Equal(t, tc.want.Recipient, got.Recipient)
			require.Equal(t, tc.want.Message, got.Message)
			require.True(t, tc.want.Amount.Equal(got.Amount), "amount %s", got.Amount)
		})
	}
}

func TestEncodeRequest_DecodesBack(t *testing.T) {
	req := model.TransferRequest{ID: "42", Sender: "alice", Recipient: "bob", Message: "*// hi", Amount: decimal.RequireFromString("3.5")}
	data, err := EncodeRequest(req)
	require.NoError(t, err)

	got, err := DecodeRequest(data)
	require.NoError(t, err)
	require.Equal(t, "42", got.ID)
	require.Equal(t, "bob", got.Recipient)
	require.True(t, req.Amount.Equal(got.Amount))
}

func TestRequestFile_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rest")
	require.NoError(t, os.WriteFile(path, []byte(`{"sender":"alice","claimer":"bob","msg":"*// x","amount":5}`), 0o644))

	req, err := NewRequestFile(path).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "alice", req.Sender)

	_, err = NewRequestFile(filepath.Join(t.TempDir(), "missing")).Load(context.Background())
	require.Error(t, err)
}
