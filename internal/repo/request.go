package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"numium/internal/model"
)

// requestDocument is the inbound transfer document: {"sender", "claimer", "msg", "amount"}.
type requestDocument struct {
	ID      string           `json:"id"`
	Sender  string           `json:"sender"`
	Claimer string           `json:"claimer"`
	Msg     json.RawMessage  `json:"msg"`
	Amount  *decimal.Decimal `json:"amount"`
}

// DecodeRequest parses a transfer document. A msg that is not a JSON string decodes to an
// empty message, which the authorization gate rejects.
func DecodeRequest(data []byte) (model.TransferRequest, error) {
	var doc requestDocument
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return model.TransferRequest{}, fmt.Errorf("%w: %v", model.ErrInvalidRequest, err)
	}
	if doc.Amount == nil {
		return model.TransferRequest{}, fmt.Errorf("%w: amount is required", model.ErrInvalidRequest)
	}

	req := model.TransferRequest{
		ID:        doc.ID,
		Sender:    doc.Sender,
		Recipient: doc.Claimer,
		Amount:    *doc.Amount,
	}
	var msg string
	if len(doc.Msg) > 0 && json.Unmarshal(doc.Msg, &msg) == nil {
		req.Message = msg
	}
	return req, nil
}

// EncodeRequest renders req in the inbound document format.
func EncodeRequest(req model.TransferRequest) ([]byte, error) {
	msg, err := json.Marshal(req.Message)
	if err != nil {
		return nil, err
	}
	amount := req.Amount
	return json.Marshal(requestDocument{
		ID:      req.ID,
		Sender:  req.Sender,
		Claimer: req.Recipient,
		Msg:     msg,
		Amount:  &amount,
	})
}

// RequestFile reads a single transfer document from disk.
type RequestFile struct {
	path string
}

func NewRequestFile(path string) *RequestFile {
	return &RequestFile{path: path}
}

func (r *RequestFile) Load(_ context.Context) (model.TransferRequest, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return model.TransferRequest{}, fmt.Errorf("read request %s: %w", r.path, err)
	}
	return DecodeRequest(data)
}
