package repo

import (
	"context"

	"numium/internal/model"
)

// Delivery is one inbound transfer request pulled from a message source. Err is set when the
// payload could not be decoded; Ack must be called once the request has been handled either way.
type Delivery struct {
	Request model.TransferRequest
	Err     error
	Ack     func(ctx context.Context) error
}
