package model

import "time"

// Stage names the step of request handling that produced a failure record.
type Stage string

const (
	StageParse     Stage = "parse"
	StageAuthorize Stage = "authorize"
	StageTransfer  Stage = "transfer"
	StageReconcile Stage = "reconcile"
)

type FailureRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	Stage      Stage     `json:"stage"`
	Reason     Reason    `json:"reason"`
	TransferID string    `json:"transfer_id,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}
