package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"numium/internal/model"
)

// SignatureFile stores the last accepted authorization message for each principal
// as <dir>/<principal>.sign.json.
type SignatureFile struct {
	dir string
}

func NewSignatureFile(dir string) *SignatureFile {
	return &SignatureFile{dir: dir}
}

type signatureRecord struct {
	Sign       string `json:"sign"`
	TransferID string `json:"transfer_id,omitempty"`
}

func (s *SignatureFile) RecordSignature(_ context.Context, outcome model.AuthorizationOutcome, req model.TransferRequest) error {
	if outcome.Principal == "" || outcome.Principal != filepath.Base(outcome.Principal) {
		return fmt.Errorf("invalid principal %q", outcome.Principal)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create signature dir: %w", err)
	}
	data, err := json.MarshalIndent(signatureRecord{Sign: req.Message, TransferID: req.ID}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode signature: %w", err)
	}
	p := filepath.Join(s.dir, outcome.Principal+".sign.json")
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("write signature %s: %w", p, err)
	}
	return nil
}
