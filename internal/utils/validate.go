package utils

import (
	"fmt"
	"strings"

	"numium/internal/model"
)

func ValidateAccountID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("invalid %s: must not be empty", field)
	}
	return nil
}

// ValidateRequest checks the request shape a request source must guarantee: non-empty account
// identifiers. Amount and authorization are judged by the ledger itself.
func ValidateRequest(req model.TransferRequest) error {
	if err := ValidateAccountID("sender", req.Sender); err != nil {
		return err
	}
	if err := ValidateAccountID("recipient", req.Recipient); err != nil {
		return err
	}
	return nil
}
