package repo

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"numium/internal/model"
)

var ErrAccountExists = errors.New("account already exists")

// SeedFile is the provisioning document: a list of accounts with opening balances.
type SeedFile struct {
	Accounts []model.Account `yaml:"accounts"`
}

func DecodeSeed(r io.Reader) (SeedFile, error) {
	var seed SeedFile
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil {
		return SeedFile{}, fmt.Errorf("decode seed: %w", err)
	}
	for i, a := range seed.Accounts {
		if a.ID == "" {
			return SeedFile{}, fmt.Errorf("seed account %d: id is required", i)
		}
		if a.Balance.IsNegative() {
			return SeedFile{}, fmt.Errorf("seed account %s: balance must not be negative", a.ID)
		}
	}
	return seed, nil
}

// Provision writes opening balances. Existing accounts are left untouched unless force is set,
// since overwriting a live balance would bypass the transfer engine.
func Provision(ctx context.Context, store AccountStore, seed SeedFile, force bool) (int, error) {
	written := 0
	for _, a := range seed.Accounts {
		exists, err := store.Exists(ctx, a.ID)
		if err != nil {
			return written, err
		}
		if exists && !force {
			return written, fmt.Errorf("%w: %s", ErrAccountExists, a.ID)
		}
		if err := store.Put(ctx, a); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}
