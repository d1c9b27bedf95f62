package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"numium/internal/repo"
	"numium/internal/service"
)

func NewAccountsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Provision and inspect account balances",
	}
	cmd.AddCommand(newSeedCommand(), newBalanceCommand())
	return cmd
}

func newSeedCommand() *cobra.Command {
	var (
		file  string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create accounts with opening balances from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open seed file: %w", err)
			}
			defer f.Close()
			seed, err := repo.DecodeSeed(f)
			if err != nil {
				return err
			}

			var (
				store repo.AccountStore
				log   *zap.Logger
			)
			app := fx.New(ledgerModule(), fx.Populate(&store, &log))
			return runApp(cmd.Context(), app, func(ctx context.Context) error {
				n, err := repo.Provision(ctx, store, seed, force)
				log.Info("accounts provisioned", zap.Int("written", n), zap.Int("total", len(seed.Accounts)))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "provisioned %d accounts\n", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "accounts.yaml", "YAML seed file")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite accounts that already exist")
	return cmd
}

func newBalanceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <id>",
		Short: "Print the balance of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ledger *service.Ledger
			app := fx.New(ledgerModule(), fx.Populate(&ledger))
			return runApp(cmd.Context(), app, func(ctx context.Context) error {
				account, err := ledger.Balance(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", account.ID, account.Balance)
				return nil
			})
		},
	}
}
