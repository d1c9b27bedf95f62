package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"numium/config"
	"numium/internal/model"
	"numium/internal/repo"
	"numium/internal/service"
)

func NewTransferCommand() *cobra.Command {
	var requestPath string
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Submit the pending transfer request file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cfg    *config.Config
				ledger *service.Ledger
			)
			app := fx.New(ledgerModule(), fx.Populate(&cfg, &ledger))
			return runApp(cmd.Context(), app, func(ctx context.Context) error {
				path := cfg.Files.RequestPath
				if requestPath != "" {
					path = requestPath
				}
				return submitRequestFile(ctx, ledger, repo.NewRequestFile(path), cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVar(&requestPath, "request", "", "request file to submit (default REQUEST_PATH)")
	return cmd
}

func submitRequestFile(ctx context.Context, ledger *service.Ledger, file *repo.RequestFile, out io.Writer) error {
	req, err := file.Load(ctx)
	if err != nil {
		ledger.RecordParseFailure(ctx, err)
		return err
	}
	result, err := ledger.Submit(ctx, req)
	if err != nil {
		return err
	}
	printResult(out, req, result)
	return nil
}

func printResult(out io.Writer, req model.TransferRequest, result model.TransferResult) {
	fmt.Fprintf(out, "transfer %s committed: %s -> %s amount=%s\n", result.TransferID, req.Sender, req.Recipient, req.Amount)
	fmt.Fprintf(out, "  %s balance=%s\n", req.Sender, result.SenderBalanceAfter)
	fmt.Fprintf(out, "  %s balance=%s\n", req.Recipient, result.RecipientBalanceAfter)
}
