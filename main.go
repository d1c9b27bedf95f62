package main

import (
	"numium/cmd"
)

func main() {
	cmd.RegisterCommands(
		cmd.NewTransferCommand(),
		cmd.NewConsumeCommand(),
		cmd.NewAccountsCommand(),
	)

	cmd.Execute()
}
