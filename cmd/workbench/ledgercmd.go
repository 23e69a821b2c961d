package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anyme123/claude-workbench/engine"
	"github.com/anyme123/claude-workbench/ledger"
)

var (
	ledgerEngine  string
	ledgerSession string
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "List a session's prompt checkpoint records",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := engine.Parse(ledgerEngine)
		if err != nil {
			return err
		}
		if ledgerSession == "" {
			return fmt.Errorf("--session is required")
		}

		led, err := ledger.Open(ledgerPath(), logger)
		if err != nil {
			return err
		}
		defer led.Close()

		records, err := led.Records(cmd.Context(), string(eng), ledgerSession)
		if err != nil {
			return err
		}
		fmt.Println(renderRecords(records))
		return nil
	},
}

func init() {
	ledgerCmd.Flags().StringVar(&ledgerEngine, "engine", "claude", "Engine the session ran on")
	ledgerCmd.Flags().StringVar(&ledgerSession, "session", "", "Session id to list records for")
}
