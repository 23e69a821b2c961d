package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anyme123/claude-workbench/codex"
	"github.com/anyme123/claude-workbench/stream"
)

var historyCmd = &cobra.Command{
	Use:   "history <rollout.jsonl>",
	Short: "Render a codex rollout session file as a timeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msgs, err := codex.LoadSessionHistory(args[0])
		if err != nil {
			return err
		}
		flat := make([]stream.Message, len(msgs))
		for i, m := range msgs {
			flat[i] = *m
		}
		fmt.Println(renderTimeline(flat))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
