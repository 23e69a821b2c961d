// Command workbench drives coding-assistant sessions from the terminal:
// it replays recorded engine event logs through the full orchestration
// pipeline and inspects the prompt ledger.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/anyme123/claude-workbench/engine"
)

var (
	verbose    bool
	configPath string

	logger *zap.Logger
	config engine.Config
)

var rootCmd = &cobra.Command{
	Use:   "workbench",
	Short: "Session workbench for coding-assistant engines",
	Long: `Workbench normalizes the event streams of the claude, codex and gemini
CLIs into one canonical message timeline, with per-prompt git checkpoints
recorded in a ledger for rewinding.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}

		config, err = engine.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "Path to the workbench config file")

	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(ledgerCmd)
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "workbench.yaml"
	}
	return filepath.Join(home, ".workbench", "config.yaml")
}

func ledgerPath() string {
	if config.LedgerPath != "" {
		return config.LedgerPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "ledger.db"
	}
	return filepath.Join(home, ".workbench", "ledger.db")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
