package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/anyme123/claude-workbench/codex"
)

var sessionsDir string

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List codex rollout sessions with their first prompt",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := sessionsDir
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("resolve home directory: %w", err)
			}
			dir = filepath.Join(home, ".codex", "sessions")
		}

		var paths []string
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, ".jsonl") {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("scan sessions directory: %w", err)
		}
		sort.Strings(paths)

		b := &strings.Builder{}
		b.WriteString(headerStyle.Render("Sessions"))
		b.WriteString("\n")
		for _, path := range paths {
			meta, err := codex.ParseSessionMeta(path)
			if err != nil {
				logger.Warn("skipping unreadable session file",
					zap.String("path", path), zap.Error(err))
				continue
			}
			b.WriteString(userStyle.Render(meta.ID))
			b.WriteString("\n")
			b.WriteString(metaStyle.Render(fmt.Sprintf("   %s  %s",
				meta.CreatedAt.Format("2006-01-02 15:04"), meta.ProjectPath)))
			b.WriteString("\n")
			if meta.FirstMessage != "" {
				b.WriteString("   " + truncate(meta.FirstMessage, 70))
				b.WriteString("\n")
			}
		}
		fmt.Println(b.String())
		return nil
	},
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsDir, "dir", "", "Sessions directory (default ~/.codex/sessions)")
	rootCmd.AddCommand(sessionsCmd)
}
