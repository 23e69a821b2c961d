package ledger

import (
	"fmt"
	"os/exec"
	"strings"
)

// Checkpointer captures project state around a prompt. The git
// implementation is the default; tests substitute a stub.
type Checkpointer interface {
	// Ensure makes the directory checkpointable, initializing a repository
	// with a baseline commit when none exists.
	Ensure(dir string) error
	// Head returns the current checkpoint id.
	Head(dir string) (string, error)
	// Commit records pending changes and returns the new checkpoint id.
	// With nothing to record it returns the current head.
	Commit(dir, message string) (string, error)
}

type gitCheckpointer struct{}

// NewGitCheckpointer returns a Checkpointer backed by git invocations in the
// project directory.
func NewGitCheckpointer() Checkpointer { return gitCheckpointer{} }

func runGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

func (gitCheckpointer) Ensure(dir string) error {
	if _, err := runGit(dir, "rev-parse", "--git-dir"); err == nil {
		return nil
	}
	if _, err := runGit(dir, "init"); err != nil {
		return err
	}
	if _, err := runGit(dir, "add", "-A"); err != nil {
		return err
	}
	_, err := runGit(dir, "commit", "--allow-empty", "-m", "baseline checkpoint")
	return err
}

func (gitCheckpointer) Head(dir string) (string, error) {
	return runGit(dir, "rev-parse", "HEAD")
}

func (gitCheckpointer) Commit(dir, message string) (string, error) {
	if _, err := runGit(dir, "add", "-A"); err != nil {
		return "", err
	}
	status, err := runGit(dir, "status", "--porcelain")
	if err != nil {
		return "", err
	}
	if status == "" {
		return runGit(dir, "rev-parse", "HEAD")
	}
	if _, err := runGit(dir, "commit", "-m", message); err != nil {
		return "", err
	}
	return runGit(dir, "rev-parse", "HEAD")
}
