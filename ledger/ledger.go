// Package ledger persists per-prompt checkpoint records so a session can be
// rewound to the state before any prompt. Records live in a SQLite database;
// checkpoints are git commits in the project directory. Checkpoint failures
// never block recording: the record is written with empty commit hashes.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS prompt_records (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	engine        TEXT NOT NULL,
	session_id    TEXT NOT NULL,
	project_path  TEXT NOT NULL,
	prompt_index  INTEGER NOT NULL,
	prompt_text   TEXT NOT NULL DEFAULT '',
	commit_before TEXT NOT NULL DEFAULT '',
	commit_after  TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL,
	completed_at  TIMESTAMP,
	UNIQUE(engine, session_id, prompt_index)
);
CREATE INDEX IF NOT EXISTS idx_prompt_records_session
	ON prompt_records(engine, session_id);
`

// Record is one prompt's ledger row.
type Record struct {
	Engine       string
	SessionID    string
	ProjectPath  string
	PromptIndex  int
	PromptText   string
	CommitBefore string
	CommitAfter  string
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// Ledger stores prompt records and drives project checkpoints.
type Ledger struct {
	db  *sql.DB
	git Checkpointer
	log *zap.Logger
}

// Open opens (creating if needed) the ledger database at path. A nil logger
// disables logging.
func Open(path string, log *zap.Logger) (*Ledger, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger database ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}

	return &Ledger{db: db, git: NewGitCheckpointer(), log: log}, nil
}

// Close releases the database handle.
func (l *Ledger) Close() error { return l.db.Close() }

// RecordSent writes a new record for a dispatched prompt and returns its
// index within the session. The checkpoint before the prompt is captured
// best-effort.
func (l *Ledger) RecordSent(ctx context.Context, engine, sessionID, projectPath, promptText string) (int, error) {
	commitBefore := ""
	if err := l.git.Ensure(projectPath); err != nil {
		l.log.Warn("checkpoint init failed, recording without commit",
			zap.String("project", projectPath), zap.Error(err))
	} else if head, err := l.git.Head(projectPath); err != nil {
		l.log.Warn("checkpoint head lookup failed", zap.String("project", projectPath), zap.Error(err))
	} else {
		commitBefore = head
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin ledger transaction: %w", err)
	}
	defer tx.Rollback()

	var index int
	row := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM prompt_records WHERE engine = ? AND session_id = ?`,
		engine, sessionID)
	if err := row.Scan(&index); err != nil {
		return 0, fmt.Errorf("count session records: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO prompt_records
			(engine, session_id, project_path, prompt_index, prompt_text, commit_before, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		engine, sessionID, projectPath, index, promptText, commitBefore, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("insert prompt record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit ledger transaction: %w", err)
	}

	l.log.Debug("recorded prompt sent",
		zap.String("engine", engine), zap.String("session", sessionID), zap.Int("index", index))
	return index, nil
}

// RecordCompleted commits the project's pending changes and stores the
// resulting checkpoint on the record. A checkpoint failure still marks the
// record completed.
func (l *Ledger) RecordCompleted(ctx context.Context, engine, sessionID, projectPath string, promptIndex int) error {
	commitAfter := ""
	message := fmt.Sprintf("checkpoint after prompt %d", promptIndex)
	if head, err := l.git.Commit(projectPath, message); err != nil {
		l.log.Warn("checkpoint commit failed, marking completed without commit",
			zap.String("project", projectPath), zap.Error(err))
	} else {
		commitAfter = head
	}

	res, err := l.db.ExecContext(ctx,
		`UPDATE prompt_records SET commit_after = ?, completed_at = ?
		 WHERE engine = ? AND session_id = ? AND prompt_index = ?`,
		commitAfter, time.Now().UTC(), engine, sessionID, promptIndex)
	if err != nil {
		return fmt.Errorf("update prompt record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("no record for %s session %s prompt %d", engine, sessionID, promptIndex)
	}
	return nil
}

// MarkCompleted sets the completion timestamp without touching checkpoints.
// Used for bookkeeping prompts that must not create commits.
func (l *Ledger) MarkCompleted(ctx context.Context, engine, sessionID string, promptIndex int) error {
	_, err := l.db.ExecContext(ctx,
		`UPDATE prompt_records SET completed_at = ?
		 WHERE engine = ? AND session_id = ? AND prompt_index = ?`,
		time.Now().UTC(), engine, sessionID, promptIndex)
	if err != nil {
		return fmt.Errorf("mark prompt record completed: %w", err)
	}
	return nil
}

// Records returns a session's records ordered by prompt index.
func (l *Ledger) Records(ctx context.Context, engine, sessionID string) ([]Record, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT engine, session_id, project_path, prompt_index, prompt_text,
			commit_before, commit_after, created_at, completed_at
		 FROM prompt_records
		 WHERE engine = ? AND session_id = ?
		 ORDER BY prompt_index`,
		engine, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query prompt records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var completed sql.NullTime
		if err := rows.Scan(&r.Engine, &r.SessionID, &r.ProjectPath, &r.PromptIndex,
			&r.PromptText, &r.CommitBefore, &r.CommitAfter, &r.CreatedAt, &completed); err != nil {
			return nil, fmt.Errorf("scan prompt record: %w", err)
		}
		if completed.Valid {
			t := completed.Time
			r.CompletedAt = &t
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prompt records: %w", err)
	}
	return records, nil
}

// Truncate drops a session's records at and after fromIndex. Used when the
// session is rewound to an earlier checkpoint.
func (l *Ledger) Truncate(ctx context.Context, engine, sessionID string, fromIndex int) error {
	_, err := l.db.ExecContext(ctx,
		`DELETE FROM prompt_records
		 WHERE engine = ? AND session_id = ? AND prompt_index >= ?`,
		engine, sessionID, fromIndex)
	if err != nil {
		return fmt.Errorf("truncate prompt records: %w", err)
	}
	return nil
}
