package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yourorg/strategy-sync/internal/model"
)

// SessionRepository persists editing-session snapshots for crash recovery.
// It is written by the history store's flush worker and read only when an
// editor reattaches after a crash, never on the undo/redo hot path.
type SessionRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *sqlx.DB, logger *zap.Logger) *SessionRepository {
	return &SessionRepository{db: db, logger: logger}
}

const sessionSchema = `
CREATE TABLE IF NOT EXISTS edit_sessions (
	session_id       TEXT PRIMARY KEY,
	strategy_id      INTEGER NOT NULL,
	user_id          INTEGER NOT NULL,
	undo_stack       JSONB NOT NULL DEFAULT '[]',
	redo_stack       JSONB NOT NULL DEFAULT '[]',
	last_modified_at TIMESTAMPTZ NOT NULL
)`

// EnsureSchema creates the snapshot table when missing.
func (r *SessionRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, sessionSchema)
	return err
}

// Save upserts one session snapshot.
func (r *SessionRepository) Save(ctx context.Context, snapshot *model.SessionSnapshot) error {
	query := `
		INSERT INTO edit_sessions (session_id, strategy_id, user_id, undo_stack, redo_stack, last_modified_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id) DO UPDATE SET
			undo_stack = EXCLUDED.undo_stack,
			redo_stack = EXCLUDED.redo_stack,
			last_modified_at = EXCLUDED.last_modified_at`

	_, err := r.db.ExecContext(ctx, query,
		snapshot.SessionID,
		snapshot.StrategyID,
		snapshot.UserID,
		snapshot.UndoStack,
		snapshot.RedoStack,
		snapshot.LastModifiedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save session snapshot",
			zap.String("session_id", snapshot.SessionID),
			zap.Error(err))
		return err
	}
	return nil
}

// GetByID loads one snapshot, or nil when absent.
func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (*model.SessionSnapshot, error) {
	var snapshot model.SessionSnapshot
	query := `SELECT session_id, strategy_id, user_id, undo_stack, redo_stack, last_modified_at
		FROM edit_sessions WHERE session_id = $1`

	err := r.db.GetContext(ctx, &snapshot, query, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to load session snapshot",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil, err
	}
	return &snapshot, nil
}

// Delete removes a snapshot after its session ends.
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM edit_sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		r.logger.Error("Failed to delete session snapshot",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
	return err
}
