package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	ActorID   int64
	SocietyID int64
	Action    string
	Entity    string
	EntityIDs []string
	Meta      map[string]any
	At        time.Time
}

// Execer is the subset of pgxpool.Pool the audit logger needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	db      Execer
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(db Execer) *AuditLogger {
	return &AuditLogger{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now:     time.Now,
	}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, entry AuditLog) error {
	if l == nil || l.db == nil {
		return errors.New("audit logger not initialised")
	}
	if entry.Action == "" || entry.Entity == "" || len(entry.EntityIDs) == 0 {
		return errors.New("audit log requires action/entity/entity ids")
	}
	meta, err := json.Marshal(entry.Meta)
	if err != nil {
		return fmt.Errorf("audit: encode meta: %w", err)
	}
	at := entry.At
	if at.IsZero() {
		at = l.now().UTC()
	}
	stmt, args, err := l.builder.Insert("audit_logs").
		Columns("actor_id", "society_id", "action", "entity", "entity_ids", "meta", "occurred_at").
		Values(entry.ActorID, entry.SocietyID, entry.Action, entry.Entity, entry.EntityIDs, meta, at).
		ToSql()
	if err != nil {
		return fmt.Errorf("audit: build insert: %w", err)
	}
	if _, err := l.db.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}
