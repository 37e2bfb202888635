package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("rbac: not found")

// pgExecutor is satisfied by *pgxpool.Pool and pgxmock pools.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Service resolves what a user may do within a society.
type Service struct {
	db      pgExecutor
	builder squirrel.StatementBuilderType
}

// NewService constructs a Service backed by the provided pool.
func NewService(db pgExecutor) *Service {
	return &Service{db: db, builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)}
}

// AssignRole assigns a role to the given user. Assigning twice is a no-op.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	stmt, args, err := s.builder.Insert("user_roles").
		Columns("user_id", "role_id").
		Values(userID, roleID).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("rbac: build assign: %w", err)
	}
	if _, err := s.db.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("rbac: assign role: %w", err)
	}
	return nil
}

// RemoveRole removes a role from a user.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID int64) error {
	stmt, args, err := s.builder.Delete("user_roles").
		Where(squirrel.Eq{"user_id": userID, "role_id": roleID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("rbac: build remove: %w", err)
	}
	tag, err := s.db.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("rbac: remove role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// EffectivePermissions returns the distinct capabilities granted by the
// user's active roles in a society.
func (s *Service) EffectivePermissions(ctx context.Context, userID, societyID int64) ([]string, error) {
	stmt, args, err := s.builder.Select("DISTINCT unnest(r.capabilities) AS capability").
		From("roles r").
		Join("user_roles ur ON ur.role_id = r.id").
		Where(squirrel.Eq{"ur.user_id": userID, "r.society_id": societyID, "r.status": "ACTIVE"}).
		OrderBy("capability").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("rbac: build permissions: %w", err)
	}
	rows, err := s.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("rbac: permissions: %w", err)
	}
	defer rows.Close()
	perms := make([]string, 0)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("rbac: scan permission: %w", err)
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}
