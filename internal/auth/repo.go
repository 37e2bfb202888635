package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/societyhub/societyhub/internal/shared"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
	Societies(ctx context.Context, userID int64) ([]Society, error)
}

// pgExecutor is satisfied by *pgxpool.Pool and pgxmock pools.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db      pgExecutor
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db pgExecutor) *PGRepository {
	return &PGRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	stmt, args, err := r.builder.
		Select("id", "email", "name", "password_hash", "is_active", "created_at", "updated_at").
		From("users").
		Where("LOWER(email) = LOWER(?)", email).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("auth: build find user: %w", err)
	}
	var user User
	err = r.db.QueryRow(ctx, stmt, args...).Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: find user: %w", err)
	}
	return &user, nil
}

// CreateSession persists a new login session in the database for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	stmt, args, err := r.builder.Insert("sessions").
		Columns("id", "user_id", "created_at", "expires_at", "ip", "ua").
		Values(id, userID, r.now(), expiresAt.UTC(), nullable(ip), nullable(ua)).
		ToSql()
	if err != nil {
		return fmt.Errorf("auth: build create session: %w", err)
	}
	if _, err := r.db.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("auth: create session: %w", err)
	}
	return nil
}

// DeleteSession removes a session record from the database.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("sessions").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("auth: build delete session: %w", err)
	}
	if _, err := r.db.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("auth: delete session: %w", err)
	}
	return nil
}

// PurgeExpired deletes sessions that expired before the cutoff.
func (r *PGRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	stmt, args, err := r.builder.Delete("sessions").Where(squirrel.Lt{"expires_at": before.UTC()}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("auth: build purge sessions: %w", err)
	}
	tag, err := r.db.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("auth: purge sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Societies lists the societies a user belongs to, by name.
func (r *PGRepository) Societies(ctx context.Context, userID int64) ([]Society, error) {
	stmt, args, err := r.builder.Select("s.id", "s.name").
		From("societies s").
		Join("society_members m ON m.society_id = s.id").
		Where(squirrel.Eq{"m.user_id": userID}).
		OrderBy("s.name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("auth: build societies: %w", err)
	}
	rows, err := r.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("auth: societies: %w", err)
	}
	defer rows.Close()
	out := make([]Society, 0)
	for rows.Next() {
		var s Society
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("auth: scan society: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CreateUser inserts a user, used by the seeder.
func (r *PGRepository) CreateUser(ctx context.Context, email, name, passwordHash string) (int64, error) {
	stmt, args, err := r.builder.Insert("users").
		Columns("email", "name", "password_hash", "is_active").
		Values(email, name, passwordHash, true).
		Suffix("ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("auth: build create user: %w", err)
	}
	var id int64
	if err := r.db.QueryRow(ctx, stmt, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("auth: create user: %w", err)
	}
	return id, nil
}

// CreateSociety inserts a society, used by the seeder.
func (r *PGRepository) CreateSociety(ctx context.Context, name string) (int64, error) {
	stmt, args, err := r.builder.Insert("societies").Columns("name").Values(name).Suffix("RETURNING id").ToSql()
	if err != nil {
		return 0, fmt.Errorf("auth: build create society: %w", err)
	}
	var id int64
	if err := r.db.QueryRow(ctx, stmt, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("auth: create society: %w", err)
	}
	return id, nil
}

// AddMember links a user to a society. Adding twice is a no-op.
func (r *PGRepository) AddMember(ctx context.Context, societyID, userID int64) error {
	stmt, args, err := r.builder.Insert("society_members").
		Columns("society_id", "user_id").
		Values(societyID, userID).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("auth: build add member: %w", err)
	}
	if _, err := r.db.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("auth: add member: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Repository = (*PGRepository)(nil)
