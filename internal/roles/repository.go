package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/societyhub/societyhub/internal/platform/db"
	"github.com/societyhub/societyhub/internal/shared"
)

// pgExecutor is satisfied by *pgxpool.Pool and pgxmock pools.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// querier is the part of pgExecutor shared with pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const assignedCountExpr = "(SELECT COUNT(*) FROM user_roles ur WHERE ur.role_id = roles.id) AS assigned_count"

var roleColumns = []string{
	"id", "society_id", "name", "description", "category", "status", "type",
	"capabilities", "created_at", "updated_at", assignedCountExpr,
}

// Repository provides PostgreSQL backed persistence for roles.
type Repository struct {
	db      pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRepository constructs a repository.
func NewRepository(db pgExecutor) *Repository {
	return &Repository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// FetchRecords returns every role matching the criteria in id order.
func (r *Repository) FetchRecords(ctx context.Context, c Criteria) ([]Role, error) {
	where := squirrel.Eq{"society_id": c.SocietyID}
	if c.Status != "" {
		where["status"] = string(c.Status)
	}
	if c.Type != "" {
		where["type"] = string(c.Type)
	}
	if c.Category != "" {
		where["category"] = c.Category
	}
	stmt, args, err := r.builder.Select(roleColumns...).From("roles").Where(where).OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("roles: build fetch: %w", err)
	}
	rows, err := r.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("roles: fetch: %w", err)
	}
	defer rows.Close()

	out := make([]Role, 0)
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roles: fetch rows: %w", err)
	}
	return out, nil
}

// Get loads one role of a society.
func (r *Repository) Get(ctx context.Context, societyID, id int64) (Role, error) {
	return r.get(ctx, r.db, societyID, id)
}

func (r *Repository) get(ctx context.Context, q querier, societyID, id int64) (Role, error) {
	stmt, args, err := r.builder.Select(roleColumns...).From("roles").
		Where(squirrel.Eq{"society_id": societyID, "id": id}).ToSql()
	if err != nil {
		return Role{}, fmt.Errorf("roles: build get: %w", err)
	}
	role, err := scanRole(q.QueryRow(ctx, stmt, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, ErrNotFound
	}
	return role, err
}

// Create inserts a custom role.
func (r *Repository) Create(ctx context.Context, societyID int64, in Input) (Role, error) {
	role := Role{
		SocietyID:    societyID,
		Name:         in.Name,
		Description:  in.Description,
		Category:     in.Category,
		Status:       in.Status,
		Type:         TypeCustom,
		Capabilities: in.Capabilities,
	}
	if err := r.insert(ctx, r.db, &role); err != nil {
		return Role{}, err
	}
	return role, nil
}

// Update overwrites the editable fields of a role.
func (r *Repository) Update(ctx context.Context, societyID, id int64, in Input) (Role, error) {
	stmt, args, err := r.builder.Update("roles").
		Set("name", in.Name).
		Set("description", in.Description).
		Set("category", in.Category).
		Set("status", string(in.Status)).
		Set("capabilities", capabilityStrings(in.Capabilities)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"society_id": societyID, "id": id}).
		ToSql()
	if err != nil {
		return Role{}, fmt.Errorf("roles: build update: %w", err)
	}
	tag, err := r.db.Exec(ctx, stmt, args...)
	if err != nil {
		return Role{}, mapWriteError("update", err)
	}
	if tag.RowsAffected() == 0 {
		return Role{}, ErrNotFound
	}
	return r.Get(ctx, societyID, id)
}

// Activate marks roles ACTIVE and returns the number changed.
func (r *Repository) Activate(ctx context.Context, societyID int64, ids []int64) (int64, error) {
	return r.setStatus(ctx, societyID, ids, StatusActive)
}

// Deactivate marks roles INACTIVE and returns the number changed.
func (r *Repository) Deactivate(ctx context.Context, societyID int64, ids []int64) (int64, error) {
	return r.setStatus(ctx, societyID, ids, StatusInactive)
}

func (r *Repository) setStatus(ctx context.Context, societyID int64, ids []int64, status Status) (int64, error) {
	stmt, args, err := r.builder.Update("roles").
		Set("status", string(status)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"society_id": societyID, "id": ids}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("roles: build status update: %w", err)
	}
	tag, err := r.db.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("roles: set status: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes roles in one transaction. Nothing is deleted when any of
// them is a system role.
func (r *Repository) Delete(ctx context.Context, societyID int64, ids []int64) (int64, error) {
	var deleted int64
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		stmt, args, err := r.builder.Select("COUNT(*)").From("roles").
			Where(squirrel.Eq{"society_id": societyID, "id": ids, "type": string(TypeSystem)}).
			ToSql()
		if err != nil {
			return fmt.Errorf("roles: build system check: %w", err)
		}
		var system int64
		if err := tx.QueryRow(ctx, stmt, args...).Scan(&system); err != nil {
			return fmt.Errorf("roles: system check: %w", err)
		}
		if system > 0 {
			return ErrSystemRole
		}

		stmt, args, err = r.builder.Delete("roles").
			Where(squirrel.Eq{"society_id": societyID, "id": ids}).
			ToSql()
		if err != nil {
			return fmt.Errorf("roles: build delete: %w", err)
		}
		tag, err := tx.Exec(ctx, stmt, args...)
		if err != nil {
			return fmt.Errorf("roles: delete: %w", err)
		}
		deleted = tag.RowsAffected()
		return nil
	})
	return deleted, err
}

// Duplicate copies roles as custom roles named after their source and
// returns the copies in the order of ids.
func (r *Repository) Duplicate(ctx context.Context, societyID int64, ids []int64) ([]Role, error) {
	var created []Role
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		taken, err := r.names(ctx, tx, societyID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			src, err := r.get(ctx, tx, societyID, id)
			if err != nil {
				return err
			}
			dup := duplicateOf(src, taken)
			taken[dup.Name] = struct{}{}
			if err := r.insert(ctx, tx, &dup); err != nil {
				return err
			}
			created = append(created, dup)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Insert stores pre-built roles, used by the seeder.
func (r *Repository) Insert(ctx context.Context, roles []Role) error {
	if len(roles) == 0 {
		return nil
	}
	q := r.builder.Insert("roles").
		Columns("society_id", "name", "description", "category", "status", "type", "capabilities", "created_at", "updated_at")
	for _, role := range roles {
		q = q.Values(role.SocietyID, role.Name, role.Description, role.Category, string(role.Status),
			string(role.Type), capabilityStrings(role.Capabilities), role.CreatedAt, role.UpdatedAt)
	}
	stmt, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("roles: build seed insert: %w", err)
	}
	if _, err := r.db.Exec(ctx, stmt, args...); err != nil {
		return mapWriteError("seed insert", err)
	}
	return nil
}

func (r *Repository) insert(ctx context.Context, q querier, role *Role) error {
	stmt, args, err := r.builder.Insert("roles").
		Columns("society_id", "name", "description", "category", "status", "type", "capabilities").
		Values(role.SocietyID, role.Name, role.Description, role.Category, string(role.Status),
			string(role.Type), capabilityStrings(role.Capabilities)).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("roles: build insert: %w", err)
	}
	if err := q.QueryRow(ctx, stmt, args...).Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return mapWriteError("insert", err)
	}
	return nil
}

func (r *Repository) names(ctx context.Context, q querier, societyID int64) (map[string]struct{}, error) {
	stmt, args, err := r.builder.Select("name").From("roles").Where(squirrel.Eq{"society_id": societyID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("roles: build names: %w", err)
	}
	rows, err := q.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("roles: names: %w", err)
	}
	defer rows.Close()
	taken := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("roles: scan name: %w", err)
		}
		taken[name] = struct{}{}
	}
	return taken, rows.Err()
}

// duplicateOf builds the copy of src with a name not present in taken.
func duplicateOf(src Role, taken map[string]struct{}) Role {
	name := "Copy of " + src.Name
	for n := 2; ; n++ {
		if _, exists := taken[name]; !exists {
			break
		}
		name = fmt.Sprintf("Copy of %s (%d)", src.Name, n)
	}
	return Role{
		SocietyID:    src.SocietyID,
		Name:         name,
		Description:  src.Description,
		Category:     src.Category,
		Status:       src.Status,
		Type:         TypeCustom,
		Capabilities: append([]shared.Capability(nil), src.Capabilities...),
	}
}

func scanRole(row pgx.Row) (Role, error) {
	var (
		role     Role
		status   string
		kind     string
		caps     []string
		assigned int64
	)
	err := row.Scan(&role.ID, &role.SocietyID, &role.Name, &role.Description, &role.Category,
		&status, &kind, &caps, &role.CreatedAt, &role.UpdatedAt, &assigned)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, err
		}
		return Role{}, fmt.Errorf("roles: scan: %w", err)
	}
	role.Status = Status(status)
	role.Type = Type(kind)
	role.AssignedCount = int(assigned)
	role.Capabilities = make([]shared.Capability, 0, len(caps))
	for _, c := range caps {
		role.Capabilities = append(role.Capabilities, shared.Capability(c))
	}
	role.CreatedAt = role.CreatedAt.UTC()
	role.UpdatedAt = role.UpdatedAt.UTC()
	return role, nil
}

func capabilityStrings(caps []shared.Capability) []string {
	out := make([]string, 0, len(caps))
	for _, c := range caps {
		out = append(out, string(c))
	}
	return out
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateName
	}
	return fmt.Errorf("roles: %s: %w", op, err)
}
