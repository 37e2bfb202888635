package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/societyhub/societyhub/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	FetchRecords(ctx context.Context, c Criteria) ([]Role, error)
	Get(ctx context.Context, societyID, id int64) (Role, error)
	Create(ctx context.Context, societyID int64, in Input) (Role, error)
	Update(ctx context.Context, societyID, id int64, in Input) (Role, error)
	Activate(ctx context.Context, societyID int64, ids []int64) (int64, error)
	Deactivate(ctx context.Context, societyID int64, ids []int64) (int64, error)
	Duplicate(ctx context.Context, societyID int64, ids []int64) ([]Role, error)
	Delete(ctx context.Context, societyID int64, ids []int64) (int64, error)
}

// AuditPort records role changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Notifier is told about completed bulk actions.
type Notifier interface {
	NotifyBulk(ctx context.Context, notice BulkNotice) error
}

// MetricsPort counts bulk actions by outcome and cache lookups.
type MetricsPort interface {
	RecordBulkAction(action, outcome string)
	RecordCacheLookup(hit bool)
}

// ValidationError lists invalid form fields.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	return "roles: invalid input: " + strings.Join(keys, ", ")
}

// SafeMessage implements shared.SafeMessager.
func (e *ValidationError) SafeMessage() string {
	return "Please correct the highlighted fields."
}

// Service handles role business logic.
type Service struct {
	repo     RepositoryPort
	cache    *Cache
	audit    AuditPort
	notifier Notifier
	metrics  MetricsPort
	logger   *slog.Logger
	validate *validator.Validate
	fetches  singleflight.Group
	now      func() time.Time
}

// NewService builds Service instance. audit, notifier and metrics may be nil.
func NewService(repo RepositoryPort, cache *Cache, audit AuditPort, notifier Notifier, metrics MetricsPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	validate := validator.New()
	_ = validate.RegisterValidation("capability", func(fl validator.FieldLevel) bool {
		return shared.Capability(fl.Field().String()).Valid()
	})
	return &Service{
		repo:     repo,
		cache:    cache,
		audit:    audit,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		validate: validate,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Records returns the society's collection, from cache when present.
// Concurrent misses for one society share a single fetch.
func (s *Service) Records(ctx context.Context, societyID int64) ([]Role, error) {
	if records, ok, err := s.cache.Get(ctx, societyID); err != nil {
		s.logger.Warn("roles cache read failed", slog.Int64("society_id", societyID), slog.Any("error", err))
	} else if ok {
		s.lookup(true)
		return records, nil
	}
	s.lookup(false)

	ch := s.fetches.DoChan(strconv.FormatInt(societyID, 10), func() (any, error) {
		records, err := s.repo.FetchRecords(context.WithoutCancel(ctx), Criteria{SocietyID: societyID})
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(context.WithoutCancel(ctx), societyID, records); err != nil {
			s.logger.Warn("roles cache write failed", slog.Int64("society_id", societyID), slog.Any("error", err))
		}
		return records, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Role), nil
	}
}

// Refresh reloads the society's collection from the store into the cache.
func (s *Service) Refresh(ctx context.Context, societyID int64) (int, error) {
	records, err := s.repo.FetchRecords(ctx, Criteria{SocietyID: societyID})
	if err != nil {
		return 0, err
	}
	if err := s.cache.Set(ctx, societyID, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// Table returns a list controller over the society's collection.
func (s *Service) Table(ctx context.Context, societyID int64) (*Table, error) {
	records, err := s.Records(ctx, societyID)
	if err != nil {
		return nil, err
	}
	return NewTable(records), nil
}

// Stats summarises the society's collection.
func (s *Service) Stats(ctx context.Context, societyID int64) (Stats, error) {
	t, err := s.Table(ctx, societyID)
	if err != nil {
		return Stats{}, err
	}
	return StatsOf(t), nil
}

// Get returns one role.
func (s *Service) Get(ctx context.Context, societyID, id int64) (Role, error) {
	return s.repo.Get(ctx, societyID, id)
}

// Create validates and stores a new custom role.
func (s *Service) Create(ctx context.Context, societyID, actorID int64, in Input) (Role, error) {
	in = normalise(in)
	if err := s.check(ctx, societyID, 0, in); err != nil {
		return Role{}, err
	}
	role, err := s.repo.Create(ctx, societyID, in)
	if err != nil {
		return Role{}, nameConflict(err)
	}
	s.invalidate(ctx, societyID)
	s.record(ctx, shared.AuditLog{
		ActorID: actorID, SocietyID: societyID, Action: "roles.create", Entity: "role",
		EntityIDs: []string{role.Key()}, Meta: map[string]any{"name": role.Name},
	})
	return role, nil
}

// Update validates and stores changes to a role.
func (s *Service) Update(ctx context.Context, societyID, actorID, id int64, in Input) (Role, error) {
	in = normalise(in)
	if err := s.check(ctx, societyID, id, in); err != nil {
		return Role{}, err
	}
	role, err := s.repo.Update(ctx, societyID, id, in)
	if err != nil {
		return Role{}, nameConflict(err)
	}
	s.invalidate(ctx, societyID)
	s.record(ctx, shared.AuditLog{
		ActorID: actorID, SocietyID: societyID, Action: "roles.update", Entity: "role",
		EntityIDs: []string{role.Key()}, Meta: map[string]any{"name": role.Name, "status": role.Status},
	})
	return role, nil
}

// Bulk applies action to ids. The cached collection is updated before the
// write and restored when the write fails.
func (s *Service) Bulk(ctx context.Context, societyID, actorID int64, action BulkAction, ids []int64) (BulkResult, error) {
	cmd, err := newBulkCommand(action, ids)
	if err != nil {
		s.count(action, "rejected")
		return BulkResult{}, err
	}
	records, err := s.Records(ctx, societyID)
	if err != nil {
		s.count(action, "failed")
		return BulkResult{}, err
	}
	next, err := cmd.Apply(records, s.now())
	if err != nil {
		s.count(action, "rejected")
		return BulkResult{}, err
	}
	s.store(ctx, societyID, next)

	res, err := cmd.Persist(ctx, s.repo, societyID)
	if err != nil {
		s.store(ctx, societyID, cmd.Rollback(next))
		s.count(action, "failed")
		if errors.Is(err, ErrSystemRole) {
			return BulkResult{}, userFacing(err, "System roles cannot be deleted.")
		}
		return BulkResult{}, fmt.Errorf("roles: bulk %s: %w", action, err)
	}
	if len(res.Created) > 0 {
		s.store(ctx, societyID, append(next, res.Created...))
	}
	s.count(action, "ok")

	entityIDs := make([]string, 0, len(cmd.ids))
	for _, id := range cmd.ids {
		entityIDs = append(entityIDs, strconv.FormatInt(id, 10))
	}
	s.record(ctx, shared.AuditLog{
		ActorID: actorID, SocietyID: societyID, Action: "roles.bulk_" + string(action), Entity: "role",
		EntityIDs: entityIDs, Meta: map[string]any{"affected": res.Affected},
	})
	if s.notifier != nil {
		notice := BulkNotice{SocietyID: societyID, ActorID: actorID, Action: action, RoleIDs: cmd.ids, At: s.now()}
		if err := s.notifier.NotifyBulk(ctx, notice); err != nil {
			s.logger.Warn("roles bulk notice failed", slog.String("action", string(action)), slog.Any("error", err))
		}
	}
	return res, nil
}

func (s *Service) check(ctx context.Context, societyID, selfID int64, in Input) error {
	fields := map[string]string{}
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			key := strings.ToLower(fe.StructField())
			if i := strings.IndexByte(key, '['); i >= 0 {
				key = key[:i]
			}
			fields[key] = fieldMessage(fe)
		}
	}
	if _, ok := fields["name"]; !ok {
		records, err := s.Records(ctx, societyID)
		if err != nil {
			return err
		}
		for _, r := range records {
			if r.ID != selfID && strings.EqualFold(r.Name, in.Name) {
				fields["name"] = "Another role already uses this name."
				break
			}
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		return fmt.Sprintf("Must be at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters.", fe.Param())
	case "oneof":
		return "Choose one of the listed values."
	case "capability":
		return "Unknown permission."
	}
	return "Invalid value."
}

func normalise(in Input) Input {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	if in.Status == "" {
		in.Status = StatusActive
	}
	return in
}

func nameConflict(err error) error {
	if errors.Is(err, ErrDuplicateName) {
		return &ValidationError{Fields: map[string]string{"name": "Another role already uses this name."}}
	}
	return err
}

func (s *Service) store(ctx context.Context, societyID int64, records []Role) {
	if err := s.cache.Set(ctx, societyID, records); err != nil {
		s.logger.Warn("roles cache write failed", slog.Int64("society_id", societyID), slog.Any("error", err))
		s.invalidate(ctx, societyID)
	}
}

func (s *Service) invalidate(ctx context.Context, societyID int64) {
	if err := s.cache.Invalidate(ctx, societyID); err != nil {
		s.logger.Warn("roles cache invalidate failed", slog.Int64("society_id", societyID), slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, entry shared.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Error("roles audit failed", slog.String("action", entry.Action), slog.Any("error", err))
	}
}

func (s *Service) lookup(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(hit)
	}
}

func (s *Service) count(action BulkAction, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordBulkAction(string(action), outcome)
	}
}
