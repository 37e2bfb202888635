package roles

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/societyhub/societyhub/internal/shared"
)

var baseTime = time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)

func caps(names ...string) []shared.Capability {
	out := make([]shared.Capability, 0, len(names))
	for _, n := range names {
		out = append(out, shared.Capability(n))
	}
	return out
}

// sampleRoles returns a small society catalogue. Role 1 is a system role.
func sampleRoles() []Role {
	return []Role{
		{ID: 1, SocietyID: 7, Name: "Society Administrator", Category: "Administration", Status: StatusActive, Type: TypeSystem, AssignedCount: 2, CreatedAt: baseTime, UpdatedAt: baseTime},
		{ID: 2, SocietyID: 7, Name: "Security Guard", Category: "Security", Status: StatusActive, Type: TypeCustom, AssignedCount: 5, CreatedAt: baseTime.Add(time.Hour), UpdatedAt: baseTime.Add(time.Hour)},
		{ID: 3, SocietyID: 7, Name: "Plumber", Category: "Maintenance", Status: StatusInactive, Type: TypeCustom, AssignedCount: 0, CreatedAt: baseTime.Add(2 * time.Hour), UpdatedAt: baseTime.Add(2 * time.Hour)},
		{ID: 4, SocietyID: 7, Name: "Gardener", Category: "Facilities", Status: StatusActive, Type: TypeCustom, AssignedCount: 1, CreatedAt: baseTime.Add(3 * time.Hour), UpdatedAt: baseTime.Add(3 * time.Hour)},
	}
}

// fakeRepo is an in-memory RepositoryPort.
type fakeRepo struct {
	mu       sync.Mutex
	records  []Role
	nextID   int64
	fetches  int
	failNext error
	calls    []string
}

func newFakeRepo(records []Role) *fakeRepo {
	next := int64(100)
	return &fakeRepo{records: slices.Clone(records), nextID: next}
}

func (f *fakeRepo) fail() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeRepo) FetchRecords(ctx context.Context, c Criteria) ([]Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	out := make([]Role, 0, len(f.records))
	for _, r := range f.records {
		if r.SocietyID == c.SocietyID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) Get(ctx context.Context, societyID, id int64) (Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.ID == id && r.SocietyID == societyID {
			return r, nil
		}
	}
	return Role{}, ErrNotFound
}

func (f *fakeRepo) Create(ctx context.Context, societyID int64, in Input) (Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create")
	if err := f.fail(); err != nil {
		return Role{}, err
	}
	f.nextID++
	role := Role{ID: f.nextID, SocietyID: societyID, Name: in.Name, Description: in.Description, Category: in.Category,
		Status: in.Status, Type: TypeCustom, Capabilities: in.Capabilities, CreatedAt: baseTime, UpdatedAt: baseTime}
	f.records = append(f.records, role)
	return role, nil
}

func (f *fakeRepo) Update(ctx context.Context, societyID, id int64, in Input) (Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "update")
	if err := f.fail(); err != nil {
		return Role{}, err
	}
	for i, r := range f.records {
		if r.ID == id && r.SocietyID == societyID {
			r.Name, r.Description, r.Category, r.Status, r.Capabilities = in.Name, in.Description, in.Category, in.Status, in.Capabilities
			f.records[i] = r
			return r, nil
		}
	}
	return Role{}, ErrNotFound
}

func (f *fakeRepo) setStatus(ids []int64, status Status) int64 {
	var n int64
	for i, r := range f.records {
		if slices.Contains(ids, r.ID) {
			f.records[i].Status = status
			n++
		}
	}
	return n
}

func (f *fakeRepo) Activate(ctx context.Context, societyID int64, ids []int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "activate")
	if err := f.fail(); err != nil {
		return 0, err
	}
	return f.setStatus(ids, StatusActive), nil
}

func (f *fakeRepo) Deactivate(ctx context.Context, societyID int64, ids []int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "deactivate")
	if err := f.fail(); err != nil {
		return 0, err
	}
	return f.setStatus(ids, StatusInactive), nil
}

func (f *fakeRepo) Duplicate(ctx context.Context, societyID int64, ids []int64) ([]Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "duplicate")
	if err := f.fail(); err != nil {
		return nil, err
	}
	taken := map[string]struct{}{}
	for _, r := range f.records {
		taken[r.Name] = struct{}{}
	}
	var created []Role
	for _, id := range ids {
		idx := slices.IndexFunc(f.records, func(r Role) bool { return r.ID == id })
		if idx < 0 {
			return nil, fmt.Errorf("duplicate %d: %w", id, ErrNotFound)
		}
		dup := duplicateOf(f.records[idx], taken)
		taken[dup.Name] = struct{}{}
		f.nextID++
		dup.ID = f.nextID
		f.records = append(f.records, dup)
		created = append(created, dup)
	}
	return created, nil
}

func (f *fakeRepo) Delete(ctx context.Context, societyID int64, ids []int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete")
	if err := f.fail(); err != nil {
		return 0, err
	}
	for _, r := range f.records {
		if slices.Contains(ids, r.ID) && r.Type == TypeSystem {
			return 0, ErrSystemRole
		}
	}
	kept := make([]Role, 0, len(f.records))
	var n int64
	for _, r := range f.records {
		if slices.Contains(ids, r.ID) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	f.records = kept
	return n, nil
}

type recordedAudit struct {
	entries []shared.AuditLog
}

func (a *recordedAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.entries = append(a.entries, log)
	return nil
}

type recordedNotices struct {
	notices []BulkNotice
	err     error
}

func (n *recordedNotices) NotifyBulk(ctx context.Context, notice BulkNotice) error {
	n.notices = append(n.notices, notice)
	return n.err
}

type countingMetrics struct {
	bulk   map[string]int
	hits   int
	misses int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{bulk: map[string]int{}}
}

func (m *countingMetrics) RecordBulkAction(action, outcome string) {
	m.bulk[action+":"+outcome]++
}

func (m *countingMetrics) RecordCacheLookup(hit bool) {
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

var errStoreDown = errors.New("store down")
