package roles

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// bulkCommand applies one bulk action to the cached collection first and
// to the store second. It keeps the records it touched so the collection
// can be put back when the store rejects the change.
type bulkCommand struct {
	action BulkAction
	ids    []int64
	before []Role
}

func newBulkCommand(action BulkAction, ids []int64) (*bulkCommand, error) {
	if len(ids) == 0 {
		return nil, userFacing(ErrEmptySelection, "Select at least one role first.")
	}
	switch action {
	case ActionActivate, ActionDeactivate, ActionDuplicate, ActionDelete:
	default:
		return nil, userFacing(fmt.Errorf("%w: %q", ErrInvalidAction, action), "Choose a bulk action.")
	}
	unique := slices.Clone(ids)
	slices.Sort(unique)
	return &bulkCommand{action: action, ids: slices.Compact(unique)}, nil
}

// Apply returns the collection with the action applied locally. Records
// passed in are not modified.
func (c *bulkCommand) Apply(records []Role, now time.Time) ([]Role, error) {
	index := make(map[int64]int, len(records))
	for i, role := range records {
		index[role.ID] = i
	}
	c.before = c.before[:0]
	for _, id := range c.ids {
		i, ok := index[id]
		if !ok {
			return nil, userFacing(fmt.Errorf("%w: role %d", ErrNotFound, id), "Some selected roles no longer exist. Refresh the list and try again.")
		}
		c.before = append(c.before, records[i])
	}
	if c.action == ActionDelete {
		for _, role := range c.before {
			if role.Type == TypeSystem {
				return nil, userFacing(ErrSystemRole, fmt.Sprintf("%q is a system role and cannot be deleted.", role.Name))
			}
		}
	}

	out := make([]Role, 0, len(records))
	for _, role := range records {
		if !slices.Contains(c.ids, role.ID) {
			out = append(out, role)
			continue
		}
		switch c.action {
		case ActionActivate:
			role.Status = StatusActive
			role.UpdatedAt = now
		case ActionDeactivate:
			role.Status = StatusInactive
			role.UpdatedAt = now
		case ActionDelete:
			continue
		}
		out = append(out, role)
	}
	return out, nil
}

// Rollback restores the touched records into records.
func (c *bulkCommand) Rollback(records []Role) []Role {
	out := make([]Role, 0, len(records)+len(c.before))
	for _, role := range records {
		if !slices.Contains(c.ids, role.ID) {
			out = append(out, role)
		}
	}
	out = append(out, c.before...)
	slices.SortStableFunc(out, func(a, b Role) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// Persist writes the action to the store.
func (c *bulkCommand) Persist(ctx context.Context, repo RepositoryPort, societyID int64) (BulkResult, error) {
	res := BulkResult{Action: c.action}
	var (
		n   int64
		err error
	)
	switch c.action {
	case ActionActivate:
		n, err = repo.Activate(ctx, societyID, c.ids)
	case ActionDeactivate:
		n, err = repo.Deactivate(ctx, societyID, c.ids)
	case ActionDelete:
		n, err = repo.Delete(ctx, societyID, c.ids)
	case ActionDuplicate:
		res.Created, err = repo.Duplicate(ctx, societyID, c.ids)
		n = int64(len(res.Created))
	}
	if err != nil {
		return BulkResult{}, err
	}
	res.Affected = int(n)
	return res, nil
}
