package roles

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/societyhub/societyhub/internal/shared"
)

func TestNewBulkCommandRejectsEmptySelection(t *testing.T) {
	_, err := newBulkCommand(ActionDelete, nil)
	require.ErrorIs(t, err, ErrEmptySelection)
	assert.Equal(t, "Select at least one role first.", shared.UserSafeMessage(err))

	_, err = newBulkCommand("archive", []int64{1})
	require.ErrorIs(t, err, ErrInvalidAction)
}

func TestNewBulkCommandDeduplicatesIDs(t *testing.T) {
	cmd, err := newBulkCommand(ActionActivate, []int64{4, 2, 4, 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 4}, cmd.ids)
}

func TestApplyStatusChange(t *testing.T) {
	records := sampleRoles()
	now := baseTime.Add(24 * time.Hour)
	cmd, err := newBulkCommand(ActionActivate, []int64{3})
	require.NoError(t, err)

	next, err := cmd.Apply(records, now)
	require.NoError(t, err)
	require.Len(t, next, 4)
	assert.Equal(t, StatusActive, next[2].Status)
	assert.Equal(t, now, next[2].UpdatedAt)
	assert.Equal(t, StatusInactive, records[2].Status, "input is not modified")
}

func TestApplyDeleteRemovesRows(t *testing.T) {
	cmd, err := newBulkCommand(ActionDelete, []int64{2, 4})
	require.NoError(t, err)

	next, err := cmd.Apply(sampleRoles(), baseTime)
	require.NoError(t, err)
	ids := make([]int64, 0, len(next))
	for _, r := range next {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int64{1, 3}, ids)
}

func TestApplyDeleteRefusesSystemRole(t *testing.T) {
	cmd, err := newBulkCommand(ActionDelete, []int64{1, 2})
	require.NoError(t, err)

	_, err = cmd.Apply(sampleRoles(), baseTime)
	require.ErrorIs(t, err, ErrSystemRole)
	assert.Equal(t, `"Society Administrator" is a system role and cannot be deleted.`, shared.UserSafeMessage(err))
}

func TestApplyMissingRole(t *testing.T) {
	cmd, err := newBulkCommand(ActionDeactivate, []int64{2, 99})
	require.NoError(t, err)

	_, err = cmd.Apply(sampleRoles(), baseTime)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, shared.UserSafeMessage(err), "no longer exist")
}

func TestRollbackRestoresSnapshot(t *testing.T) {
	records := sampleRoles()
	cmd, err := newBulkCommand(ActionDelete, []int64{2, 3})
	require.NoError(t, err)

	next, err := cmd.Apply(records, baseTime)
	require.NoError(t, err)
	require.Len(t, next, 2)

	assert.Equal(t, records, cmd.Rollback(next))
}

func TestRollbackAfterStatusChange(t *testing.T) {
	records := sampleRoles()
	cmd, err := newBulkCommand(ActionDeactivate, []int64{2})
	require.NoError(t, err)

	next, err := cmd.Apply(records, baseTime.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, records, cmd.Rollback(next))
}

func TestPersistDuplicateReportsCreated(t *testing.T) {
	repo := newFakeRepo(sampleRoles())
	cmd, err := newBulkCommand(ActionDuplicate, []int64{2})
	require.NoError(t, err)

	res, err := cmd.Persist(context.Background(), repo, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Affected)
	require.Len(t, res.Created, 1)
	assert.Equal(t, "Copy of Security Guard", res.Created[0].Name)
}
