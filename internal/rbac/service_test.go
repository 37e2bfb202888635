package rbac

import (
	"context"
	"errors"
	"regexp"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/societyhub/societyhub/internal/shared"
)

func TestEffectivePermissions(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT DISTINCT unnest(r.capabilities) AS capability FROM roles r JOIN user_roles ur ON ur.role_id = r.id WHERE r.society_id = $1 AND r.status = $2 AND ur.user_id = $3 ORDER BY capability",
	)).
		WithArgs(int64(9), "ACTIVE", int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"capability"}).AddRow("roles.edit").AddRow("roles.view"))

	perms, err := NewService(mock).EffectivePermissions(context.Background(), 5, 9)
	require.NoError(t, err)
	assert.Equal(t, []string{"roles.edit", "roles.view"}, perms)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEffectivePermissionsNoRoles(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT DISTINCT").
		WithArgs(int64(9), "ACTIVE", int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"capability"}))

	perms, err := NewService(mock).EffectivePermissions(context.Background(), 5, 9)
	require.NoError(t, err)
	assert.NotNil(t, perms)
	assert.Empty(t, perms)
}

func TestAssignRole(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_roles (user_id,role_id) VALUES ($1,$2) ON CONFLICT DO NOTHING")).
		WithArgs(int64(5), int64(3)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewService(mock).AssignRole(context.Background(), 5, 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveRole(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	stmt := regexp.QuoteMeta("DELETE FROM user_roles WHERE role_id = $1 AND user_id = $2")
	mock.ExpectExec(stmt).WithArgs(int64(3), int64(5)).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(stmt).WithArgs(int64(3), int64(5)).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(stmt).WithArgs(int64(3), int64(5)).WillReturnError(errors.New("conn reset"))

	svc := NewService(mock)
	require.NoError(t, svc.RemoveRole(context.Background(), 5, 3))
	assert.ErrorIs(t, svc.RemoveRole(context.Background(), 5, 3), ErrNotFound)
	assert.ErrorContains(t, svc.RemoveRole(context.Background(), 5, 3), "conn reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogueMatchesCapabilities(t *testing.T) {
	perms := Catalogue()
	require.Len(t, perms, len(shared.Capabilities()))
	for _, p := range perms {
		assert.True(t, p.Name.Valid())
		assert.NotEmpty(t, p.Description)
	}
}
