package enrollment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahimaacademy/academy/core/enrollment"
	dummydb "github.com/mahimaacademy/academy/storage/database/dummy"
)

// racingRepo lets a concurrent grant slip in between the lookup and the insert.
type racingRepo struct {
	enrollment.Repository
	raced bool
}

func (r *racingRepo) CreateGrant(ctx context.Context, grant enrollment.Grant) (enrollment.Grant, error) {
	if !r.raced {
		r.raced = true
		if _, err := r.Repository.CreateGrant(ctx, grant); err != nil {
			return enrollment.Grant{}, err
		}
	}
	return r.Repository.CreateGrant(ctx, grant)
}

func newService(t *testing.T) (*enrollment.Service, enrollment.Repository) {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewEnrollmentRepository(db)
	return enrollment.NewService(repo), repo
}

func TestService_Grant(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)

	has, err := svc.HasAccess(ctx, "u-1", "c-1")
	require.NoError(t, err)
	assert.False(t, has)

	grant, err := svc.Grant(ctx, "u-1", "c-1")
	require.NoError(t, err)
	assert.True(t, grant.IsActive())
	assert.Equal(t, grant.CreatedAt, grant.UpdatedAt)

	again, err := svc.Grant(ctx, "u-1", "c-1")
	require.NoError(t, err)
	assert.Equal(t, grant, again)

	n, err := repo.CountActiveGrants(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	has, err = svc.HasAccess(ctx, "u-1", "c-1")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = svc.HasAccess(ctx, "u-1", "c-2")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestService_Grant_lostRace(t *testing.T) {
	ctx := context.Background()
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := &racingRepo{Repository: dummydb.NewEnrollmentRepository(db)}
	svc := enrollment.NewService(repo)

	grant, err := svc.Grant(ctx, "u-1", "c-1")
	require.NoError(t, err)
	assert.True(t, grant.IsActive())

	n, err := repo.CountActiveGrants(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestService_Revoke(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	grant, err := svc.Grant(ctx, "u-1", "c-1")
	require.NoError(t, err)

	revoked, err := svc.Revoke(ctx, grant.ID)
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusInactive, revoked.Status)

	// no-op the second time
	again, err := svc.Revoke(ctx, grant.ID)
	require.NoError(t, err)
	assert.Equal(t, revoked, again)

	has, err := svc.HasAccess(ctx, "u-1", "c-1")
	require.NoError(t, err)
	assert.False(t, has)

	_, err = svc.Revoke(ctx, "6a1d0c55-2f3e-4b7a-8c9d-0e1f2a3b4c5d")
	assert.Equal(t, enrollment.ErrNotFound, err)

	// a later approval grants access again
	regranted, err := svc.Grant(ctx, "u-1", "c-1")
	require.NoError(t, err)
	assert.NotEqual(t, grant.ID, regranted.ID)
	grants, err := svc.QueryByUser(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, regranted.ID, grants[0].ID)
}
