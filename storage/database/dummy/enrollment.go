package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mahimaacademy/academy/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) activeGrant(userID, courseID string) (enrollment.Grant, bool) {
	for _, grant := range repo.db.tables.grants {
		if grant.UserID == userID && grant.CourseID == courseID && grant.IsActive() {
			return grant, true
		}
	}
	return enrollment.Grant{}, false
}

func (repo *enrollmentRepository) GetGrant(ctx context.Context, id string) (enrollment.Grant, error) {
	defer repo.db.lock(ctx)()
	if grant, ok := repo.db.tables.grants[id]; ok {
		return grant, nil
	}
	return enrollment.Grant{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) GetActiveGrant(ctx context.Context, userID, courseID string) (enrollment.Grant, error) {
	defer repo.db.lock(ctx)()
	if grant, ok := repo.activeGrant(userID, courseID); ok {
		return grant, nil
	}
	return enrollment.Grant{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) CreateGrant(ctx context.Context, grant enrollment.Grant) (enrollment.Grant, error) {
	defer repo.db.lock(ctx)()
	if grant.IsActive() {
		if _, exists := repo.activeGrant(grant.UserID, grant.CourseID); exists {
			return enrollment.Grant{}, enrollment.ErrActiveExists
		}
	}
	grant.ID = uuid.New().String()
	repo.db.tables.grants[grant.ID] = grant
	repo.db.tables.inserted(grant.ID)
	return grant, nil
}

func (repo *enrollmentRepository) QueryUserGrants(ctx context.Context, userID string) ([]enrollment.GrantDetail, error) {
	defer repo.db.lock(ctx)()

	grants := make([]enrollment.GrantDetail, 0)
	for _, grant := range repo.db.tables.grants {
		if grant.UserID != userID || !grant.IsActive() {
			continue
		}
		crs := repo.db.tables.courses[grant.CourseID]
		grants = append(grants, enrollment.GrantDetail{
			Grant:          grant,
			CourseTitle:    crs.Title,
			CourseImageURL: crs.ImageURL,
		})
	}
	order := repo.db.tables.order
	sort.Slice(grants, func(i, j int) bool {
		if !grants[i].CreatedAt.Equal(grants[j].CreatedAt) {
			return grants[i].CreatedAt.After(grants[j].CreatedAt)
		}
		return order[grants[i].ID] > order[grants[j].ID]
	})
	return grants, nil
}

func (repo *enrollmentRepository) UpdateGrantStatus(ctx context.Context, id string, status enrollment.Status, at time.Time) (enrollment.Grant, error) {
	defer repo.db.lock(ctx)()
	grant, ok := repo.db.tables.grants[id]
	if !ok {
		return enrollment.Grant{}, enrollment.ErrNotFound
	}
	if status == enrollment.StatusActive && !grant.IsActive() {
		if _, exists := repo.activeGrant(grant.UserID, grant.CourseID); exists {
			return enrollment.Grant{}, enrollment.ErrActiveExists
		}
	}
	grant.Status = status
	grant.UpdatedAt = at
	repo.db.tables.grants[id] = grant
	return grant, nil
}

func (repo *enrollmentRepository) CountActiveGrants(ctx context.Context) (int, error) {
	defer repo.db.lock(ctx)()
	var n int
	for _, grant := range repo.db.tables.grants {
		if grant.IsActive() {
			n++
		}
	}
	return n, nil
}
