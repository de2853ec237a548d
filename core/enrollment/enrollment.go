package enrollment

import (
	"context"
	"errors"
	"time"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound = errors.New("enrollment not found")
	// ErrActiveExists is returned by Repository.CreateGrant when the pair already holds an active grant.
	ErrActiveExists = errors.New("an active enrollment already exists for this user and course")
)

// Grant authorizes a user's access to a course.
type Grant struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CourseID  string    `json:"course_id"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (g Grant) IsActive() bool { return g.Status == StatusActive }

// GrantDetail is a Grant joined with the course it unlocks.
type GrantDetail struct {
	Grant
	CourseTitle    string `json:"course_title"`
	CourseImageURL string `json:"course_image_url"`
}

type (
	Repository interface {
		GetGrant(ctx context.Context, id string) (Grant, error)
		GetActiveGrant(ctx context.Context, userID, courseID string) (Grant, error)
		// CreateGrant fails with ErrActiveExists when an active grant exists for the same pair.
		CreateGrant(ctx context.Context, grant Grant) (Grant, error)
		// QueryUserGrants lists the active grants of a user, newest first.
		QueryUserGrants(ctx context.Context, userID string) ([]GrantDetail, error)
		UpdateGrantStatus(ctx context.Context, id string, status Status, at time.Time) (Grant, error)
		CountActiveGrants(ctx context.Context) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Grant gives userID access to courseID. It is idempotent: when the pair already holds an active
// grant, that grant is returned and nothing is created.
// Runs inside the caller's transaction when ctx carries one.
func (svc *Service) Grant(ctx context.Context, userID, courseID string) (Grant, error) {
	grant, err := svc.repo.GetActiveGrant(ctx, userID, courseID)
	if err == nil {
		return grant, nil
	}
	if err != ErrNotFound {
		return Grant{}, err
	}

	now := NowFunc().UTC()
	grant, err = svc.repo.CreateGrant(ctx, Grant{
		UserID:    userID,
		CourseID:  courseID,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err == ErrActiveExists { // lost a race against a concurrent grant
		return svc.repo.GetActiveGrant(ctx, userID, courseID)
	}
	return grant, err
}

// Revoke deactivates a grant. Revoking an inactive grant is a no-op.
func (svc *Service) Revoke(ctx context.Context, id string) (Grant, error) {
	grant, err := svc.repo.GetGrant(ctx, id)
	if err != nil {
		return Grant{}, err
	}
	if !grant.IsActive() {
		return grant, nil
	}
	return svc.repo.UpdateGrantStatus(ctx, id, StatusInactive, NowFunc().UTC())
}

func (svc *Service) HasAccess(ctx context.Context, userID, courseID string) (bool, error) {
	if _, err := svc.repo.GetActiveGrant(ctx, userID, courseID); err != nil {
		if err == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (svc *Service) QueryByUser(ctx context.Context, userID string) ([]GrantDetail, error) {
	return svc.repo.QueryUserGrants(ctx, userID)
}

func (svc *Service) CountActive(ctx context.Context) (int, error) {
	return svc.repo.CountActiveGrants(ctx)
}
