package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mahimaacademy/academy/core"
	"github.com/mahimaacademy/academy/core/enrollment"
)

const grantColumns = `id, user_id, course_id, status, created_at, updated_at`

type grantRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	CourseID  string    `db:"course_id"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r grantRow) grant() enrollment.Grant {
	return enrollment.Grant{
		ID:        r.ID,
		UserID:    r.UserID,
		CourseID:  r.CourseID,
		Status:    enrollment.Status(r.Status),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type grantDetailRow struct {
	grantRow
	CourseTitle    string `db:"course_title"`
	CourseImageURL string `db:"course_image_url"`
}

type enrollmentRepository struct {
	executor
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db core.DBExecutor) *enrollmentRepository {
	return &enrollmentRepository{executor{db: db}}
}

func (repo enrollmentRepository) GetGrant(ctx context.Context, id string) (enrollment.Grant, error) {
	if !validID(id) {
		return enrollment.Grant{}, enrollment.ErrNotFound
	}
	var row grantRow
	q := `SELECT ` + grantColumns + ` FROM enrollments WHERE id = $1`
	if err := repo.getExec(ctx).GetContext(ctx, &row, q, id); err != nil {
		return enrollment.Grant{}, trapNoRows(err, enrollment.ErrNotFound, "finding enrollment")
	}
	return row.grant(), nil
}

func (repo enrollmentRepository) GetActiveGrant(ctx context.Context, userID, courseID string) (enrollment.Grant, error) {
	if !validID(userID) || !validID(courseID) {
		return enrollment.Grant{}, enrollment.ErrNotFound
	}
	var row grantRow
	q := `SELECT ` + grantColumns + ` FROM enrollments WHERE user_id = $1 AND course_id = $2 AND status = 'active'`
	if err := repo.getExec(ctx).GetContext(ctx, &row, q, userID, courseID); err != nil {
		return enrollment.Grant{}, trapNoRows(err, enrollment.ErrNotFound, "finding active enrollment")
	}
	return row.grant(), nil
}

// CreateGrant relies on the partial unique index over active grants. A conflict inserts nothing
// instead of failing, so a surrounding transaction stays usable.
func (repo enrollmentRepository) CreateGrant(ctx context.Context, grant enrollment.Grant) (enrollment.Grant, error) {
	row := grantRow{
		ID:        newID(),
		UserID:    grant.UserID,
		CourseID:  grant.CourseID,
		Status:    string(grant.Status),
		CreatedAt: grant.CreatedAt.UTC(),
		UpdatedAt: grant.UpdatedAt.UTC(),
	}
	q := `INSERT INTO enrollments (` + grantColumns + `)
		VALUES (:id, :user_id, :course_id, :status, :created_at, :updated_at)
		ON CONFLICT (user_id, course_id) WHERE status = 'active' DO NOTHING`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(ctx), q, row)
	if err != nil {
		return enrollment.Grant{}, wrapErr(err, "inserting enrollment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return enrollment.Grant{}, enrollment.ErrActiveExists
	}
	return row.grant(), nil
}

func (repo enrollmentRepository) QueryUserGrants(ctx context.Context, userID string) ([]enrollment.GrantDetail, error) {
	if !validID(userID) {
		return []enrollment.GrantDetail{}, nil
	}
	var rows []grantDetailRow
	q := `SELECT e.id, e.user_id, e.course_id, e.status, e.created_at, e.updated_at,
			c.title AS course_title, COALESCE(c.image_url, '') AS course_image_url
		FROM enrollments e
		JOIN courses c ON c.id = e.course_id
		WHERE e.user_id = $1 AND e.status = 'active'
		ORDER BY e.created_at DESC`
	if err := repo.getExec(ctx).SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, wrapErr(err, "querying enrollments")
	}
	grants := make([]enrollment.GrantDetail, 0, len(rows))
	for _, r := range rows {
		grants = append(grants, enrollment.GrantDetail{
			Grant:          r.grant(),
			CourseTitle:    r.CourseTitle,
			CourseImageURL: r.CourseImageURL,
		})
	}
	return grants, nil
}

func (repo enrollmentRepository) UpdateGrantStatus(ctx context.Context, id string, status enrollment.Status, at time.Time) (enrollment.Grant, error) {
	if !validID(id) {
		return enrollment.Grant{}, enrollment.ErrNotFound
	}
	var row grantRow
	q := `UPDATE enrollments SET status = $2, updated_at = $3 WHERE id = $1 RETURNING ` + grantColumns
	if err := repo.getExec(ctx).GetContext(ctx, &row, q, id, string(status), at.UTC()); err != nil {
		if isUniqueViolation(err, "enrollments_active_user_course_key") {
			return enrollment.Grant{}, enrollment.ErrActiveExists
		}
		return enrollment.Grant{}, trapNoRows(err, enrollment.ErrNotFound, "updating enrollment")
	}
	return row.grant(), nil
}

func (repo enrollmentRepository) CountActiveGrants(ctx context.Context) (int, error) {
	var n int
	if err := repo.getExec(ctx).GetContext(ctx, &n, `SELECT COUNT(*) FROM enrollments WHERE status = 'active'`); err != nil {
		return 0, wrapErr(err, "counting enrollments")
	}
	return n, nil
}
