package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/mahimaacademy/academy/core"
	"github.com/mahimaacademy/academy/core/course"
)

const courseColumns = `id, title, description, price, grade, image_url, created_at, updated_at`

var courseOrderingColumns = map[string]string{
	"created_at": "created_at",
	"price":      "price",
	"title":      "title",
}

type courseRow struct {
	ID          string          `db:"id"`
	Title       string          `db:"title"`
	Description null.String     `db:"description"`
	Price       decimal.Decimal `db:"price"`
	Grade       string          `db:"grade"`
	ImageURL    null.String     `db:"image_url"`
	CreatedAt   null.Time       `db:"created_at"`
	UpdatedAt   null.Time       `db:"updated_at"`
}

func toCourseRow(crs course.Course) courseRow {
	return courseRow{
		ID:          crs.ID,
		Title:       crs.Title,
		Description: null.NewString(crs.Description, crs.Description != ""),
		Price:       crs.Price,
		Grade:       crs.Grade,
		ImageURL:    null.NewString(crs.ImageURL, crs.ImageURL != ""),
		CreatedAt:   null.NewTime(crs.CreatedAt.UTC(), !crs.CreatedAt.IsZero()),
		UpdatedAt:   null.NewTime(crs.UpdatedAt.UTC(), !crs.UpdatedAt.IsZero()),
	}
}

func (r courseRow) course() course.Course {
	return course.Course{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description.String,
		Price:       r.Price,
		Grade:       r.Grade,
		ImageURL:    r.ImageURL.String,
		CreatedAt:   r.CreatedAt.Time.UTC(),
		UpdatedAt:   r.UpdatedAt.Time.UTC(),
	}
}

type courseRepository struct {
	executor
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db core.DBExecutor) *courseRepository {
	return &courseRepository{executor{db: db}}
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = newID()
	row := toCourseRow(crs)
	q := `INSERT INTO courses (` + courseColumns + `)
		VALUES (:id, :title, :description, :price, :grade, :image_url, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(ctx), q, row); err != nil {
		return course.Course{}, wrapErr(err, "inserting course")
	}
	return row.course(), nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	if !validID(id) {
		return course.Course{}, course.ErrNotFound
	}
	var row courseRow
	q := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	if err := repo.getExec(ctx).GetContext(ctx, &row, q, id); err != nil {
		return course.Course{}, trapNoRows(err, course.ErrNotFound, "finding course")
	}
	return row.course(), nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, ordering []core.DBOrdering) ([]course.Course, error) {
	var rows []courseRow
	q := `SELECT ` + courseColumns + ` FROM courses` + orderBy(ordering, courseOrderingColumns)
	if err := repo.getExec(ctx).SelectContext(ctx, &rows, q); err != nil {
		return nil, wrapErr(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.course())
	}
	return courses, nil
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id string) error {
	if !validID(id) {
		return course.ErrNotFound
	}
	res, err := repo.getExec(ctx).ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return course.ErrInUse
		}
		return wrapErr(err, "deleting course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.ErrNotFound
	}
	return nil
}

func (repo courseRepository) CountCourses(ctx context.Context) (int, error) {
	var n int
	if err := repo.getExec(ctx).GetContext(ctx, &n, `SELECT COUNT(*) FROM courses`); err != nil {
		return 0, wrapErr(err, "counting courses")
	}
	return n, nil
}
