package sqlxrepos

import (
	"context"

	"github.com/volatiletech/null/v8"

	"github.com/mahimaacademy/academy/core"
	"github.com/mahimaacademy/academy/core/course"
	"github.com/mahimaacademy/academy/core/lesson"
)

const lessonColumns = `id, course_id, title, kind, content_url, watermark_text, sequence_no, created_at`

type lessonRow struct {
	ID            string      `db:"id"`
	CourseID      string      `db:"course_id"`
	Title         string      `db:"title"`
	Kind          string      `db:"kind"`
	ContentURL    string      `db:"content_url"`
	WatermarkText null.String `db:"watermark_text"`
	SequenceNo    int         `db:"sequence_no"`
	CreatedAt     null.Time   `db:"created_at"`
}

func (r lessonRow) lesson() lesson.Lesson {
	return lesson.Lesson{
		ID:            r.ID,
		CourseID:      r.CourseID,
		Title:         r.Title,
		Kind:          lesson.Kind(r.Kind),
		ContentURL:    r.ContentURL,
		WatermarkText: r.WatermarkText.String,
		SequenceNo:    r.SequenceNo,
		CreatedAt:     r.CreatedAt.Time.UTC(),
	}
}

type lessonRepository struct {
	executor
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(db core.DBExecutor) *lessonRepository {
	return &lessonRepository{executor{db: db}}
}

func (repo lessonRepository) CreateLesson(ctx context.Context, les lesson.Lesson) (lesson.Lesson, error) {
	if !validID(les.CourseID) {
		return lesson.Lesson{}, course.ErrNotFound
	}
	les.ID = newID()

	// a zero sequence number appends; two concurrent appends collide on the unique key
	q := `INSERT INTO lessons (` + lessonColumns + `)
		SELECT $1, $2, $3, $4, $5, $6,
			CASE WHEN $7 > 0 THEN $7 ELSE COALESCE(MAX(sequence_no), 0) + 1 END, $8
		FROM lessons WHERE course_id = $2
		RETURNING ` + lessonColumns
	var row lessonRow
	err := repo.getExec(ctx).GetContext(ctx, &row, q,
		les.ID, les.CourseID, les.Title, string(les.Kind), les.ContentURL,
		null.NewString(les.WatermarkText, les.WatermarkText != ""), les.SequenceNo, les.CreatedAt.UTC())
	switch {
	case err == nil:
		return row.lesson(), nil
	case isForeignKeyViolation(err):
		return lesson.Lesson{}, course.ErrNotFound
	case isUniqueViolation(err, "lessons_course_id_sequence_no_key"):
		return lesson.Lesson{}, lesson.ErrSequenceTaken
	default:
		return lesson.Lesson{}, wrapErr(err, "inserting lesson")
	}
}

func (repo lessonRepository) QueryLessons(ctx context.Context, courseID string) ([]lesson.Lesson, error) {
	if !validID(courseID) {
		return []lesson.Lesson{}, nil
	}
	var rows []lessonRow
	q := `SELECT ` + lessonColumns + ` FROM lessons WHERE course_id = $1 ORDER BY sequence_no ASC`
	if err := repo.getExec(ctx).SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, wrapErr(err, "querying lessons")
	}
	lessons := make([]lesson.Lesson, 0, len(rows))
	for _, r := range rows {
		lessons = append(lessons, r.lesson())
	}
	return lessons, nil
}

func (repo lessonRepository) DeleteLesson(ctx context.Context, courseID, id string) error {
	if !validID(courseID) || !validID(id) {
		return lesson.ErrNotFound
	}
	res, err := repo.getExec(ctx).ExecContext(ctx, `DELETE FROM lessons WHERE id = $1 AND course_id = $2`, id, courseID)
	if err != nil {
		return wrapErr(err, "deleting lesson")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return lesson.ErrNotFound
	}
	return nil
}
