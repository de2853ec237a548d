package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/mahimaacademy/academy/core/course"
	"github.com/mahimaacademy/academy/core/lesson"
)

type lessonRepository struct {
	db *DB
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(db *DB) lesson.Repository {
	return &lessonRepository{db: db}
}

func (repo *lessonRepository) CreateLesson(ctx context.Context, les lesson.Lesson) (lesson.Lesson, error) {
	defer repo.db.lock(ctx)()
	if _, ok := repo.db.tables.courses[les.CourseID]; !ok {
		return lesson.Lesson{}, course.ErrNotFound
	}

	last := 0
	for _, other := range repo.db.tables.lessons {
		if other.CourseID != les.CourseID {
			continue
		}
		if other.SequenceNo == les.SequenceNo {
			return lesson.Lesson{}, lesson.ErrSequenceTaken
		}
		if other.SequenceNo > last {
			last = other.SequenceNo
		}
	}
	if les.SequenceNo == 0 {
		les.SequenceNo = last + 1
	}

	les.ID = uuid.New().String()
	repo.db.tables.lessons[les.ID] = les
	repo.db.tables.inserted(les.ID)
	return les, nil
}

func (repo *lessonRepository) QueryLessons(ctx context.Context, courseID string) ([]lesson.Lesson, error) {
	defer repo.db.lock(ctx)()
	lessons := make([]lesson.Lesson, 0)
	for _, les := range repo.db.tables.lessons {
		if les.CourseID == courseID {
			lessons = append(lessons, les)
		}
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].SequenceNo < lessons[j].SequenceNo })
	return lessons, nil
}

func (repo *lessonRepository) DeleteLesson(ctx context.Context, courseID, id string) error {
	defer repo.db.lock(ctx)()
	les, ok := repo.db.tables.lessons[id]
	if !ok || les.CourseID != courseID {
		return lesson.ErrNotFound
	}
	delete(repo.db.tables.lessons, id)
	return nil
}
