package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mahimaacademy/academy/core"
	"github.com/mahimaacademy/academy/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	defer repo.db.lock(ctx)()
	crs.ID = uuid.New().String()
	repo.db.tables.courses[crs.ID] = crs
	repo.db.tables.inserted(crs.ID)
	return crs, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	defer repo.db.lock(ctx)()
	if crs, ok := repo.db.tables.courses[id]; ok {
		return crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(ctx context.Context, ordering []core.DBOrdering) ([]course.Course, error) {
	defer repo.db.lock(ctx)()

	courses := make([]course.Course, 0, len(repo.db.tables.courses))
	for _, crs := range repo.db.tables.courses {
		courses = append(courses, crs)
	}
	order := repo.db.tables.order
	sort.SliceStable(courses, func(i, j int) bool {
		a, b := courses[i], courses[j]
		for _, ord := range ordering {
			var cmp int
			switch ord.Field {
			case "created_at":
				switch {
				case a.CreatedAt.Before(b.CreatedAt):
					cmp = -1
				case a.CreatedAt.After(b.CreatedAt):
					cmp = 1
				}
			case "price":
				cmp = a.Price.Cmp(b.Price)
			case "title":
				cmp = strings.Compare(a.Title, b.Title)
			}
			if cmp != 0 {
				return (cmp < 0) == ord.Ascending
			}
		}
		return order[a.ID] > order[b.ID]
	})
	return courses, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string) error {
	defer repo.db.lock(ctx)()
	if _, ok := repo.db.tables.courses[id]; !ok {
		return course.ErrNotFound
	}
	for _, pr := range repo.db.tables.payments {
		if pr.CourseID == id {
			return course.ErrInUse
		}
	}
	for gid, grant := range repo.db.tables.grants {
		if grant.CourseID == id {
			delete(repo.db.tables.grants, gid)
		}
	}
	for lid, les := range repo.db.tables.lessons {
		if les.CourseID == id {
			delete(repo.db.tables.lessons, lid)
		}
	}
	delete(repo.db.tables.courses, id)
	return nil
}

func (repo *courseRepository) CountCourses(ctx context.Context) (int, error) {
	defer repo.db.lock(ctx)()
	return len(repo.db.tables.courses), nil
}
