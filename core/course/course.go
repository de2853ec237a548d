package course

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mahimaacademy/academy/core"
)

var (
	NowFunc = time.Now // mockable

	DefaultImageURL = "https://placehold.co/600x400/png"

	// errors
	ErrNotFound = errors.New("course not found")
	ErrInUse    = errors.New("course has payment requests and cannot be deleted")
)

type Course struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Grade       string          `json:"grade"`
	ImageURL    string          `json:"image_url"`
	CreatedAt   time.Time       `json:"created_at"` // UTC
	UpdatedAt   time.Time       `json:"updated_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title       string          `json:"title" validate:"required,notblank,max=200"`
	Description string          `json:"description" validate:"max=5000"`
	Price       decimal.Decimal `json:"price" validate:"required,gt=0"`
	Grade       string          `json:"grade" validate:"required,notblank,max=50"`
	ImageURL    string          `json:"image_url" validate:"omitempty,url"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Grade = core.CleanString(nc.Grade)
	nc.ImageURL = core.CleanString(nc.ImageURL)
	return validate.Struct(nc)
}

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		QueryCourses(ctx context.Context, ordering []core.DBOrdering) ([]Course, error)
		// DeleteCourse fails with ErrInUse when payment requests reference the course.
		DeleteCourse(ctx context.Context, id string) error
		CountCourses(ctx context.Context) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	now := NowFunc().UTC()
	crs := Course{
		Title:       nc.Title,
		Description: nc.Description,
		Price:       nc.Price.Round(2),
		Grade:       nc.Grade,
		ImageURL:    nc.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if crs.ImageURL == "" {
		crs.ImageURL = DefaultImageURL
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

// Query lists courses, newest first unless ordering says otherwise.
func (svc *Service) Query(ctx context.Context, ordering []core.DBOrdering) ([]Course, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	return svc.repo.QueryCourses(ctx, ordering)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteCourse(ctx, id)
}

func (svc *Service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountCourses(ctx)
}
