// Package lesson holds the course content an active enrollment unlocks.
package lesson

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mahimaacademy/academy/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound      = errors.New("lesson not found")
	ErrSequenceTaken = errors.New("another lesson of the course has this sequence number")
	ErrNoAccess      = errors.New("course not purchased")
)

type Kind string

const (
	KindVideo Kind = "video"
	KindPDF   Kind = "pdf"
)

type Lesson struct {
	ID            string    `json:"id"`
	CourseID      string    `json:"course_id"`
	Title         string    `json:"title"`
	Kind          Kind      `json:"type"`
	ContentURL    string    `json:"content_url"`
	WatermarkText string    `json:"watermark_text"`
	SequenceNo    int       `json:"sequence_no"`
	CreatedAt     time.Time `json:"created_at"` // UTC
}

// NewLesson contains information needed to add a Lesson to a course.
// A zero SequenceNo appends the lesson after the last one.
type NewLesson struct {
	Title         string `json:"title" validate:"required,notblank,max=200"`
	Kind          Kind   `json:"type" validate:"required,oneof=video pdf"`
	ContentURL    string `json:"content_url" validate:"required,url"`
	WatermarkText string `json:"watermark_text" validate:"max=100"`
	SequenceNo    int    `json:"sequence_no" validate:"min=0"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	nl.Kind = Kind(core.CleanString(string(nl.Kind), true))
	nl.ContentURL = core.CleanString(nl.ContentURL)
	nl.WatermarkText = core.CleanString(nl.WatermarkText)
	return validate.Struct(nl)
}

type (
	Repository interface {
		// CreateLesson fails with course.ErrNotFound for an unknown course and ErrSequenceTaken
		// when the course already has a lesson at les.SequenceNo. A zero SequenceNo takes the next free one.
		CreateLesson(ctx context.Context, les Lesson) (Lesson, error)
		// QueryLessons lists the lessons of a course by ascending sequence number.
		QueryLessons(ctx context.Context, courseID string) ([]Lesson, error)
		DeleteLesson(ctx context.Context, courseID, id string) error
	}

	// AccessChecker tells whether a user holds an active grant for a course.
	AccessChecker interface {
		HasAccess(ctx context.Context, userID, courseID string) (bool, error)
	}

	Service struct {
		repo   Repository
		access AccessChecker
	}
)

func NewService(repo Repository, access AccessChecker) *Service {
	return &Service{repo: repo, access: access}
}

func (svc *Service) Create(ctx context.Context, courseID string, nl NewLesson) (Lesson, error) {
	return svc.repo.CreateLesson(ctx, Lesson{
		CourseID:      courseID,
		Title:         nl.Title,
		Kind:          nl.Kind,
		ContentURL:    nl.ContentURL,
		WatermarkText: nl.WatermarkText,
		SequenceNo:    nl.SequenceNo,
		CreatedAt:     NowFunc().UTC(),
	})
}

// List returns every lesson of the course, regardless of who asks.
func (svc *Service) List(ctx context.Context, courseID string) ([]Lesson, error) {
	return svc.repo.QueryLessons(ctx, courseID)
}

// ListUnlocked returns the lessons of the course if userID has an active enrollment for it,
// ErrNoAccess otherwise.
func (svc *Service) ListUnlocked(ctx context.Context, userID, courseID string) ([]Lesson, error) {
	ok, err := svc.access.HasAccess(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoAccess
	}
	return svc.repo.QueryLessons(ctx, courseID)
}

func (svc *Service) Delete(ctx context.Context, courseID, id string) error {
	return svc.repo.DeleteLesson(ctx, courseID, id)
}
