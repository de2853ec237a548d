package testutil

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mahimaacademy/academy/core/course"
	"github.com/mahimaacademy/academy/core/payment"
	"github.com/mahimaacademy/academy/core/user"
)

// pngSignature is enough for content sniffing to report image/png.
var pngSignature = []byte("\x89PNG\x0D\x0A\x1A\x0A")

// PNG returns a fake PNG image of size bytes.
func PNG(size int) []byte {
	if size < len(pngSignature) {
		size = len(pngSignature)
	}
	data := make([]byte, size)
	copy(data, pngSignature)
	return data
}

// PNGReader returns a fake PNG image of size bytes as a reader.
func PNGReader(size int) *bytes.Reader {
	return bytes.NewReader(PNG(size))
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(t *testing.T, repo course.Repository, title string, price int64, createdAt ...time.Time) course.Course {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	crs, err := repo.CreateCourse(context.Background(), course.Course{
		Title:     title,
		Price:     decimal.NewFromInt(price),
		Grade:     "Class 10",
		ImageURL:  course.DefaultImageURL,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	return crs
}

func CreatePaymentRequest(
	t *testing.T,
	repo payment.Repository,
	usr user.User,
	crs course.Course,
	ref string,
	status payment.Status,
	createdAt ...time.Time,
) payment.PaymentRequest {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	pr, err := repo.CreateRequest(context.Background(), payment.PaymentRequest{
		UserID:         usr.ID,
		CourseID:       crs.ID,
		Amount:         crs.Price,
		TransactionRef: ref,
		SenderName:     usr.Name,
		ProofURL:       "http://localhost:8000/media/receipts/" + usr.ID + ".png",
		Status:         status,
		CreatedAt:      tstamp,
	})
	if err != nil {
		t.Fatalf("createPaymentRequest() failed: %v", err)
	}
	return pr
}
