package core

import (
	"context"
	"errors"
	"io"
)

var ErrObjectNotFound = errors.New("object not found")

type (
	// ObjectStorage stores immutable binary objects and exposes them under a public URL.
	ObjectStorage interface {
		// Upload writes data under key and returns its public URL.
		// An existing key is never overwritten.
		Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
		// Open reads the object under key along with the content type it was uploaded with.
		// It fails with ErrObjectNotFound for a missing key.
		Open(ctx context.Context, key string) (io.ReadCloser, string, error)
		Delete(ctx context.Context, key string) error
	}

	// EventPublisher publishes domain events, JSON encoded, under a routing key.
	EventPublisher interface {
		Publish(ctx context.Context, key string, event interface{}) error
		Close() error
	}
)
