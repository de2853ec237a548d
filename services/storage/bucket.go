// Package storagesvc holds the object storage backends for uploaded files.
package storagesvc

import (
	"context"
	"io"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"

	"github.com/mahimaacademy/academy/core"
)

var (
	ErrObjectExists = errors.New("object already exists")
	ErrInvalidKey   = errors.New("invalid object key")
)

// Bucket is a write-once gocloud bucket whose objects are public under baseURL.
// Uploading to an existing key fails with ErrObjectExists.
type Bucket struct {
	bucket  *blob.Bucket
	baseURL string
	dir     string

	// serializes the existence check and the write of a key
	mu sync.Mutex
	// FailUploads makes every upload fail with the given error.
	FailUploads error
}

var _ core.ObjectStorage = (*Bucket)(nil)

// NewBucket opens conf.Storage.URL when set, a file bucket under conf.Storage.Dir otherwise.
func NewBucket(ctx context.Context, conf *core.Config) (*Bucket, error) {
	if conf.Storage.URL == "" {
		return NewLocalBucket(conf)
	}
	bucket, err := blob.OpenBucket(ctx, conf.Storage.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "opening bucket %s", conf.Storage.URL)
	}
	return &Bucket{bucket: bucket, baseURL: conf.Storage.BaseURL}, nil
}

// NewLocalBucket keeps objects as files under conf.Storage.Dir.
func NewLocalBucket(conf *core.Config) (*Bucket, error) {
	if err := os.MkdirAll(conf.Storage.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating storage dir")
	}
	bucket, err := fileblob.OpenBucket(conf.Storage.Dir, nil)
	if err != nil {
		return nil, errors.Wrap(err, "opening file bucket")
	}
	return &Bucket{bucket: bucket, baseURL: conf.Storage.BaseURL, dir: conf.Storage.Dir}, nil
}

// NewMemoryBucket keeps objects in memory.
func NewMemoryBucket(baseURL string) *Bucket {
	return &Bucket{bucket: memblob.OpenBucket(nil), baseURL: baseURL}
}

// Dir is the root directory of a file bucket, empty for other buckets.
func (b *Bucket) Dir() string { return b.dir }

// cleanKey rejects keys escaping the bucket.
func cleanKey(key string) (string, error) {
	clean := path.Clean("/" + key)[1:]
	if clean == "" || clean != strings.TrimPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	return clean, nil
}

func (b *Bucket) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailUploads != nil {
		return "", b.FailUploads
	}

	exists, err := b.bucket.Exists(ctx, key)
	if err != nil {
		return "", errors.Wrap(err, "checking object")
	}
	if exists {
		return "", ErrObjectExists
	}
	// an empty content type is sniffed from data
	if err = b.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{ContentType: contentType}); err != nil {
		return "", errors.Wrap(err, "writing object")
	}
	return b.baseURL + "/" + key, nil
}

func (b *Bucket) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, "", core.ErrObjectNotFound
	}
	r, err := b.bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, "", core.ErrObjectNotFound
		}
		return nil, "", errors.Wrap(err, "opening object")
	}
	return r, r.ContentType(), nil
}

// Delete is a no-op for a missing key.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err = b.bucket.Delete(ctx, key); err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return errors.Wrap(err, "deleting object")
	}
	return nil
}

// Keys lists the stored keys, sorted.
func (b *Bucket) Keys() []string {
	keys := make([]string, 0)
	iter := b.bucket.List(nil)
	for {
		obj, err := iter.Next(context.Background())
		if err != nil {
			// io.EOF once listed
			return keys
		}
		keys = append(keys, obj.Key)
	}
}

// Object returns the content type and data stored under key.
func (b *Bucket) Object(key string) (string, []byte, bool) {
	r, contentType, err := b.Open(context.Background(), key)
	if err != nil {
		return "", nil, false
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return "", nil, false
	}
	return contentType, data, true
}

func (b *Bucket) Close() error {
	return b.bucket.Close()
}
