package storagesvc_test

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahimaacademy/academy/core"
	storagesvc "github.com/mahimaacademy/academy/services/storage"
)

const mediaURL = "http://localhost:8000/media"

func TestBuckets(t *testing.T) {
	conf := &core.Config{}
	conf.Storage.Dir = filepath.Join(t.TempDir(), "media")
	conf.Storage.BaseURL = mediaURL
	local, err := storagesvc.NewLocalBucket(conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = local.Close() })

	memConf := &core.Config{}
	memConf.Storage.URL = "mem://"
	memConf.Storage.BaseURL = mediaURL
	mem, err := storagesvc.NewBucket(context.Background(), memConf)
	require.NoError(t, err)

	buckets := map[string]*storagesvc.Bucket{
		"local":  local,
		"memory": storagesvc.NewMemoryBucket(mediaURL),
		"url":    mem,
	}
	for name, bucket := range buckets {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			url, err := bucket.Upload(ctx, "receipts/u-1_1.png", "image/png", []byte("png"))
			require.NoError(t, err)
			assert.Equal(t, mediaURL+"/receipts/u-1_1.png", url)

			_, err = bucket.Upload(ctx, "receipts/u-1_1.png", "image/png", []byte("other"))
			assert.Equal(t, storagesvc.ErrObjectExists, err)

			for _, key := range []string{"", "../secret", "receipts/../../x", "/"} {
				_, err = bucket.Upload(ctx, key, "image/png", []byte("png"))
				assert.Equal(t, storagesvc.ErrInvalidKey, err, key)
			}

			r, contentType, err := bucket.Open(ctx, "receipts/u-1_1.png")
			require.NoError(t, err)
			data, err := ioutil.ReadAll(r)
			require.NoError(t, r.Close())
			require.NoError(t, err)
			assert.Equal(t, "image/png", contentType)
			assert.Equal(t, "png", string(data))
			assert.Equal(t, []string{"receipts/u-1_1.png"}, bucket.Keys())

			require.NoError(t, bucket.Delete(ctx, "receipts/u-1_1.png"))
			require.NoError(t, bucket.Delete(ctx, "receipts/u-1_1.png"))
			_, _, err = bucket.Open(ctx, "receipts/u-1_1.png")
			assert.Equal(t, core.ErrObjectNotFound, err)
			_, _, err = bucket.Open(ctx, "../secret")
			assert.Equal(t, core.ErrObjectNotFound, err)

			_, err = bucket.Upload(ctx, "receipts/u-1_1.png", "image/jpeg", []byte("again"))
			assert.NoError(t, err)
			contentType, data, ok := bucket.Object("receipts/u-1_1.png")
			assert.True(t, ok)
			assert.Equal(t, "image/jpeg", contentType)
			assert.Equal(t, "again", string(data))
		})
	}

	data, err := ioutil.ReadFile(filepath.Join(local.Dir(), "receipts", "u-1_1.png"))
	require.NoError(t, err)
	assert.Equal(t, "again", string(data))
}

func TestBucket_FailUploads(t *testing.T) {
	bucket := storagesvc.NewMemoryBucket(mediaURL)
	bucket.FailUploads = core.NewTransientError(context.DeadlineExceeded)

	_, err := bucket.Upload(context.Background(), "receipts/u-1_1.png", "image/png", []byte("png"))
	assert.True(t, core.IsTransient(err))
	assert.Empty(t, bucket.Keys())
}
