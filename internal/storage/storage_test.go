package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"overthinkistan/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "")
	require.NoError(t, err)
	ctx := context.Background()

	url, err := store.Put(ctx, "posts/abc.png", "image/png", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/posts/abc.png", url)

	got, err := os.ReadFile(filepath.Join(dir, "posts", "abc.png"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))

	require.NoError(t, store.Delete(ctx, "posts/abc.png"))
	_, err = os.Stat(filepath.Join(dir, "posts", "abc.png"))
	assert.True(t, os.IsNotExist(err))

	// Deleting twice is fine.
	assert.NoError(t, store.Delete(ctx, "posts/abc.png"))
}

func TestLocalStore_BaseURL(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "https://cdn.example.com/")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "me.jpg", "image/jpeg", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/uploads/me.jpg", url)
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)

	for _, key := range []string{"", "../escape.png", "posts/../../x.png", "a//b.png", "./a.png"} {
		_, err := store.Put(context.Background(), key, "image/png", []byte("x"))
		assert.Error(t, err, key)
	}
}

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	deletes []*s3.DeleteObjectInput
	body    []byte
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.puts = append(f.puts, in)
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deletes = append(f.deletes, in)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store_Put(t *testing.T) {
	api := &fakeS3{}
	store := newS3Store(api, "media", "http://minio:9000/", "")

	url, err := store.Put(context.Background(), "posts/p.jpg", "image/jpeg", []byte("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000/media/posts/p.jpg", url)

	require.Len(t, api.puts, 1)
	in := api.puts[0]
	assert.Equal(t, "media", aws.ToString(in.Bucket))
	assert.Equal(t, "posts/p.jpg", aws.ToString(in.Key))
	assert.Equal(t, "image/jpeg", aws.ToString(in.ContentType))
	assert.Equal(t, int64(4), aws.ToInt64(in.ContentLength))
	assert.Equal(t, s3types.ObjectCannedACLPublicRead, in.ACL)
	assert.Equal(t, "jpeg", string(api.body))

	require.NoError(t, store.Delete(context.Background(), "posts/p.jpg"))
	require.Len(t, api.deletes, 1)
	assert.Equal(t, "posts/p.jpg", aws.ToString(api.deletes[0].Key))
}

func TestS3Store_PublicURLAndErrors(t *testing.T) {
	api := &fakeS3{}
	store := newS3Store(api, "media", "http://minio:9000", "https://cdn.example.com/")
	assert.Equal(t, "https://cdn.example.com/a.png", store.FileURL("a.png"))

	api.err = errors.New("access denied")
	_, err := store.Put(context.Background(), "a.png", "image/png", []byte("x"))
	assert.ErrorContains(t, err, "s3 upload media/a.png")
	assert.Error(t, store.Delete(context.Background(), "a.png"))
}

func TestNewS3Store_RequiresSettings(t *testing.T) {
	_, err := NewS3Store(S3Options{Bucket: "media"})
	assert.Error(t, err)

	store, err := NewS3Store(S3Options{
		Bucket:    "media",
		Region:    "us-east-1",
		Endpoint:  "http://localhost:9000",
		AccessKey: "key",
		SecretKey: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/media/x.png", store.FileURL("x.png"))
}

func TestNewStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(&config.Config{StorageDriver: "local", UploadDir: dir})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)

	store, err = NewStore(&config.Config{
		StorageDriver: "s3",
		S3Bucket:      "media",
		S3Endpoint:    "http://localhost:9000",
		S3AccessKey:   "key",
		S3SecretKey:   "secret",
	})
	require.NoError(t, err)
	assert.IsType(t, &S3Store{}, store)

	_, err = NewStore(&config.Config{StorageDriver: "ftp"})
	assert.Error(t, err)
}
