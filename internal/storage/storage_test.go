package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupabaseUpload(t *testing.T) {
	var gotPath, gotAuth, gotType, gotUpsert, gotBody string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotUpsert = r.Header.Get("x-upsert")
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"Key":"docs/cases/c1/passport/x-p.pdf"}`))
	}))
	defer srv.Close()

	s := NewSupabaseStorageWithURL(srv.URL+"/storage/v1", "secret", "docs")
	err := s.Upload(context.Background(), "cases/c1/passport/x-p.pdf", strings.NewReader("pdf-bytes"), 9, "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, "/storage/v1/object/docs/cases/c1/passport/x-p.pdf", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "application/pdf", gotType)
	assert.Equal(t, "false", gotUpsert)
	assert.Equal(t, "pdf-bytes", gotBody)
}

func TestSupabaseUploadErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"Duplicate"}`))
	}))
	defer srv.Close()

	s := NewSupabaseStorageWithURL(srv.URL, "secret", "docs")
	err := s.Upload(context.Background(), "k", strings.NewReader("x"), 1, "text/plain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")
	assert.Contains(t, err.Error(), "Duplicate")
}

func TestSupabaseDelete(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSupabaseStorageWithURL(srv.URL+"/", "secret", "docs")
	require.NoError(t, s.Delete(context.Background(), "/photos/c1/a.jpg"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/object/docs/photos/c1/a.jpg", gotPath)
}

type fakeS3 struct {
	put    *s3.PutObjectInput
	body   string
	delKey string
	err    error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.put = in
	data, _ := io.ReadAll(in.Body)
	f.body = string(data)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.delKey = aws.ToString(in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Storage(t *testing.T) {
	fake := &fakeS3{}
	s := NewS3Storage(fake, "bucket")

	require.NoError(t, s.Upload(context.Background(), "photos/c1/a.jpg", strings.NewReader("img"), 3, "image/jpeg"))
	assert.Equal(t, "bucket", aws.ToString(fake.put.Bucket))
	assert.Equal(t, "photos/c1/a.jpg", aws.ToString(fake.put.Key))
	assert.Equal(t, int64(3), aws.ToInt64(fake.put.ContentLength))
	assert.Equal(t, "img", fake.body)

	require.NoError(t, s.Delete(context.Background(), "photos/c1/a.jpg"))
	assert.Equal(t, "photos/c1/a.jpg", fake.delKey)

	fake.err = errors.New("denied")
	err := s.Upload(context.Background(), "k", strings.NewReader("x"), 1, "text/plain")
	require.ErrorIs(t, err, fake.err)
}
