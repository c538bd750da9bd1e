package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// SupabaseStorage stores objects in a Supabase Storage bucket.
type SupabaseStorage struct {
	baseURL    string
	bucketName string
	client     *resty.Client
}

// NewSupabaseStorage creates a client for https://<projectID>.supabase.co.
func NewSupabaseStorage(projectID, apiKey, bucketName string) *SupabaseStorage {
	return NewSupabaseStorageWithURL(fmt.Sprintf("https://%s.supabase.co/storage/v1", projectID), apiKey, bucketName)
}

// NewSupabaseStorageWithURL points the client at an explicit storage API
// root, e.g. a self-hosted instance.
func NewSupabaseStorageWithURL(baseURL, apiKey, bucketName string) *SupabaseStorage {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(2*time.Minute).
		SetAuthToken(apiKey).
		SetHeader("apikey", apiKey)

	return &SupabaseStorage{
		baseURL:    strings.TrimRight(baseURL, "/"),
		bucketName: bucketName,
		client:     client,
	}
}

func (s *SupabaseStorage) objectPath(key string) string {
	return fmt.Sprintf("/object/%s/%s", s.bucketName, strings.TrimLeft(key, "/"))
}

// Upload creates the object at key. Existing objects are never overwritten.
func (s *SupabaseStorage) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	req := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "false").
		SetBody(body)
	if size > 0 {
		req.SetContentLength(true)
	}

	resp, err := req.Post(s.objectPath(key))
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}

	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return fmt.Errorf("upload failed with status %d: %s", resp.StatusCode(), resp.String())
	}

	return nil
}

// Delete removes the object at key.
func (s *SupabaseStorage) Delete(ctx context.Context, key string) error {
	resp, err := s.client.R().
		SetContext(ctx).
		Delete(s.objectPath(key))
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusNoContent {
		return fmt.Errorf("delete failed with status %d: %s", resp.StatusCode(), resp.String())
	}

	return nil
}
