package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	storage_go "github.com/supabase-community/storage-go"
)

// SupabaseStore persists artifacts into a Supabase storage bucket. Objects
// are uploaded with upsert semantics so a retried completion does not fail
// on an existing key.
type SupabaseStore struct {
	client *storage_go.Client
	bucket string
	// publicBase is the computed public-object URL prefix, kept for
	// PublicBaseURL without another round trip.
	publicBase string
}

// SupabaseOptions configures a SupabaseStore.
type SupabaseOptions struct {
	// ProjectURL is the project base, e.g. https://abc.supabase.co.
	ProjectURL string
	ServiceKey string
	Bucket     string
}

// NewSupabaseStore builds a store for the configured bucket.
func NewSupabaseStore(opts SupabaseOptions) (*SupabaseStore, error) {
	projectURL := strings.TrimRight(strings.TrimSpace(opts.ProjectURL), "/")
	if projectURL == "" {
		return nil, errors.New("storage: supabase project url is required")
	}
	if strings.TrimSpace(opts.ServiceKey) == "" {
		return nil, errors.New("storage: supabase service key is required")
	}
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		return nil, errors.New("storage: supabase bucket is required")
	}
	client := storage_go.NewClient(projectURL+"/storage/v1", opts.ServiceKey, nil)
	return &SupabaseStore{
		client:     client,
		bucket:     bucket,
		publicBase: fmt.Sprintf("%s/storage/v1/object/public/%s", projectURL, bucket),
	}, nil
}

// PublicBaseURL returns the public-object URL prefix for the bucket.
func (s *SupabaseStore) PublicBaseURL() string {
	if s == nil {
		return ""
	}
	return s.publicBase
}

// Write uploads the bytes at the given key and returns the public URL.
func (s *SupabaseStore) Write(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if s == nil || s.client == nil {
		return "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	upsert := true
	opts := storage_go.FileOptions{Upsert: &upsert}
	if contentType = strings.TrimSpace(contentType); contentType != "" {
		opts.ContentType = &contentType
	}
	if _, err := s.client.UploadFile(s.bucket, cleanKey, bytes.NewReader(data), opts); err != nil {
		return "", fmt.Errorf("storage: upload %s: %w", cleanKey, err)
	}
	return s.client.GetPublicUrl(s.bucket, cleanKey).SignedURL, nil
}

var _ ObjectStore = (*SupabaseStore)(nil)
