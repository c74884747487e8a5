package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/radiusdt/campaign-studio/internal/models"
	storage "github.com/supabase-community/storage-go"
)

// SupabaseUploader stores creatives in a Supabase Storage bucket and
// returns their public URL.
type SupabaseUploader struct {
	client  *storage.Client
	bucket  string
	baseURL string
	newID   func() string
}

// NewSupabaseUploader creates an uploader for bucket.
func NewSupabaseUploader(supabaseURL, serviceKey, bucket string) *SupabaseUploader {
	baseURL := strings.TrimRight(supabaseURL, "/")
	return &SupabaseUploader{
		client:  storage.NewClient(baseURL+"/storage/v1", serviceKey, nil),
		bucket:  bucket,
		baseURL: baseURL,
		newID:   func() string { return uuid.New().String() },
	}
}

// UploadFile uploads under creatives/{uuid}/{name}. The storage client has
// no context support; ctx is only checked before the request.
func (s *SupabaseUploader) UploadFile(ctx context.Context, file models.PendingFile) (*models.UploadResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	objectPath := s.ObjectPath(file.Name)
	contentType := file.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	upsert := false

	if _, err := s.client.UploadFile(s.bucket, objectPath, bytes.NewReader(file.Data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}); err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", file.Name, err)
	}

	url := s.PublicURL(objectPath)
	raw, err := json.Marshal(map[string]string{"key": objectPath, "url": url})
	if err != nil {
		return nil, err
	}
	return &models.UploadResponse{URL: url, Raw: raw}, nil
}

// ObjectPath returns a unique bucket path for a file name.
func (s *SupabaseUploader) ObjectPath(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" {
		base = "file"
	}
	return fmt.Sprintf("creatives/%s/%s", s.newID(), base)
}

// PublicURL returns the public URL of an object in the bucket.
func (s *SupabaseUploader) PublicURL(objectPath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, objectPath)
}
