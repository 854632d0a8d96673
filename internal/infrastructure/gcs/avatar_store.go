// Package gcs stores avatar images in Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/oksasatya/account-service/internal/application"
	"github.com/oksasatya/account-service/pkg/helpers"
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

type AvatarStore struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewAvatarStore(client *storage.Client, bucket, baseURL string) *AvatarStore {
	return &AvatarStore{client: client, bucket: bucket, baseURL: baseURL}
}

func (s *AvatarStore) Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	if !allowedTypes[strings.ToLower(contentType)] {
		return "", fmt.Errorf("%w: %q", application.ErrInvalidAvatar, contentType)
	}
	if err := helpers.UploadObject(ctx, s.client, s.bucket, objectPath, contentType, "public, max-age=86400", r); err != nil {
		return "", err
	}
	return helpers.PublicURL(s.baseURL, s.bucket, objectPath), nil
}
