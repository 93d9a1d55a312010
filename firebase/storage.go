package firebase

import (
	"context"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"firebase.google.com/go/v4/storage"

	"storefront-backend/logger"
)

// StorageClient uploads files to the Firebase Storage bucket.
type StorageClient struct {
	client *storage.Client
	bucket string
	log    *logger.Logger
}

// Upload writes r to objectPath and returns its public URL.
func (s *StorageClient) Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	bucket, err := s.client.Bucket(s.bucket)
	if err != nil {
		return "", err
	}

	objectPath = sanitizeObjectPath(objectPath)
	obj := bucket.Object(objectPath)
	wc := obj.NewWriter(ctx)
	wc.ContentType = contentType

	if _, err := io.Copy(wc, r); err != nil {
		wc.Close()
		return "", err
	}

	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload: %w", err)
	}

	// Make object publicly readable so the URL works without authentication
	if err := obj.ACL().Set(ctx, gcs.AllUsers, gcs.RoleReader); err != nil {
		s.log.Warn(s.log.WithField(ctx, "object", objectPath), "failed to set public ACL: "+err.Error())
	}

	return PublicURL(s.bucket, objectPath), nil
}

func PublicURL(bucket, objectPath string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, objectPath)
}
