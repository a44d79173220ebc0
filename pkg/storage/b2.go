package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kurin/blazer/b2"
)

// B2Storage keeps files in a public Backblaze B2 bucket.
type B2Storage struct {
	client *b2.Client
	bucket *b2.Bucket
}

// NewB2Storage authorises the account and resolves the bucket.
func NewB2Storage(ctx context.Context, accountID, appKey, bucketName string) (*B2Storage, error) {
	if accountID == "" || appKey == "" || bucketName == "" {
		return nil, errors.New("b2 storage requires account id, application key and bucket")
	}
	client, err := b2.NewClient(ctx, accountID, appKey)
	if err != nil {
		return nil, fmt.Errorf("create b2 client: %w", err)
	}
	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("get b2 bucket: %w", err)
	}
	return &B2Storage{client: client, bucket: bucket}, nil
}

// Put uploads the object.
func (s *B2Storage) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}
	w := s.bucket.Object(cleaned).NewWriter(ctx)
	if contentType != "" {
		w = w.WithAttrs(&b2.Attrs{ContentType: contentType})
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("write b2 object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close b2 writer: %w", err)
	}
	return nil
}

// URL returns the public download URL of the object.
func (s *B2Storage) URL(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return s.bucket.Object(cleaned).URL(), nil
}

// Delete removes the object. Missing objects are ignored.
func (s *B2Storage) Delete(ctx context.Context, key string) error {
	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := s.bucket.Object(cleaned).Delete(ctx); err != nil && !b2.IsNotExist(err) {
		return fmt.Errorf("delete b2 object: %w", err)
	}
	return nil
}
