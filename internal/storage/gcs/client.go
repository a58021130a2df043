// Package gcs adapts Cloud Storage to the object store contract the
// orchestration core consumes: durable gs:// references in, bytes and
// time-limited URLs out.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

type Client struct {
	client *storage.Client
	bucket string
}

func NewClient(ctx context.Context, bucket string) (*Client, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket is empty")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &Client{client: client, bucket: bucket}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Put writes bytes under path and returns the durable reference.
func (c *Client) Put(ctx context.Context, data []byte, path, contentType string) (string, error) {
	w := c.client.Bucket(c.bucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close object %s: %w", path, err)
	}
	return fmt.Sprintf("gs://%s/%s", c.bucket, path), nil
}

// SignedURL issues a time-limited GET URL for a durable reference.
func (c *Client) SignedURL(ctx context.Context, ref string, ttl time.Duration) (string, time.Time, error) {
	path, err := c.objectPath(ref)
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt := time.Now().Add(ttl)
	url, err := c.client.Bucket(c.bucket).SignedURL(path, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: expiresAt,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s: %w", ref, err)
	}
	return url, expiresAt, nil
}

// SignedPutURL issues a time-limited PUT URL so clients upload directly to
// the bucket. Returns the URL together with the durable reference the object
// will land at.
func (c *Client) SignedPutURL(ctx context.Context, path, contentType string, ttl time.Duration) (string, string, error) {
	url, err := c.client.Bucket(c.bucket).SignedURL(path, &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      "PUT",
		ContentType: contentType,
		Expires:     time.Now().Add(ttl),
	})
	if err != nil {
		return "", "", fmt.Errorf("sign put %s: %w", path, err)
	}
	return url, fmt.Sprintf("gs://%s/%s", c.bucket, path), nil
}

func (c *Client) Exists(ctx context.Context, ref string) (bool, error) {
	path, err := c.objectPath(ref)
	if err != nil {
		return false, err
	}
	_, err = c.client.Bucket(c.bucket).Object(path).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("attrs %s: %w", ref, err)
	}
	return true, nil
}

func (c *Client) Size(ctx context.Context, ref string) (int64, error) {
	path, err := c.objectPath(ref)
	if err != nil {
		return 0, err
	}
	attrs, err := c.client.Bucket(c.bucket).Object(path).Attrs(ctx)
	if err != nil {
		return 0, fmt.Errorf("attrs %s: %w", ref, err)
	}
	return attrs.Size, nil
}

func (c *Client) objectPath(ref string) (string, error) {
	prefix := "gs://" + c.bucket + "/"
	if !strings.HasPrefix(ref, prefix) {
		return "", fmt.Errorf("ref %q is not in bucket %s", ref, c.bucket)
	}
	return strings.TrimPrefix(ref, prefix), nil
}
