// Package remote syncs snapshot artifacts with an object store.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gocloud.dev/blob"
	// Registered bucket schemes: file://, mem:// and s3://.
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"
)

var (
	// ErrNotFound is returned by Get when the key does not exist.
	ErrNotFound = errors.New("remote object not found")
	// ErrUnavailable is returned when the object store cannot be reached.
	ErrUnavailable = errors.New("remote store unavailable")
)

// ObjectStore stores opaque objects by key.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Close() error
}

// BlobStore is an ObjectStore over a gocloud.dev bucket. All keys are placed
// under a fixed prefix.
type BlobStore struct {
	bucket *blob.Bucket
	url    string
	prefix string
}

// OpenBlobStore opens the bucket at bucketURL (e.g. "s3://bucket?region=ap-south-1",
// "file:///var/lib/eximrag", "mem://"). prefix is prepended to every key.
func OpenBlobStore(ctx context.Context, bucketURL, prefix string) (*BlobStore, error) {
	if strings.TrimSpace(bucketURL) == "" {
		return nil, errors.New("remote: bucket url is required")
	}
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("%w: open bucket %s: %w", ErrUnavailable, bucketURL, err)
	}
	return NewBlobStore(bucket, bucketURL, prefix), nil
}

// NewBlobStore wraps an already opened bucket.
func NewBlobStore(bucket *blob.Bucket, url, prefix string) *BlobStore {
	if prefix != "" {
		bucket = blob.PrefixedBucket(bucket, prefix)
	}
	return &BlobStore{bucket: bucket, url: url, prefix: prefix}
}

// Put writes data under key, replacing any existing object.
func (s *BlobStore) Put(ctx context.Context, key string, data []byte) error {
	if err := s.bucket.WriteAll(ctx, key, data, nil); err != nil {
		return s.wrap("put", key, err)
	}
	return nil
}

// Get reads the object stored under key.
func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		return nil, s.wrap("get", key, err)
	}
	return data, nil
}

// String describes the store location for logs.
func (s *BlobStore) String() string {
	return s.url + "#" + s.prefix
}

// Close releases the bucket.
func (s *BlobStore) Close() error {
	return s.bucket.Close()
}

func (s *BlobStore) wrap(op, key string, err error) error {
	if gcerrors.Code(err) == gcerrors.NotFound {
		return fmt.Errorf("%w: %s%s", ErrNotFound, s.prefix, key)
	}
	return fmt.Errorf("%w: %s %s%s: %w", ErrUnavailable, op, s.prefix, key, err)
}
