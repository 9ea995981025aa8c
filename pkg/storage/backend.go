// Package storage writes run artifacts to a local directory or S3.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// BlobStore defines the interface for abstract storage backends.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	// Location describes where key ends up, for logging.
	Location(key string) string
}

// Open resolves target: "s3://bucket/prefix" or a local directory.
// cfg is required only for S3 targets.
func Open(target string, cfg *aws.Config) (BlobStore, error) {
	if !strings.HasPrefix(target, "s3://") {
		return NewLocalStore(target), nil
	}

	rest := strings.TrimPrefix(target, "s3://")
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return nil, fmt.Errorf("invalid S3 target %q: missing bucket", target)
	}
	if cfg == nil {
		return nil, fmt.Errorf("S3 target %q requires an AWS session", target)
	}
	store := NewS3Store(*cfg, bucket)
	store.Prefix = strings.Trim(prefix, "/")
	return store, nil
}
