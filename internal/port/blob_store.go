package port

import (
	"context"
	"io"
	"time"
)

type BlobDriver string

const (
	BlobDriverFS BlobDriver = "fs"
	BlobDriverS3 BlobDriver = "s3"
)

type BlobInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
	URL          string    `json:"url,omitempty"`
}

// BlobStore receives exported reports. Keys are never overwritten.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (BlobInfo, error)
	Get(ctx context.Context, key string) (BlobInfo, io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Driver() BlobDriver
}
