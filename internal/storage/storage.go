package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
)

const scheme = "s3://"

// Client abstracts the subset of S3 operations the tool needs. Locations are
// s3://bucket/key paths.
type Client interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
	Put(ctx context.Context, location string, body io.Reader, size int64, contentType string) error
}

var (
	defaultClient Client
)

// SetDefaultClient sets the global storage client used by the application.
func SetDefaultClient(c Client) {
	defaultClient = c
}

// DefaultClient returns the global storage client if one has been configured.
func DefaultClient() Client {
	return defaultClient
}

// IsRemote reports whether path names an object store location.
func IsRemote(path string) bool {
	return strings.HasPrefix(path, scheme)
}

// ParseLocation splits an s3://bucket/key path.
func ParseLocation(path string) (string, string, error) {
	if path == "" {
		return "", "", fmt.Errorf("empty s3 path")
	}
	if !IsRemote(path) {
		return "", "", fmt.Errorf("invalid s3 path %s", path)
	}
	trimmed := strings.TrimPrefix(path, scheme)
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid s3 path %s", path)
	}
	return parts[0], parts[1], nil
}
