package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Signer turns a private object location into a time-limited HTTPS URL.
type Signer interface {
	SignedGetURL(ctx context.Context, location string, ttl time.Duration) (string, error)
}

type SignOptions struct {
	TTL time.Duration
}

// ParseGSURL splits gs://bucket/object/path into bucket and object name.
func ParseGSURL(location string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(location, "gs://")
	if !ok {
		return "", "", fmt.Errorf("not a gs:// location: %q", location)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("malformed gs:// location: %q", location)
	}
	return bucket, object, nil
}
