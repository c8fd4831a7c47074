package storage

import (
	"context"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const defaultSignTTL = 15 * time.Minute

type GCSSigner struct {
	client *gcs.Client
	bucket string // when set, only this bucket may be signed
}

// NewGCSSigner uses application default credentials unless credentialsFile
// is given.
func NewGCSSigner(ctx context.Context, bucket, credentialsFile string) (*GCSSigner, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	c, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GCSSigner{client: c, bucket: bucket}, nil
}

func (s *GCSSigner) Close() error { return s.client.Close() }

func (s *GCSSigner) SignedGetURL(_ context.Context, location string, ttl time.Duration) (string, error) {
	bucket, object, err := ParseGSURL(location)
	if err != nil {
		return "", err
	}
	if s.bucket != "" && bucket != s.bucket {
		return "", &ForeignBucketError{Bucket: bucket}
	}
	if ttl <= 0 {
		ttl = defaultSignTTL
	}

	return s.client.Bucket(bucket).SignedURL(object, &gcs.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(ttl),
		Scheme:  gcs.SigningSchemeV4,
	})
}

type ForeignBucketError struct {
	Bucket string
}

func (e *ForeignBucketError) Error() string {
	return "refusing to sign object in bucket " + e.Bucket
}
