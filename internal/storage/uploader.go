// Package storage issues short-lived write URLs for post images.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/anonto42/thunderlink/backend/internal/util"
)

var (
	// ErrUnavailable is returned when no bucket is configured
	ErrUnavailable = errors.New("object storage not configured")
	// ErrInvalidFileName is returned for names with no usable base name
	ErrInvalidFileName = errors.New("invalid file name")
)

// DefaultURLExpiry is how long a signed upload URL stays valid
const DefaultURLExpiry = 15 * time.Minute

// Uploader hands out a URL the client can PUT an image to
type Uploader interface {
	IssueUploadURL(ctx context.Context, ownerID, fileName, mimeType string) (string, error)
}

// SignFunc signs object with opts, see gcs.BucketHandle.SignedURL
type SignFunc func(object string, opts *gcs.SignedURLOptions) (string, error)

// BucketUploader signs V4 PUT URLs on a Firebase / GCS bucket
type BucketUploader struct {
	Sign   SignFunc
	Expiry time.Duration
	Clock  util.Clock
}

// NewBucketUploader creates an uploader for bucket
func NewBucketUploader(bucket *gcs.BucketHandle, expiry time.Duration) *BucketUploader {
	if expiry <= 0 {
		expiry = DefaultURLExpiry
	}
	return &BucketUploader{
		Sign:   bucket.SignedURL,
		Expiry: expiry,
		Clock:  util.NewRealClock(),
	}
}

// ObjectKey returns the bucket key an upload of fileName by ownerID is stored under
func ObjectKey(ownerID, fileName string, at time.Time) (string, error) {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "", ErrInvalidFileName
	}
	return fmt.Sprintf("uploads/%s/posts/%s-%d", ownerID, name, at.UnixMilli()), nil
}

func (u *BucketUploader) IssueUploadURL(ctx context.Context, ownerID, fileName, mimeType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	now := u.Clock.NowUtc()
	key, err := ObjectKey(ownerID, fileName, now)
	if err != nil {
		return "", err
	}

	url, err := u.Sign(key, &gcs.SignedURLOptions{
		Scheme:      gcs.SigningSchemeV4,
		Method:      http.MethodPut,
		ContentType: mimeType,
		Expires:     now.Add(u.Expiry),
	})
	if err != nil {
		return "", fmt.Errorf("sign upload url for %s: %w", key, err)
	}
	return url, nil
}

// NopUploader is used when no bucket is configured
type NopUploader struct{}

func (NopUploader) IssueUploadURL(context.Context, string, string, string) (string, error) {
	return "", ErrUnavailable
}
