// Package storage keeps report photos.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/imagecodec"
)

// MaxObjectSize bounds how much of a stored photo is read back.
const MaxObjectSize = 10 << 20

// ErrForeignURL is returned by Get for URLs the store did not produce.
var ErrForeignURL = errors.New("storage: url not managed by this store")

// Store persists an image and returns a URL a client can render. Get
// loads an image back from a URL returned by Put.
type Store interface {
	Put(ctx context.Context, prefix string, img *imagecodec.Image) (string, error)
	Get(ctx context.Context, url string) (*imagecodec.Image, error)
}

// InlineStore keeps the image in the returned URL itself as a data URI.
// It is used when no bucket is configured.
type InlineStore struct{}

// NewInlineStore constructs an InlineStore.
func NewInlineStore() *InlineStore {
	return &InlineStore{}
}

// Put returns the image encoded as a data URI.
func (InlineStore) Put(_ context.Context, _ string, img *imagecodec.Image) (string, error) {
	if img == nil || len(img.Data) == 0 {
		return "", fmt.Errorf("storage: empty image")
	}
	return img.DataURI(), nil
}

// Get decodes a data URI produced by Put.
func (InlineStore) Get(_ context.Context, url string) (*imagecodec.Image, error) {
	if !strings.HasPrefix(url, "data:") {
		return nil, fmt.Errorf("%w: %.32s", ErrForeignURL, url)
	}
	return imagecodec.DecodeDataURI(url)
}

// ObjectKey builds a dated, collision-free key under prefix.
func ObjectKey(prefix, mimeType string, now time.Time) string {
	return path.Join(
		strings.Trim(prefix, "/"),
		now.UTC().Format("2006/01/02"),
		uuid.NewString()+extension(mimeType),
	)
}

func extension(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/heic":
		return ".heic"
	default:
		return ".bin"
	}
}
