package storage

import (
	"context"
	"fmt"
	"io"

	"listing-admin-api/internal/draft"
)

// ImageStore persists listing images and returns the URL the dashboard
// renders them from.
type ImageStore interface {
	Put(ctx context.Context, fileName string, size int64, r io.Reader) (string, error)
	// Delete removes a stored image. URLs the store does not own are ignored.
	Delete(ctx context.Context, url string) error
}

// InlineStore keeps image bytes inside the listing as data URIs. It needs no
// external service and suits development and tests.
type InlineStore struct{}

func NewInlineStore() *InlineStore { return &InlineStore{} }

// Put reads the image and encodes it as a data URI.
func (s *InlineStore) Put(ctx context.Context, fileName string, size int64, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(io.LimitReader(r, draft.MaxFileSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", fileName, err)
	}
	if len(data) > draft.MaxFileSize {
		return "", fmt.Errorf("%s exceeds %s", fileName, draft.FormatFileSize(draft.MaxFileSize))
	}
	return draft.DataURI(data), nil
}

// Delete is a no-op; inline images go away with their listing.
func (s *InlineStore) Delete(ctx context.Context, url string) error { return nil }

var _ ImageStore = (*InlineStore)(nil)
