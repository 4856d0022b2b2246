package service

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-admin-api/internal/cache"
	"listing-admin-api/internal/draft"
	"listing-admin-api/internal/events"
	"listing-admin-api/internal/logger"
	"listing-admin-api/internal/model"
	"listing-admin-api/internal/repository"
	"listing-admin-api/internal/storage"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ListingEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e events.ListingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type catalogFixture struct {
	svc    *CatalogService
	repo   *repository.SQLiteListingRepository
	cache  *cache.MemoryCache
	events *recordingPublisher
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "catalog.db")
	repo, err := repository.NewSQLiteListingRepository(dsn, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	c := cache.NewMemoryCache(time.Minute)
	t.Cleanup(func() { c.Close() })

	pub := &recordingPublisher{}
	svc := NewCatalogService(repo, storage.NewInlineStore(), c, pub, time.Hour, logger.NewNop())
	return &catalogFixture{svc: svc, repo: repo, cache: c, events: pub}
}

func (f *catalogFixture) seed(t *testing.T, id string, features ...string) *model.Listing {
	t.Helper()
	now := time.Now().UTC()
	l := &model.Listing{
		ID:          id,
		Name:        "House " + id,
		Description: "Quiet street",
		SalePrice:   90000,
		SaleStatus:  model.SaleStatusOnSale,
		Longitude:   24.1,
		Latitude:    56.9,
		Features:    features,
		Images: []model.ListingImage{
			{FileName: "front.jpg", FileSize: "1.00 KB", URL: "data:,front"},
			{FileName: "back.jpg", FileSize: "1.00 KB", URL: "data:,back"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.repo.Create(context.Background(), l))
	return l
}

func fileHandle(name string, data []byte) *draft.FileHandle {
	return &draft.FileHandle{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func TestCatalogService_Create(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	id, err := f.svc.Create(ctx, draft.CreatePayload{
		Name:       "Loft",
		Desc:       "Top floor",
		SalePrice:  150000,
		SaleStatus: model.SaleStatusSold,
		Features:   []string{"Lift"},
		Longitude:  1.5,
		Latitude:   2.5,
		Images:     []*draft.FileHandle{fileHandle("a.png", []byte("\x89PNG\r\n\x1a\nrest"))},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	l, err := f.svc.GetListing(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Loft", l.Name)
	assert.Equal(t, []string{"Lift"}, l.Features)
	require.Len(t, l.Images, 1)
	assert.Equal(t, "a.png", l.Images[0].FileName)
	assert.Equal(t, "12.00 Bytes", l.Images[0].FileSize)
	assert.Contains(t, l.Images[0].URL, "data:image/png;base64,")
	assert.Equal(t, []string{events.ListingCreated}, f.events.types())
}

func TestCatalogService_FetchBaseline_NotFound(t *testing.T) {
	f := newCatalogFixture(t)

	_, err := f.svc.FetchBaseline(context.Background(), "missing")
	assert.ErrorIs(t, err, draft.ErrNotFound)
}

func TestCatalogService_GetListing_ReadsThroughCache(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	f.seed(t, "l-1", "Garden")

	_, err := f.svc.GetListing(ctx, "l-1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.Len())

	// A write that bypasses the service is not visible until invalidation.
	stored, err := f.repo.Get(ctx, "l-1")
	require.NoError(t, err)
	stored.Name = "Renamed"
	_, err = f.repo.Update(ctx, stored)
	require.NoError(t, err)

	cached, err := f.svc.GetListing(ctx, "l-1")
	require.NoError(t, err)
	assert.Equal(t, "House l-1", cached.Name)

	require.NoError(t, f.svc.ClearCache(ctx))
	fresh, err := f.svc.GetListing(ctx, "l-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", fresh.Name)
}

func TestCatalogService_ApplyEdit(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	f.seed(t, "l-1", "Balcony", "Lift")

	_, err := f.svc.GetListing(ctx, "l-1")
	require.NoError(t, err)

	err = f.svc.ApplyEdit(ctx, "l-1", draft.EditPayload{
		Name:            "House l-1 (renovated)",
		Desc:            "Quiet street",
		SaleStatus:      model.SaleStatusSold,
		Longitude:       24.1,
		Latitude:        56.9,
		FeaturesAdded:   []string{"Garden", "Balcony"},
		FeaturesRemoved: []string{"Lift"},
		ImagesAdded:     []*draft.FileHandle{fileHandle("side.jpg", []byte("jpeg"))},
		ImagesRemoved:   []string{"back.jpg"},
	})
	require.NoError(t, err)

	l, err := f.svc.GetListing(ctx, "l-1")
	require.NoError(t, err)
	assert.Equal(t, "House l-1 (renovated)", l.Name)
	assert.Equal(t, model.SaleStatusSold, l.SaleStatus)
	assert.Equal(t, 90000.0, l.SalePrice, "sale price is not part of an edit")
	assert.Equal(t, []string{"Balcony", "Garden"}, l.Features)

	names := make([]string, len(l.Images))
	for i, img := range l.Images {
		names[i] = img.FileName
	}
	assert.Equal(t, []string{"front.jpg", "side.jpg"}, names)
	assert.Equal(t, []string{events.ListingUpdated}, f.events.types())
}

func imageNames(l *model.Listing) []string {
	names := make([]string, len(l.Images))
	for i, img := range l.Images {
		names[i] = img.FileName
	}
	return names
}

func TestCatalogService_Create_UniqueImageNames(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	id, err := f.svc.Create(ctx, draft.CreatePayload{
		Name:       "Loft",
		Desc:       "Top floor",
		SaleStatus: model.SaleStatusOnSale,
		Features:   []string{"Lift"},
		Longitude:  1.5,
		Latitude:   2.5,
		Images: []*draft.FileHandle{
			fileHandle("photo.jpg", []byte("one")),
			fileHandle("photo.jpg", []byte("two")),
			fileHandle("photo.jpg", []byte("three")),
			fileHandle("plan", []byte("four")),
			fileHandle("plan", []byte("five")),
		},
	})
	require.NoError(t, err)

	l, err := f.svc.GetListing(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"photo.jpg", "photo (2).jpg", "photo (3).jpg", "plan", "plan (2)"}, imageNames(l))
}

func TestCatalogService_ApplyEdit_SameNamedImages(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	l := f.seed(t, "l-1", "Garden")
	l.Images = []model.ListingImage{
		{FileName: "photo.jpg", URL: "data:,a"},
		{FileName: "photo.jpg", URL: "data:,b"},
		{FileName: "other.jpg", URL: "data:,c"},
	}
	_, err := f.repo.Update(ctx, l)
	require.NoError(t, err)

	err = f.svc.ApplyEdit(ctx, "l-1", draft.EditPayload{
		Name:          l.Name,
		Desc:          l.Description,
		SaleStatus:    l.SaleStatus,
		Longitude:     l.Longitude,
		Latitude:      l.Latitude,
		ImagesAdded:   []*draft.FileHandle{fileHandle("other.jpg", []byte("new"))},
		ImagesRemoved: []string{"photo.jpg"},
	})
	require.NoError(t, err)

	got, err := f.svc.GetListing(ctx, "l-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"photo.jpg", "other.jpg", "other (2).jpg"}, imageNames(got))
	assert.Equal(t, "data:,b", got.Images[0].URL)
}

func TestCatalogService_ApplyEdit_NotFound(t *testing.T) {
	f := newCatalogFixture(t)

	err := f.svc.ApplyEdit(context.Background(), "missing", draft.EditPayload{Name: "x"})
	assert.ErrorIs(t, err, ErrListingNotFound)
	assert.Empty(t, f.events.types())
}

func TestCatalogService_DeleteListings(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	f.seed(t, "l-1")
	f.seed(t, "l-2")
	f.seed(t, "l-3")

	_, err := f.svc.GetListing(ctx, "l-1")
	require.NoError(t, err)

	n, err := f.svc.DeleteListings(ctx, []string{"l-1", "l-2", "nope"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = f.svc.GetListing(ctx, "l-1")
	assert.ErrorIs(t, err, ErrListingNotFound)

	listings, pager, err := f.svc.ListListings(ctx, model.ListingFilter{Page: 1})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "l-3", listings[0].ID)
	assert.Equal(t, int64(1), pager.Total)
	assert.Equal(t, 20, pager.Limit)
	assert.Equal(t, []string{events.ListingDeleted}, f.events.types())
}

func TestCatalogService_DeleteListings_Empty(t *testing.T) {
	f := newCatalogFixture(t)

	n, err := f.svc.DeleteListings(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, f.events.types())
}

func TestApplyFeatureDelta(t *testing.T) {
	tests := []struct {
		name    string
		current []string
		removed []string
		added   []string
		want    []string
	}{
		{"no change", []string{"a", "b"}, nil, nil, []string{"a", "b"}},
		{"remove then add same", []string{"a", "b"}, []string{"a"}, []string{"a"}, []string{"b", "a"}},
		{"dedup added", []string{"a"}, nil, []string{"a", "c", "c"}, []string{"a", "c"}},
		{"remove unknown", []string{"a"}, []string{"z"}, nil, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, applyFeatureDelta(tt.current, tt.removed, tt.added))
		})
	}
}

func TestUniqueName(t *testing.T) {
	taken := map[string]struct{}{"photo.jpg": {}, "photo (2).jpg": {}}

	assert.Equal(t, "photo (3).jpg", uniqueName("photo.jpg", taken))
	assert.Equal(t, "photo (4).jpg", uniqueName("photo.jpg", taken))
	assert.Equal(t, "photo (2) (2).jpg", uniqueName("photo (2).jpg", taken))
	assert.Equal(t, "new.png", uniqueName("new.png", taken))
	assert.Contains(t, taken, "new.png")
}

func TestRemoveImages_OnePerName(t *testing.T) {
	current := []model.ListingImage{
		{FileName: "photo.jpg", URL: "a"},
		{FileName: "photo.jpg", URL: "b"},
		{FileName: "other.jpg", URL: "c"},
	}

	kept, dropped := removeImages(current, []string{"photo.jpg", "missing.jpg"})

	require.Len(t, dropped, 1)
	assert.Equal(t, "a", dropped[0].URL)
	assert.Equal(t, []model.ListingImage{current[1], current[2]}, kept)
}
