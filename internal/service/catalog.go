package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"listing-admin-api/internal/cache"
	"listing-admin-api/internal/draft"
	"listing-admin-api/internal/events"
	"listing-admin-api/internal/listview"
	"listing-admin-api/internal/logger"
	"listing-admin-api/internal/model"
	"listing-admin-api/internal/repository"
	"listing-admin-api/internal/storage"
	"listing-admin-api/pkg/uid"
)

// ErrListingNotFound is returned when a listing does not exist.
var ErrListingNotFound = errors.New("listing not found")

// CatalogService handles listing business logic. It also backs editor
// sessions as their baseline supplier and completion target.
type CatalogService struct {
	repo     repository.ListingRepository
	images   storage.ImageStore
	cache    cache.Cache
	events   events.Publisher
	log      logger.Logger
	cacheTTL time.Duration
	now      func() time.Time
}

// NewCatalogService creates a new catalog service. A nil publisher drops events.
func NewCatalogService(
	repo repository.ListingRepository,
	images storage.ImageStore,
	c cache.Cache,
	publisher events.Publisher,
	cacheTTL time.Duration,
	log logger.Logger,
) *CatalogService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &CatalogService{
		repo:     repo,
		images:   images,
		cache:    c,
		events:   publisher,
		log:      log.With("component", "catalog"),
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// GetListing returns a listing, reading through the cache.
func (s *CatalogService) GetListing(ctx context.Context, id string) (*model.Listing, error) {
	data, err := s.cache.GetOrSet(ctx, cache.ListingKey(id), s.cacheTTL, func() ([]byte, error) {
		l, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if l == nil {
			return nil, ErrListingNotFound
		}
		return json.Marshal(l)
	})
	if err != nil {
		if errors.Is(err, ErrListingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get listing %s: %w", id, err)
	}

	var l model.Listing
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decode cached listing %s: %w", id, err)
	}
	return &l, nil
}

// FetchBaseline implements draft.Fetcher.
func (s *CatalogService) FetchBaseline(ctx context.Context, id string) (*model.Listing, error) {
	l, err := s.GetListing(ctx, id)
	if errors.Is(err, ErrListingNotFound) {
		return nil, draft.ErrNotFound
	}
	return l, err
}

// ListListings returns one page of listings and its pager.
func (s *CatalogService) ListListings(ctx context.Context, filter model.ListingFilter) ([]model.Listing, listview.Pager, error) {
	pager := listview.NewPager(filter.Page, filter.Limit, 0)
	filter.Page, filter.Limit = pager.Page, pager.Limit

	listings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pager, fmt.Errorf("list listings: %w", err)
	}
	pager.Total = total
	return listings, pager, nil
}

// Create implements draft.Completion. It uploads the images and stores a
// new listing.
func (s *CatalogService) Create(ctx context.Context, p draft.CreatePayload) (string, error) {
	images, err := s.upload(ctx, p.Images, make(map[string]struct{}))
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	l := &model.Listing{
		ID:          uid.New(),
		Name:        p.Name,
		Description: p.Desc,
		SalePrice:   p.SalePrice,
		SaleStatus:  p.SaleStatus,
		Longitude:   p.Longitude,
		Latitude:    p.Latitude,
		Features:    append([]string{}, p.Features...),
		Images:      images,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, l); err != nil {
		s.discard(images)
		return "", fmt.Errorf("create listing: %w", err)
	}

	s.log.Info("listing created", "listing_id", l.ID, "features", len(l.Features), "images", len(l.Images))
	s.publish(ctx, events.ListingCreated, l.ID)
	return l.ID, nil
}

// Update implements draft.Completion.
func (s *CatalogService) Update(ctx context.Context, id string, p draft.EditPayload) error {
	return s.ApplyEdit(ctx, id, p)
}

// ApplyEdit applies scalar fields and collection deltas to a stored listing.
// Removals are applied before additions. Each name in ImagesRemoved removes
// one image. Sale price is left unchanged.
func (s *CatalogService) ApplyEdit(ctx context.Context, id string, p draft.EditPayload) error {
	l, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load listing %s: %w", id, err)
	}
	if l == nil {
		return ErrListingNotFound
	}

	kept, dropped := removeImages(l.Images, p.ImagesRemoved)
	taken := make(map[string]struct{}, len(kept))
	for _, img := range kept {
		taken[img.FileName] = struct{}{}
	}
	added, err := s.upload(ctx, p.ImagesAdded, taken)
	if err != nil {
		return err
	}

	l.Name = p.Name
	l.Description = p.Desc
	l.SaleStatus = p.SaleStatus
	l.Longitude = p.Longitude
	l.Latitude = p.Latitude
	l.Features = applyFeatureDelta(l.Features, p.FeaturesRemoved, p.FeaturesAdded)
	l.Images = append(kept, added...)
	l.UpdatedAt = s.now().UTC()

	ok, err := s.repo.Update(ctx, l)
	if err != nil {
		s.discard(added)
		return fmt.Errorf("update listing %s: %w", id, err)
	}
	if !ok {
		s.discard(added)
		return ErrListingNotFound
	}

	if err := s.cache.Delete(ctx, cache.ListingKey(id)); err != nil {
		s.log.Warn("cache invalidation failed", "listing_id", id, "error", err)
	}
	s.discard(dropped)

	s.log.Info("listing updated", "listing_id", id,
		"features_added", len(p.FeaturesAdded), "features_removed", len(p.FeaturesRemoved),
		"images_added", len(added), "images_removed", len(dropped))
	s.publish(ctx, events.ListingUpdated, id)
	return nil
}

// DeleteListings removes the selected listings and their images.
func (s *CatalogService) DeleteListings(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var images []model.ListingImage
	for _, id := range ids {
		l, err := s.repo.Get(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("load listing %s: %w", id, err)
		}
		if l != nil {
			images = append(images, l.Images...)
		}
	}

	n, err := s.repo.Delete(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete listings: %w", err)
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cache.ListingKey(id)
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.Warn("cache invalidation failed", "listings", len(ids), "error", err)
	}
	s.discard(images)

	s.log.Info("listings deleted", "requested", len(ids), "deleted", n)
	s.publish(ctx, events.ListingDeleted, ids...)
	return n, nil
}

// Stats returns repository statistics.
func (s *CatalogService) Stats(ctx context.Context) (map[string]interface{}, error) {
	return s.repo.GetStats(ctx)
}

// ClearCache drops every cached listing.
func (s *CatalogService) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}

// upload stores files as images whose names are unique among taken, which
// is extended with every name handed out.
func (s *CatalogService) upload(ctx context.Context, files []*draft.FileHandle, taken map[string]struct{}) ([]model.ListingImage, error) {
	images := make([]model.ListingImage, 0, len(files))
	for _, f := range files {
		url, err := s.put(ctx, f)
		if err != nil {
			s.discard(images)
			return nil, err
		}
		images = append(images, model.ListingImage{
			FileName: uniqueName(f.Name, taken),
			FileSize: draft.FormatFileSize(f.Size),
			URL:      url,
		})
	}
	return images, nil
}

func (s *CatalogService) put(ctx context.Context, f *draft.FileHandle) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	url, err := s.images.Put(ctx, f.Name, f.Size, rc)
	if err != nil {
		return "", fmt.Errorf("store %s: %w", f.Name, err)
	}
	return url, nil
}

// discard removes stored images on a best-effort basis.
func (s *CatalogService) discard(images []model.ListingImage) {
	if len(images) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, img := range images {
		if err := s.images.Delete(ctx, img.URL); err != nil {
			s.log.Warn("image cleanup failed", "file", img.FileName, "error", err)
		}
	}
}

func (s *CatalogService) publish(ctx context.Context, eventType string, ids ...string) {
	event := events.ListingEvent{Type: eventType, ListingIDs: ids, OccurredAt: s.now().UTC()}
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn("event publish failed", "type", eventType, "error", err)
	}
}

func applyFeatureDelta(current, removed, added []string) []string {
	drop := make(map[string]struct{}, len(removed))
	for _, f := range removed {
		drop[f] = struct{}{}
	}

	out := make([]string, 0, len(current)+len(added))
	seen := make(map[string]struct{}, len(current)+len(added))
	for _, f := range current {
		if _, ok := drop[f]; ok {
			continue
		}
		out = append(out, f)
		seen[f] = struct{}{}
	}
	for _, f := range added {
		if _, ok := seen[f]; ok {
			continue
		}
		out = append(out, f)
		seen[f] = struct{}{}
	}
	return out
}

// uniqueName returns name, or name with a " (n)" suffix before its
// extension, such that the result is not in taken. The result is added to
// taken.
func uniqueName(name string, taken map[string]struct{}) string {
	candidate := name
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 2; ; n++ {
		if _, ok := taken[candidate]; !ok {
			break
		}
		candidate = fmt.Sprintf("%s (%d)%s", base, n, ext)
	}
	taken[candidate] = struct{}{}
	return candidate
}

// removeImages drops one image per occurrence of its name in names, first
// match first.
func removeImages(current []model.ListingImage, names []string) (kept, dropped []model.ListingImage) {
	drop := make(map[string]int, len(names))
	for _, n := range names {
		drop[n]++
	}
	kept = make([]model.ListingImage, 0, len(current))
	for _, img := range current {
		if drop[img.FileName] > 0 {
			drop[img.FileName]--
			dropped = append(dropped, img)
			continue
		}
		kept = append(kept, img)
	}
	return kept, dropped
}

var (
	_ draft.Fetcher    = (*CatalogService)(nil)
	_ draft.Completion = (*CatalogService)(nil)
)
