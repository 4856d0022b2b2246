package repository

import (
	"encoding/json"
	"fmt"
	"strings"

	"listing-admin-api/internal/model"
)

// Listing collections are stored as JSON documents in SQL backends.

func encodeCollections(l *model.Listing) (features, images []byte, err error) {
	f := l.Features
	if f == nil {
		f = []string{}
	}
	features, err = json.Marshal(f)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode features: %w", err)
	}

	imgs := l.Images
	if imgs == nil {
		imgs = []model.ListingImage{}
	}
	images, err = json.Marshal(imgs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode images: %w", err)
	}
	return features, images, nil
}

func decodeCollections(l *model.Listing, features, images []byte) error {
	l.Features = []string{}
	l.Images = []model.ListingImage{}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &l.Features); err != nil {
			return fmt.Errorf("failed to decode features: %w", err)
		}
	}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &l.Images); err != nil {
			return fmt.Errorf("failed to decode images: %w", err)
		}
	}
	return nil
}

// listingWhere builds the WHERE clause of a list query. ph returns the
// placeholder for the n-th argument.
func listingWhere(f model.ListingFilter, likeOp string, ph func(n int) string) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if f.Status != model.SaleStatusUnset {
		args = append(args, string(f.Status))
		conds = append(conds, "sale_status = "+ph(len(args)))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+q+"%")
		n := ph(len(args))
		conds = append(conds, fmt.Sprintf("(name %s %s OR description %s %s)", likeOp, n, likeOp, n))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
