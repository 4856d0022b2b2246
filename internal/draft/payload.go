package draft

import "listing-admin-api/internal/model"

// CreatePayload carries a complete new listing.
type CreatePayload struct {
	Name       string           `json:"name"`
	Desc       string           `json:"desc"`
	SalePrice  float64          `json:"salePrice"`
	SaleStatus model.SaleStatus `json:"saleStatus"`
	Features   []string         `json:"features"`
	Longitude  float64          `json:"longitude"`
	Latitude   float64          `json:"latitude"`
	Images     []*FileHandle    `json:"-"`
}

// EditPayload carries the scalar fields of an edited listing and the
// collection changes relative to its baseline. Sale price is not editable.
type EditPayload struct {
	Name            string           `json:"name"`
	Desc            string           `json:"desc"`
	SaleStatus      model.SaleStatus `json:"saleStatus"`
	Longitude       float64          `json:"longitude"`
	Latitude        float64          `json:"latitude"`
	FeaturesAdded   []string         `json:"featuresAdded"`
	FeaturesRemoved []string         `json:"featuresRemoved"`
	ImagesAdded     []*FileHandle    `json:"-"`
	ImagesRemoved   []string         `json:"imagesRemoved"`
}

func (d *Draft) createPayload() CreatePayload {
	return CreatePayload{
		Name:       d.Name,
		Desc:       d.Description,
		SalePrice:  d.SalePrice,
		SaleStatus: d.SaleStatus,
		Features:   d.Features.Items(),
		Longitude:  d.Longitude,
		Latitude:   d.Latitude,
		Images:     d.Uploads(),
	}
}

func (d *Draft) editPayload() EditPayload {
	features := d.Features.Diff()
	images := d.Images.Diff()
	return EditPayload{
		Name:            d.Name,
		Desc:            d.Description,
		SaleStatus:      d.SaleStatus,
		Longitude:       d.Longitude,
		Latitude:        d.Latitude,
		FeaturesAdded:   features.Added,
		FeaturesRemoved: features.Removed,
		ImagesAdded:     d.Uploads(),
		ImagesRemoved:   images.Removed,
	}
}
