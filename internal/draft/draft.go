package draft

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"listing-admin-api/internal/model"
)

// Field keys. They double as keys of the validation message map.
const (
	FieldName       = "name"
	FieldDesc       = "desc"
	FieldSalePrice  = "salePrice"
	FieldSaleStatus = "saleStatus"
	FieldLongitude  = "longitude"
	FieldLatitude   = "latitude"
	FieldFeatures   = "features"
	FieldImages     = "images"

	// FieldMessage holds the form-level banner.
	FieldMessage = "message"
)

var (
	ErrUnknownField = errors.New("unknown field")
	ErrInvalidValue = errors.New("invalid value")
)

// Draft is the working copy of a listing during one editor session.
type Draft struct {
	Name        string
	Description string
	SalePrice   float64
	SaleStatus  model.SaleStatus
	Longitude   float64
	Latitude    float64

	Features *Tracker[string]
	Images   *Tracker[Preview]

	// uploads are the raw handles of images added in this session, in the
	// order they were accepted. Previews only carry display data.
	uploads []*FileHandle
}

// NewDraft returns an empty create-mode draft.
func NewDraft() *Draft {
	return &Draft{
		Features: NewTracker(func(s string) string { return s }),
		Images:   NewTracker(func(p Preview) string { return p.FileName }),
	}
}

// Reset empties every field and both collections.
func (d *Draft) Reset() {
	d.Name = ""
	d.Description = ""
	d.SalePrice = 0
	d.SaleStatus = model.SaleStatusUnset
	d.Longitude = 0
	d.Latitude = 0
	d.Features.Reset()
	d.Images.Reset()
	d.uploads = nil
}

// Seed populates the draft from a stored listing and puts both collections
// in edit mode.
func (d *Draft) Seed(l *model.Listing) {
	d.Reset()
	d.Name = l.Name
	d.Description = l.Description
	d.SalePrice = l.SalePrice
	d.SaleStatus = l.SaleStatus
	d.Longitude = l.Longitude
	d.Latitude = l.Latitude

	d.Features.Seed(l.Features)

	images := make([]Preview, len(l.Images))
	for i, img := range l.Images {
		images[i] = Preview{FileName: img.FileName, FileSize: img.FileSize, Content: img.URL}
	}
	d.Images.Seed(images)
}

// Set overwrites one scalar field from its form value. Numeric fields accept
// an empty value as zero.
func (d *Draft) Set(field, value string) error {
	switch field {
	case FieldName:
		d.Name = value
	case FieldDesc:
		d.Description = value
	case FieldSaleStatus:
		status := model.SaleStatus(value)
		if status != model.SaleStatusUnset && !status.Valid() {
			return fmt.Errorf("%w: %s %q", ErrInvalidValue, field, value)
		}
		d.SaleStatus = status
	case FieldSalePrice:
		n, err := parseNumber(field, value)
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidValue, field)
		}
		d.SalePrice = n
	case FieldLongitude:
		n, err := parseNumber(field, value)
		if err != nil {
			return err
		}
		d.Longitude = n
	case FieldLatitude:
		n, err := parseNumber(field, value)
		if err != nil {
			return err
		}
		d.Latitude = n
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

func parseNumber(field, value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", ErrInvalidValue, field, value)
	}
	return n, nil
}

// addUploads records the raw handles of newly accepted previews.
func (d *Draft) addUploads(previews []Preview) {
	for _, p := range previews {
		d.Images.Append(p)
		if p.Source != nil {
			d.uploads = append(d.uploads, p.Source)
		}
	}
}

func (d *Draft) dropUpload(h *FileHandle) {
	for i, u := range d.uploads {
		if u == h {
			d.uploads = append(d.uploads[:i:i], d.uploads[i+1:]...)
			return
		}
	}
}

// Uploads returns the raw handles queued for upload.
func (d *Draft) Uploads() []*FileHandle {
	return append([]*FileHandle{}, d.uploads...)
}

// View is the rendered form of a draft.
type View struct {
	Name            string           `json:"name"`
	Desc            string           `json:"desc"`
	SalePrice       float64          `json:"salePrice"`
	SaleStatus      model.SaleStatus `json:"saleStatus"`
	Longitude       float64          `json:"longitude"`
	Latitude        float64          `json:"latitude"`
	Features        []string         `json:"features"`
	Images          []Preview        `json:"images"`
	FeaturesRemoved []string         `json:"featuresRemoved"`
	ImagesRemoved   []string         `json:"imagesRemoved"`
}

// View derives the rendered form from the draft.
func (d *Draft) View() View {
	return View{
		Name:            d.Name,
		Desc:            d.Description,
		SalePrice:       d.SalePrice,
		SaleStatus:      d.SaleStatus,
		Longitude:       d.Longitude,
		Latitude:        d.Latitude,
		Features:        d.Features.Items(),
		Images:          d.Images.Items(),
		FeaturesRemoved: d.Features.Diff().Removed,
		ImagesRemoved:   d.Images.Diff().Removed,
	}
}
