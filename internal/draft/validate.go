package draft

import "strings"

// BannerMessage is the form-level message shown when validation fails.
const BannerMessage = "Some fields are empty"

var fieldMessages = map[string]string{
	FieldName:       "Name is required",
	FieldDesc:       "Description is required",
	FieldSaleStatus: "Sale status is required",
	FieldLongitude:  "Longitude is required",
	FieldLatitude:   "Latitude is required",
	FieldFeatures:   "Add at least one feature",
	FieldImages:     "Add at least one image",
}

// Result is the outcome of validating a draft.
type Result struct {
	Failed   bool              `json:"failed"`
	Messages map[string]string `json:"messages"`
}

// Validate checks every rule and reports all failures at once. It never
// panics; an unexpected fault is reported as the banner alone.
func Validate(d *Draft) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = Result{Failed: true, Messages: map[string]string{FieldMessage: BannerMessage}}
		}
	}()

	msgs := make(map[string]string)
	fail := func(field string) { msgs[field] = fieldMessages[field] }

	if strings.TrimSpace(d.Name) == "" {
		fail(FieldName)
	}
	if d.Description == "" {
		fail(FieldDesc)
	}
	if !d.SaleStatus.Valid() {
		fail(FieldSaleStatus)
	}
	// Zero counts as missing, so a coordinate on the equator or the prime
	// meridian is rejected.
	if d.Longitude == 0 {
		fail(FieldLongitude)
	}
	if d.Latitude == 0 {
		fail(FieldLatitude)
	}
	if d.Features.InvalidEmpty() {
		fail(FieldFeatures)
	}
	if d.Images.InvalidEmpty() {
		fail(FieldImages)
	}

	if len(msgs) > 0 {
		msgs[FieldMessage] = BannerMessage
		return Result{Failed: true, Messages: msgs}
	}
	return Result{Messages: msgs}
}
