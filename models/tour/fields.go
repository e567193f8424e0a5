package tour

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrCast = errors.New("cast failed")

// Kind is the stored type of a tour field.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindTime
	KindList
)

// Field describes how a JSON field name is stored.
type Field struct {
	Name   string // JSON and BSON name
	Column string // SQL column
	Kind   Kind
}

// Field names used outside this package.
const (
	FieldID         = "id"
	FieldCreatedAt  = "createdAt"
	FieldVersion    = "__v"
	FieldSecretTour = "secretTour"
)

// Fields lists every stored field in column order.
var Fields = []Field{
	{Name: "id", Column: "id", Kind: KindString},
	{Name: "name", Column: "name", Kind: KindString},
	{Name: "slug", Column: "slug", Kind: KindString},
	{Name: "duration", Column: "duration", Kind: KindNumber},
	{Name: "maxGroupSize", Column: "max_group_size", Kind: KindNumber},
	{Name: "difficulty", Column: "difficulty", Kind: KindString},
	{Name: "ratingsAverage", Column: "ratings_average", Kind: KindNumber},
	{Name: "ratingsQuantity", Column: "ratings_quantity", Kind: KindNumber},
	{Name: "price", Column: "price", Kind: KindNumber},
	{Name: "priceDiscount", Column: "price_discount", Kind: KindNumber},
	{Name: "summary", Column: "summary", Kind: KindString},
	{Name: "description", Column: "description", Kind: KindString},
	{Name: "imageCover", Column: "image_cover", Kind: KindString},
	{Name: "images", Column: "images", Kind: KindList},
	{Name: "createdAt", Column: "created_at", Kind: KindTime},
	{Name: "startDates", Column: "start_dates", Kind: KindList},
	{Name: "secretTour", Column: "secret_tour", Kind: KindBool},
	{Name: "__v", Column: "version", Kind: KindNumber},
}

// FilterableFields are the fields clients may filter tours on.
var FilterableFields = []string{
	"duration",
	"difficulty",
	"price",
	"maxGroupSize",
	"ratingsAverage",
	"ratingsQuantity",
}

// FieldByName looks up a stored field by its JSON name.
func FieldByName(name string) (Field, bool) {
	for _, f := range Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Cast converts a raw query value to the type stored for field.
// Unknown fields are returned unchanged.
func Cast(field, raw string) (any, error) {
	f, ok := FieldByName(field)
	if !ok {
		return raw, nil
	}

	switch f.Kind {
	case KindNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q is not a number", ErrCast, field, raw)
		}
		return n, nil
	case KindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q is not a boolean", ErrCast, field, raw)
		}
		return b, nil
	case KindTime:
		d, err := ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q is not a date", ErrCast, field, raw)
		}
		return d.Time, nil
	default:
		return raw, nil
	}
}
