package tour

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

// schemaJSON mirrors the validators of the tour document.
const schemaJSON = `{
  "type": "object",
  "required": ["name", "duration", "maxGroupSize", "difficulty", "price", "summary", "imageCover"],
  "properties": {
    "name":            {"type": "string", "minLength": 10, "maxLength": 40},
    "duration":        {"type": "number"},
    "maxGroupSize":    {"type": "integer"},
    "difficulty":      {"type": "string", "enum": ["easy", "medium", "difficult"]},
    "ratingsAverage":  {"type": "number", "minimum": 1, "maximum": 5},
    "ratingsQuantity": {"type": "integer"},
    "price":           {"type": "number"},
    "priceDiscount":   {"type": ["number", "null"]},
    "summary":         {"type": "string", "minLength": 1},
    "description":     {"type": "string"},
    "imageCover":      {"type": "string", "minLength": 1},
    "images":          {"type": ["array", "null"], "items": {"type": "string"}},
    "startDates":      {"type": ["array", "null"], "items": {"type": "string"}},
    "secretTour":      {"type": "boolean"}
  }
}`

var schema = mustSchema(schemaJSON)

func mustSchema(s string) *gojsonschema.Schema {
	sch, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("invalid tour schema: %v", err))
	}
	return sch
}

// messages maps "<field>.<error type>" to the message shown to clients.
var messages = map[string]string{
	"name.required":             "A tour must have a name",
	"name.string_gte":           "A tour name must have more or equal than 10 characters",
	"name.string_lte":           "A tour name must have less or equal than 40 characters",
	"duration.required":         "A tour must have a duration",
	"maxGroupSize.required":     "A tour must have a group size",
	"difficulty.required":       "A tour must have a difficulty",
	"difficulty.enum":           "Difficulty is either: easy, medium, difficult",
	"ratingsAverage.number_gte": "Rating must be above 1.0",
	"ratingsAverage.number_lte": "Rating must be below 5.0",
	"price.required":            "A tour must have a price",
	"summary.required":          "A tour must have a description",
	"summary.string_gte":        "A tour must have a description",
	"imageCover.required":       "A tour must have a cover image",
	"imageCover.string_gte":     "A tour must have a cover image",
}

// ValidationError lists every violated rule of a tour document.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "Invalid input data. " + strings.Join(e.Errors, ". ")
}

// Document is a loosely typed tour as received from a client.
type Document map[string]any

var trimmed = []string{"name", "summary", "description"}

// FromDocument validates doc and converts it into a Tour. Unknown fields are
// dropped, defaults are filled in and the slug is derived from the name.
func FromDocument(doc Document) (*Tour, error) {
	doc = normalize(doc)

	if err := validate(doc); err != nil {
		return nil, err
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tour document: %w", err)
	}
	var t Tour
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, &ValidationError{Errors: []string{err.Error()}}
	}

	if _, ok := doc["ratingsAverage"]; !ok {
		t.RatingsAverage = DefaultRatingsAverage
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	t.BeforeSave()
	return &t, nil
}

// Document converts t back into its loosely typed form, for merging updates.
func (t Tour) Document() Document {
	b, _ := json.Marshal(t)
	var doc Document
	_ = json.Unmarshal(b, &doc)
	return doc
}

func normalize(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	for _, k := range trimmed {
		if s, ok := out[k].(string); ok {
			out[k] = strings.TrimSpace(s)
		}
	}
	return out
}

func validate(doc Document) error {
	result, err := schema.Validate(gojsonschema.NewGoLoader(map[string]any(doc)))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	var errs []string
	if !result.Valid() {
		for _, re := range result.Errors() {
			errs = append(errs, messageFor(re))
		}
	}

	price, hasPrice := doc["price"].(float64)
	discount, hasDiscount := doc["priceDiscount"].(float64)
	if hasPrice && hasDiscount && discount >= price {
		errs = append(errs, fmt.Sprintf("Discount price (%v) should be below regular price", discount))
	}

	if list, ok := doc["startDates"].([]any); ok {
		for _, raw := range list {
			if s, ok := raw.(string); ok {
				if _, err := ParseDate(s); err != nil {
					errs = append(errs, err.Error())
				}
			}
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func messageFor(re gojsonschema.ResultError) string {
	field := re.Field()
	if re.Type() == "required" {
		if prop, ok := re.Details()["property"].(string); ok {
			field = prop
		}
	}
	if msg, ok := messages[field+"."+re.Type()]; ok {
		return msg
	}
	return re.String()
}
