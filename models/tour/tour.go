package tour

import (
	"time"

	"github.com/SanteonNL/natours/apiquery"
)

const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"

	DefaultRatingsAverage = 4.5
)

// Tour is a bookable tour.
type Tour struct {
	ID              string     `json:"id" bson:"_id" db:"id" gorm:"column:id;primary_key"`
	Name            string     `json:"name" bson:"name" db:"name" gorm:"column:name"`
	Slug            string     `json:"slug" bson:"slug" db:"slug" gorm:"column:slug"`
	Duration        float64    `json:"duration" bson:"duration" db:"duration" gorm:"column:duration"`
	MaxGroupSize    int        `json:"maxGroupSize" bson:"maxGroupSize" db:"max_group_size" gorm:"column:max_group_size"`
	Difficulty      string     `json:"difficulty" bson:"difficulty" db:"difficulty" gorm:"column:difficulty"`
	RatingsAverage  float64    `json:"ratingsAverage" bson:"ratingsAverage" db:"ratings_average" gorm:"column:ratings_average"`
	RatingsQuantity int        `json:"ratingsQuantity" bson:"ratingsQuantity" db:"ratings_quantity" gorm:"column:ratings_quantity"`
	Price           float64    `json:"price" bson:"price" db:"price" gorm:"column:price"`
	PriceDiscount   *float64   `json:"priceDiscount,omitempty" bson:"priceDiscount,omitempty" db:"price_discount" gorm:"column:price_discount"`
	Summary         string     `json:"summary" bson:"summary" db:"summary" gorm:"column:summary"`
	Description     string     `json:"description,omitempty" bson:"description,omitempty" db:"description" gorm:"column:description"`
	ImageCover      string     `json:"imageCover" bson:"imageCover" db:"image_cover" gorm:"column:image_cover"`
	Images          StringList `json:"images" bson:"images" db:"images" gorm:"column:images"`
	CreatedAt       time.Time  `json:"createdAt" bson:"createdAt" db:"created_at" gorm:"column:created_at"`
	StartDates      DateList   `json:"startDates" bson:"startDates" db:"start_dates" gorm:"column:start_dates"`
	SecretTour      bool       `json:"secretTour" bson:"secretTour" db:"secret_tour" gorm:"column:secret_tour"`
	Version         int        `json:"__v" bson:"__v" db:"version" gorm:"column:version"`
}

// TableName sets the table used by gorm.
func (Tour) TableName() string {
	return "tours"
}

// DurationWeeks is derived from Duration and never stored.
func (t Tour) DurationWeeks() float64 {
	return t.Duration / 7
}

// BeforeSave fills the stored fields derived from others.
func (t *Tour) BeforeSave() {
	t.Slug = Slugify(t.Name)
	if t.Images == nil {
		t.Images = StringList{}
	}
	if t.StartDates == nil {
		t.StartDates = DateList{}
	}
}

// Record converts the tour into a result document keyed by JSON field names.
func (t Tour) Record() apiquery.Record {
	rec := apiquery.Record{
		"id":              t.ID,
		"name":            t.Name,
		"slug":            t.Slug,
		"duration":        t.Duration,
		"maxGroupSize":    t.MaxGroupSize,
		"difficulty":      t.Difficulty,
		"ratingsAverage":  t.RatingsAverage,
		"ratingsQuantity": t.RatingsQuantity,
		"price":           t.Price,
		"summary":         t.Summary,
		"imageCover":      t.ImageCover,
		"images":          []string(t.Images),
		"createdAt":       t.CreatedAt,
		"startDates":      []Date(t.StartDates),
		"secretTour":      t.SecretTour,
		"__v":             t.Version,
		"durationWeeks":   t.DurationWeeks(),
	}
	if t.PriceDiscount != nil {
		rec["priceDiscount"] = *t.PriceDiscount
	}
	if t.Description != "" {
		rec["description"] = t.Description
	}
	return rec
}
