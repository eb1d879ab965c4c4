// Package model holds the data types flowing through the harvest pipeline.
package model

import (
	"encoding/json"
	"time"
)

// RawListing is one row scraped from the auction-results page. It is
// immutable once produced by the source driver.
type RawListing struct {
	Address  string    `json:"address"`
	Price    int       `json:"price"` // 0 = unknown
	SoldDate time.Time `json:"sold_date"`
	Link     string    `json:"link,omitempty"`
	Result   string    `json:"result"`
}

// Property is a sold listing being enriched with detail-page data.
// Address and SoldDate together form the natural identity used for
// storage deduplication.
type Property struct {
	Address      string          `json:"address" db:"address"`
	Suburb       string          `json:"suburb,omitempty" db:"suburb"`
	Price        int             `json:"price" db:"price"`
	Bedrooms     int             `json:"bedrooms,omitempty" db:"bedrooms"`
	Bathrooms    int             `json:"bathrooms,omitempty" db:"bathrooms"`
	Carspots     int             `json:"carspots,omitempty" db:"carspots"`
	SoldDate     time.Time       `json:"sold_date" db:"date"`
	Link         string          `json:"link,omitempty" db:"link"`
	PropertyType string          `json:"property_type,omitempty" db:"propertyType"`
	LandSize     float64         `json:"land_size,omitempty" db:"landSize"`
	Latitude     float64         `json:"latitude,omitempty" db:"latitude"`
	Longitude    float64         `json:"longitude,omitempty" db:"longitude"`
	OriginalData json.RawMessage `json:"original_data,omitempty" db:"otherdata"`
}

// SoldDateKey returns the calendar-date form of the sold date used for
// lookups and writes, independent of time-of-day and timezone.
func (p Property) SoldDateKey() string {
	return p.SoldDate.UTC().Format("2006-01-02")
}

// PartialFields is the subset of Property fields a detail-page extraction
// strategy was able to populate. Nil pointers mean "not found".
type PartialFields struct {
	Address      *string
	Suburb       *string
	Price        *int
	Bedrooms     *int
	Bathrooms    *int
	Carspots     *int
	SoldDate     *time.Time
	PropertyType *string
	LandSize     *float64
	Latitude     *float64
	Longitude    *float64
	OriginalData json.RawMessage
}
