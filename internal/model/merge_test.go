package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string        { return &s }
func intPtr(n int) *int              { return &n }
func floatPtr(f float64) *float64    { return &f }
func timePtr(t time.Time) *time.Time { return &t }

func TestMerge_KeepsKnownPrice(t *testing.T) {
	p := Property{Address: "1 Example St", Price: 820000}

	merged := Merge(p, &PartialFields{Price: intPtr(750000)})

	assert.Equal(t, 820000, merged.Price)
}

func TestMerge_FillsUnknownPrice(t *testing.T) {
	p := Property{Address: "1 Example St", Price: 0}

	merged := Merge(p, &PartialFields{Price: intPtr(750000)})

	assert.Equal(t, 750000, merged.Price)
}

func TestMerge_OverwritesOtherFields(t *testing.T) {
	sold := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	p := Property{
		Address:  "1 Example St",
		Suburb:   "stale",
		Price:    820000,
		SoldDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	merged := Merge(p, &PartialFields{
		Address:      strPtr("1 Example Street"),
		Suburb:       strPtr("Brunswick"),
		Bedrooms:     intPtr(3),
		Bathrooms:    intPtr(1),
		Carspots:     intPtr(2),
		SoldDate:     timePtr(sold),
		PropertyType: strPtr("house"),
		LandSize:     floatPtr(420),
		Latitude:     floatPtr(-37.76),
		Longitude:    floatPtr(144.96),
		OriginalData: json.RawMessage(`{"source":"detail"}`),
	})

	assert.Equal(t, "1 Example Street", merged.Address)
	assert.Equal(t, "Brunswick", merged.Suburb)
	assert.Equal(t, 3, merged.Bedrooms)
	assert.Equal(t, 1, merged.Bathrooms)
	assert.Equal(t, 2, merged.Carspots)
	assert.Equal(t, sold, merged.SoldDate)
	assert.Equal(t, "house", merged.PropertyType)
	assert.InDelta(t, 420.0, merged.LandSize, 0.001)
	assert.InDelta(t, -37.76, merged.Latitude, 0.0001)
	assert.InDelta(t, 144.96, merged.Longitude, 0.0001)
	assert.JSONEq(t, `{"source":"detail"}`, string(merged.OriginalData))
	// Non-zero price survives regardless of the other overwrites.
	assert.Equal(t, 820000, merged.Price)
}

func TestMerge_AbsentFieldsLeftAlone(t *testing.T) {
	p := Property{
		Address: "1 Example St",
		Suburb:  "Brunswick",
		Price:   820000,
	}

	merged := Merge(p, &PartialFields{Bedrooms: intPtr(2)})

	assert.Equal(t, "1 Example St", merged.Address)
	assert.Equal(t, "Brunswick", merged.Suburb)
	assert.Equal(t, 820000, merged.Price)
	assert.Equal(t, 2, merged.Bedrooms)
}

func TestMerge_NilPartial(t *testing.T) {
	p := Property{Address: "1 Example St", Price: 820000}
	assert.Equal(t, p, Merge(p, nil))
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		display string
		want    int
		ok      bool
	}{
		{"$1,230,500", 1230500, true},
		{"$750,000", 750000, true},
		{"820000", 820000, true},
		{"$-", 0, false},
		{"", 0, false},
		{"Contact agent", 0, false},
		{"$0", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.display, func(t *testing.T) {
			got, ok := ParsePrice(tt.display)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSoldDateKey(t *testing.T) {
	// Timestamp components from date libraries must not leak into the key.
	p := Property{SoldDate: time.Date(2024, 3, 2, 23, 30, 0, 0, time.UTC)}
	assert.Equal(t, "2024-03-02", p.SoldDateKey())
}
