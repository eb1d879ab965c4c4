package pipeline

import (
	"strings"

	"github.com/soldwatch/harvest-cli/internal/model"
)

// The results page labels outcomes "Sold", "Sold prior", "Sold after",
// "Passed in", "Withdrawn" and so on. Anything carrying the marker
// counts as a sale; everything else is skipped.
const soldMarker = "Sold"

// Classify decides whether a results-page listing represents a completed
// sale. Sold listings are promoted to a Property candidate seeded from
// the results-page fields; unsold listings return ok=false.
func Classify(raw model.RawListing) (model.Property, bool) {
	if !strings.Contains(raw.Result, soldMarker) {
		return model.Property{}, false
	}
	return model.Property{
		Address:  raw.Address,
		Price:    raw.Price,
		SoldDate: raw.SoldDate,
		Link:     raw.Link,
	}, true
}
