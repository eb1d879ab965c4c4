// Package detail fetches listing detail pages and extracts structured
// fields from the scripts embedded in them.
package detail

import "github.com/soldwatch/harvest-cli/internal/model"

// Strategy attempts to pull structured fields out of a detail page body.
// A (nil, nil) return means the page did not carry this strategy's
// marker; an error means the marker was present but could not be
// decoded. Either way the caller moves on to the next strategy.
type Strategy interface {
	Name() string
	TryExtract(body []byte) (*model.PartialFields, error)
}
