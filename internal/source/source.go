// Package source obtains raw auction-result rows from the listing site.
package source

import (
	"context"

	"github.com/soldwatch/harvest-cli/internal/model"
)

// Source supplies the raw listing rows the pipeline consumes. A failure
// here is fatal to the whole run; there is nothing to enrich without it.
type Source interface {
	Listings(ctx context.Context) ([]model.RawListing, error)
}
