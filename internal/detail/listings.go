package detail

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/yosuke-furukawa/json5/encoding/json5"

	"github.com/soldwatch/harvest-cli/internal/model"
)

// Non-greedy capture of the first array element's object literal.
var listingsRe = regexp.MustCompile(`(?s)Data\.listings=\[(.*?)\];`)

// ListingsArray extracts from the page's "Data.listings" array, a
// JavaScript object literal with unquoted keys, so it is decoded with a
// JSON5 parser rather than strict JSON. It is the degraded fallback:
// no price and no sold date.
type ListingsArray struct{}

// Name implements Strategy.
func (ListingsArray) Name() string { return "listings_array" }

// TryExtract implements Strategy.
func (ListingsArray) TryExtract(body []byte) (*model.PartialFields, error) {
	m := listingsRe.FindSubmatch(body)
	if m == nil {
		return nil, nil
	}

	var fields map[string]any
	if err := json5.Unmarshal(m[1], &fields); err != nil {
		return nil, eris.Wrap(err, "detail: decode Data.listings element")
	}

	pf := &model.PartialFields{}

	if s, ok := stringField(fields, "city"); ok {
		pf.Suburb = &s
	}
	if s, ok := stringField(fields, "streetAddress"); ok {
		pf.Address = &s
	}
	if n, ok := intField(fields, "numBeds"); ok {
		pf.Bedrooms = &n
	}
	if s, ok := stringField(fields, "propertyTypeE"); ok {
		s = strings.ToLower(s)
		pf.PropertyType = &s
	}
	if f, ok := floatField(fields, "latitude"); ok {
		pf.Latitude = &f
	}
	if f, ok := floatField(fields, "longitude"); ok {
		pf.Longitude = &f
	}

	if original, err := json.Marshal(fields); err == nil {
		pf.OriginalData = original
	}

	return pf, nil
}

func stringField(fields map[string]any, key string) (string, bool) {
	s, ok := fields[key].(string)
	return s, ok
}

func floatField(fields map[string]any, key string) (float64, bool) {
	switch v := fields[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func intField(fields map[string]any, key string) (int, bool) {
	f, ok := floatField(fields, key)
	return int(f), ok
}
