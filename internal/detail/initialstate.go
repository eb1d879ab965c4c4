package detail

import (
	"encoding/json"
	"regexp"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/soldwatch/harvest-cli/internal/model"
)

// Greedy capture: the assignment runs to the last semicolon-terminated
// statement, which keeps nested "};" sequences inside the object intact.
var initialStateRe = regexp.MustCompile(`(?s)initialState = (.*);`)

// InitialState extracts from the page's embedded "initialState" JSON
// assignment. It is the richer of the two strategies: it is the only one
// that can yield a price and a sold date.
type InitialState struct{}

// Name implements Strategy.
func (InitialState) Name() string { return "initial_state" }

// TryExtract implements Strategy.
func (InitialState) TryExtract(body []byte) (*model.PartialFields, error) {
	m := initialStateRe.FindSubmatch(body)
	if m == nil {
		return nil, nil
	}

	raw := m[1]
	if !gjson.ValidBytes(raw) {
		return nil, eris.New("detail: initialState is not valid JSON")
	}
	data := gjson.GetBytes(raw, "pageData.data")
	if !data.Exists() {
		return nil, eris.New("detail: initialState has no pageData.data")
	}

	pf := &model.PartialFields{}

	// A zero or unparseable display price means "no price found", not
	// an error; the candidate may still carry one from the results page.
	if price, ok := model.ParsePrice(data.Get("price.display").String()); ok {
		pf.Price = &price
	}

	if v := data.Get("address.streetAddress"); v.Exists() {
		s := v.String()
		pf.Address = &s
	}
	if v := data.Get("address.locality"); v.Exists() {
		s := v.String()
		pf.Suburb = &s
	}
	if v := data.Get("dateSold.value"); v.Exists() && v.String() != "" {
		if t, err := parseISODate(v.String()); err == nil {
			pf.SoldDate = &t
		}
	}
	if v := data.Get("features.general.bedrooms"); v.Exists() {
		n := int(v.Int())
		pf.Bedrooms = &n
	}
	if v := data.Get("features.general.bathrooms"); v.Exists() {
		n := int(v.Int())
		pf.Bathrooms = &n
	}
	if v := data.Get("features.general.parkingSpaces"); v.Exists() {
		n := int(v.Int())
		pf.Carspots = &n
	}
	if v := data.Get("landSize.value"); v.Exists() {
		f := v.Float()
		pf.LandSize = &f
	}
	if v := data.Get("propertyType"); v.Exists() {
		s := v.String()
		pf.PropertyType = &s
	}
	if v := data.Get("address.location.latitude"); v.Exists() {
		f := v.Float()
		pf.Latitude = &f
	}
	if v := data.Get("address.location.longitude"); v.Exists() {
		f := v.Float()
		pf.Longitude = &f
	}

	pf.OriginalData = json.RawMessage(data.Raw)
	return pf, nil
}

func parseISODate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, eris.Errorf("detail: unparseable date %q", s)
}
