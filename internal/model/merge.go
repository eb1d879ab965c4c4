package model

// mergePolicy controls how a detail-page value combines with what the
// candidate already holds.
type mergePolicy int

const (
	// overwriteAlways replaces the candidate's value whenever the
	// strategy found one. The results page never supplies these fields.
	overwriteAlways mergePolicy = iota
	// keepNonZero keeps an existing non-zero candidate value. Detail
	// pages are a secondary, sometimes stale, source for these fields.
	keepNonZero
)

type mergeRule struct {
	field   string
	policy  mergePolicy
	present func(pf *PartialFields) bool
	held    func(p *Property) bool // non-zero value already held; consulted for keepNonZero only
	set     func(p *Property, pf *PartialFields)
}

var mergeRules = []mergeRule{
	{
		field:   "price",
		policy:  keepNonZero,
		present: func(pf *PartialFields) bool { return pf.Price != nil },
		held:    func(p *Property) bool { return p.Price != 0 },
		set:     func(p *Property, pf *PartialFields) { p.Price = *pf.Price },
	},
	{
		field:   "address",
		policy:  overwriteAlways,
		present: func(pf *PartialFields) bool { return pf.Address != nil },
		set:     func(p *Property, pf *PartialFields) { p.Address = *pf.Address },
	},
	{
		field:   "suburb",
		policy:  overwriteAlways,
		present: func(pf *PartialFields) bool { return pf.Suburb != nil },
		set:     func(p *Property, pf *PartialFields) { p.Suburb = *pf.Suburb },
	},
	{
		field:   "sold_date",
		policy:  overwriteAlways,
		present: func(pf *PartialFields) bool { return pf.SoldDate != nil },
		set:     func(p *Property, pf *PartialFields) { p.SoldDate = *pf.SoldDate },
	},
	{
		field:   "bedrooms",
		policy:  overwriteAlways,
		present: func(pf *PartialFields) bool { return pf.Bedrooms != nil },
		set:     func(p *Property, pf *PartialFields) { p.Bedrooms = *pf.Bedrooms },
	},
	{
		field:   "bathrooms",
		policy:  overwriteAlways,
		present: func(pf *PartialFields) bool { return pf.Bathrooms != nil },
		set:     func(p *Property, pf *PartialFields) { p.Bathrooms = *pf.Bathrooms },
	},
	{
		field:   "carspots",
		policy:  overwriteAlways,
		present: func(pf *PartialFields) bool { return pf.Carspots != nil },
		set:     func(p *Property, pf *PartialFields) { p.Carspots = *pf.Carspots },
	},
	{
		field:   "property_type",
		policy:  overwriteAlways,
		present: func(pf *PartialFields) bool { return pf.PropertyType != nil },
		set:     func(p *Property, pf *PartialFields) { p.PropertyType = *pf.PropertyType },
	},
	{
		field:   "land_size",
		policy:  overwriteAlways,
		present: func(pf *PartialFields) bool { return pf.LandSize != nil },
		set:     func(p *Property, pf *PartialFields) { p.LandSize = *pf.LandSize },
	},
	{
		field:   "latitude",
		policy:  overwriteAlways,
		present: func(pf *PartialFields) bool { return pf.Latitude != nil },
		set:     func(p *Property, pf *PartialFields) { p.Latitude = *pf.Latitude },
	},
	{
		field:   "longitude",
		policy:  overwriteAlways,
		present: func(pf *PartialFields) bool { return pf.Longitude != nil },
		set:     func(p *Property, pf *PartialFields) { p.Longitude = *pf.Longitude },
	},
	{
		field:   "original_data",
		policy:  overwriteAlways,
		present: func(pf *PartialFields) bool { return len(pf.OriginalData) > 0 },
		set:     func(p *Property, pf *PartialFields) { p.OriginalData = pf.OriginalData },
	},
}

// Merge applies the fields a strategy extracted to a candidate property.
// Each field follows its merge rule; the only keepNonZero field is price,
// so a price already known from the results page survives a conflicting
// detail-page price. A nil partial leaves the candidate unchanged.
func Merge(p Property, pf *PartialFields) Property {
	if pf == nil {
		return p
	}
	for _, r := range mergeRules {
		if !r.present(pf) {
			continue
		}
		if r.policy == keepNonZero && r.held(&p) {
			continue
		}
		r.set(&p, pf)
	}
	return p
}
