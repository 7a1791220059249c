package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/VegaMotors/vegamotors-engine/pkg/fn"
)

// Criteria is an AND-combination of optional listing filters. Zero values
// mean "no constraint"; all bounds are inclusive.
type Criteria struct {
	Brand        string       `json:"brand,omitempty"`
	BodyType     string       `json:"body_type,omitempty"`
	Fuel         Fuel         `json:"fuel,omitempty"`
	Transmission Transmission `json:"transmission,omitempty"`
	MinPrice     int          `json:"min_price,omitempty"`
	MaxPrice     int          `json:"max_price,omitempty"`
	MaxKM        int          `json:"max_km,omitempty"`
	MinYear      int          `json:"min_year,omitempty"`
	MaxYear      int          `json:"max_year,omitempty"`
}

// IsZero reports whether no filter is set.
func (c Criteria) IsZero() bool {
	return c == Criteria{}
}

// Matches reports whether an on-sale vehicle satisfies every set filter.
// Off-sale vehicles never match: reserved and sold stock must not surface
// through listing queries, whatever the criteria say.
func (c Criteria) Matches(v Vehicle) bool {
	if !v.OnSale {
		return false
	}
	if c.Brand != "" && !strings.EqualFold(c.Brand, v.Brand) {
		return false
	}
	if c.BodyType != "" && !strings.EqualFold(c.BodyType, string(v.BodyType)) {
		return false
	}
	if c.Fuel != "" && ParseFuel(string(c.Fuel)) != v.Fuel {
		return false
	}
	if c.Transmission != "" && ParseTransmission(string(c.Transmission)) != v.Transmission {
		return false
	}
	if c.MinPrice > 0 && v.Price < c.MinPrice {
		return false
	}
	if c.MaxPrice > 0 && v.Price > c.MaxPrice {
		return false
	}
	if c.MaxKM > 0 && v.KM > c.MaxKM {
		return false
	}
	if c.MinYear > 0 && v.Year < c.MinYear {
		return false
	}
	if c.MaxYear > 0 && v.Year > c.MaxYear {
		return false
	}
	return true
}

// Apply filters a vehicle set down to the on-sale vehicles matching the
// criteria. An empty result is a valid result, not an error.
func Apply(vehicles []Vehicle, c Criteria) []Vehicle {
	return fn.Filter(vehicles, c.Matches)
}

// SortKey selects a listing order.
type SortKey string

const (
	// SortRelevancia is the default: featured vehicles first, ascending
	// price within each group.
	SortRelevancia SortKey = "relevancia"
	SortPrecioAsc  SortKey = "precio-asc"
	SortPrecioDesc SortKey = "precio-desc"
	SortKMAsc      SortKey = "km-asc"
	SortAnioDesc   SortKey = "año-desc"
)

// ParseSortKey maps a query-string value to a SortKey, defaulting to
// relevancia for anything unrecognized.
func ParseSortKey(raw string) SortKey {
	switch SortKey(raw) {
	case SortPrecioAsc, SortPrecioDesc, SortKMAsc, SortAnioDesc:
		return SortKey(raw)
	case SortKey("ano-desc"), SortKey("anio-desc"):
		return SortAnioDesc
	}
	return SortRelevancia
}

// Sort returns a sorted copy of vehicles. The sort is stable, so ties keep
// the order the caller passed in.
func Sort(vehicles []Vehicle, key SortKey) []Vehicle {
	out := make([]Vehicle, len(vehicles))
	copy(out, vehicles)

	var less func(a, b Vehicle) bool
	switch key {
	case SortPrecioAsc:
		less = func(a, b Vehicle) bool { return a.Price < b.Price }
	case SortPrecioDesc:
		less = func(a, b Vehicle) bool { return a.Price > b.Price }
	case SortKMAsc:
		less = func(a, b Vehicle) bool { return a.KM < b.KM }
	case SortAnioDesc:
		less = func(a, b Vehicle) bool { return a.Year > b.Year }
	default: // relevancia
		less = func(a, b Vehicle) bool {
			if a.Featured != b.Featured {
				return a.Featured
			}
			return a.Price < b.Price
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Search is the listing-page entry point: filter the on-sale catalog, then
// order it. Filtering and sorting commute on a pre-filtered set, so this is
// also the result of sorting first and filtering after.
func (s *Store) Search(ctx context.Context, c Criteria, key SortKey) []Vehicle {
	return Sort(Apply(s.selector.Load(ctx), c), key)
}
