package catalog

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/VegaMotors/vegamotors-engine/pkg/fn"
)

// Sentinel ranges returned when the on-sale set is empty, so the rendering
// layer always has usable filter bounds.
const (
	sentinelMaxPrice = 100000
	sentinelMinYear  = 2010
)

// Range is an inclusive min/max pair.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Store exposes read-only catalog queries over whatever vehicle set the
// Selector serves for the current call. It holds no state of its own, so
// concurrent callers need no coordination.
type Store struct {
	selector *Selector
}

// NewStore creates a Store backed by the given Selector.
func NewStore(sel *Selector) *Store {
	return &Store{selector: sel}
}

// ListAll returns every vehicle regardless of status. Off-sale vehicles stay
// addressable here for already-indexed detail pages.
func (s *Store) ListAll(ctx context.Context) []Vehicle {
	return s.selector.Load(ctx)
}

// ListOnSale returns purchasable vehicles, featured ones first. Within each
// group the backing source's order survives: most-recently-updated for the
// remote store, declared snapshot order for the static fallback.
func (s *Store) ListOnSale(ctx context.Context) []Vehicle {
	onSale := fn.Filter(s.selector.Load(ctx), func(v Vehicle) bool { return v.OnSale })
	sort.SliceStable(onSale, func(i, j int) bool {
		return onSale[i].Featured && !onSale[j].Featured
	})
	return onSale
}

// GetByID looks a vehicle up by its opaque id, any status.
func (s *Store) GetByID(ctx context.Context, id string) (Vehicle, bool) {
	for _, v := range s.selector.Load(ctx) {
		if v.ID == id {
			return v, true
		}
	}
	return Vehicle{}, false
}

// GetBySlug resolves a detail-page identifier. When the value is UUID-shaped
// it is treated as an opaque id first, then as a slug, so links minted under
// either identifier scheme keep resolving.
func (s *Store) GetBySlug(ctx context.Context, slug string) (Vehicle, bool) {
	vehicles := s.selector.Load(ctx)
	if _, err := uuid.Parse(slug); err == nil {
		for _, v := range vehicles {
			if v.ID == slug {
				return v, true
			}
		}
	}
	for _, v := range vehicles {
		if v.Slug == slug {
			return v, true
		}
	}
	return Vehicle{}, false
}

// ListFeatured returns up to limit vehicles that are featured and on sale.
func (s *Store) ListFeatured(ctx context.Context, limit int) []Vehicle {
	var out []Vehicle
	for _, v := range s.selector.Load(ctx) {
		if !v.Featured || !v.OnSale {
			continue
		}
		out = append(out, v)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Count returns the number of on-sale vehicles.
func (s *Store) Count(ctx context.Context) int {
	n := 0
	for _, v := range s.selector.Load(ctx) {
		if v.OnSale {
			n++
		}
	}
	return n
}

// DistinctBrands returns the brands present in the on-sale set,
// case-preserved and lexicographically sorted.
func (s *Store) DistinctBrands(ctx context.Context) []string {
	return s.distinct(ctx, func(v Vehicle) string { return v.Brand })
}

// DistinctFuelTypes returns the fuel values present in the on-sale set.
func (s *Store) DistinctFuelTypes(ctx context.Context) []string {
	return s.distinct(ctx, func(v Vehicle) string { return string(v.Fuel) })
}

// DistinctBodyTypes returns the body types present in the on-sale set.
func (s *Store) DistinctBodyTypes(ctx context.Context) []string {
	return s.distinct(ctx, func(v Vehicle) string { return string(v.BodyType) })
}

func (s *Store) distinct(ctx context.Context, key func(Vehicle) string) []string {
	onSale := fn.Filter(s.selector.Load(ctx), func(v Vehicle) bool { return v.OnSale })
	values := fn.Unique(fn.FilterMap(onSale, func(v Vehicle) (string, bool) {
		k := key(v)
		return k, k != ""
	}))
	sort.Strings(values)
	return values
}

// PriceRange returns the inclusive price bounds of the on-sale set, or the
// documented sentinel {0, 100000} when nothing is on sale.
func (s *Store) PriceRange(ctx context.Context) Range {
	r, ok := s.boundsOnSale(ctx, func(v Vehicle) int { return v.Price })
	if !ok {
		return Range{Min: 0, Max: sentinelMaxPrice}
	}
	return r
}

// YearRange returns the inclusive registration-year bounds of the on-sale
// set, or the sentinel {2010, current year} when nothing is on sale.
func (s *Store) YearRange(ctx context.Context) Range {
	r, ok := s.boundsOnSale(ctx, func(v Vehicle) int { return v.Year })
	if !ok {
		return Range{Min: sentinelMinYear, Max: time.Now().Year()}
	}
	return r
}

func (s *Store) boundsOnSale(ctx context.Context, key func(Vehicle) int) (Range, bool) {
	var r Range
	found := false
	for _, v := range s.selector.Load(ctx) {
		if !v.OnSale {
			continue
		}
		k := key(v)
		if !found {
			r = Range{Min: k, Max: k}
			found = true
			continue
		}
		if k < r.Min {
			r.Min = k
		}
		if k > r.Max {
			r.Max = k
		}
	}
	return r, found
}
