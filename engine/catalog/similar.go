package catalog

import "context"

// Price band for the first similarity tier: comparable alternatives cost
// between 70% and 130% of the reference vehicle.
const (
	similarPriceLow  = 0.7
	similarPriceHigh = 1.3
)

// similarTiers is the ordered relaxation ladder. Each stage filters the
// remaining on-sale candidates; later stages only backfill what earlier
// ones left short. The last stage accepts anything so the "similar
// vehicles" strip is never empty while the catalog has stock.
var similarTiers = []struct {
	name  string
	match func(ref, cand Vehicle) bool
}{
	{
		name: "body-and-price",
		match: func(ref, cand Vehicle) bool {
			if cand.BodyType != ref.BodyType {
				return false
			}
			p := float64(cand.Price)
			refP := float64(ref.Price)
			return p >= refP*similarPriceLow && p <= refP*similarPriceHigh
		},
	},
	{
		name: "same-fuel",
		match: func(ref, cand Vehicle) bool {
			return cand.Fuel == ref.Fuel
		},
	},
	{
		name: "any-featured",
		match: func(_, cand Vehicle) bool {
			return cand.Featured
		},
	},
	{
		name: "any",
		match: func(_, _ Vehicle) bool {
			return true
		},
	},
}

// SimilarTo picks up to limit on-sale vehicles comparable to ref from pool,
// never including ref itself. Tier 1 wants the same body type at a nearby
// price, tier 2 relaxes to the same fuel, and the final tiers backfill with
// whatever is on sale, featured stock first.
func SimilarTo(pool []Vehicle, ref Vehicle, limit int) []Vehicle {
	if limit <= 0 {
		return nil
	}

	picked := make(map[string]bool, limit)
	out := make([]Vehicle, 0, limit)

	for _, tier := range similarTiers {
		for _, cand := range pool {
			if len(out) == limit {
				return out
			}
			if !cand.OnSale || cand.ID == ref.ID || picked[cand.ID] {
				continue
			}
			if tier.match(ref, cand) {
				picked[cand.ID] = true
				out = append(out, cand)
			}
		}
	}
	return out
}

// Similar resolves comparable vehicles against the current catalog.
func (s *Store) Similar(ctx context.Context, ref Vehicle, limit int) []Vehicle {
	return SimilarTo(s.selector.Load(ctx), ref, limit)
}
