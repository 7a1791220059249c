package catalog

import (
	"context"
	"testing"
)

func similarPool() []Vehicle {
	return []Vehicle{
		{ID: "ref", BodyType: BodySUV, Fuel: FuelDiesel, Price: 20000, OnSale: true},
		{ID: "close", BodyType: BodySUV, Fuel: FuelGasolina, Price: 22000, OnSale: true},
		{ID: "edge-low", BodyType: BodySUV, Fuel: FuelGasolina, Price: 14000, OnSale: true},  // exactly 0.7×
		{ID: "edge-high", BodyType: BodySUV, Fuel: FuelGasolina, Price: 26000, OnSale: true}, // exactly 1.3×
		{ID: "too-cheap", BodyType: BodySUV, Fuel: FuelGasolina, Price: 13000, OnSale: true},
		{ID: "same-fuel", BodyType: BodyBerlina, Fuel: FuelDiesel, Price: 90000, OnSale: true},
		{ID: "featured", BodyType: BodyFurgoneta, Fuel: FuelGasolina, Price: 5000, Featured: true, OnSale: true},
		{ID: "filler", BodyType: BodyFurgoneta, Fuel: FuelGasolina, Price: 5000, OnSale: true},
		{ID: "sold", BodyType: BodySUV, Fuel: FuelDiesel, Price: 20000, OnSale: false},
	}
}

func TestSimilarToFirstTier(t *testing.T) {
	pool := similarPool()
	got := SimilarTo(pool, pool[0], 3)

	want := []string{"close", "edge-low", "edge-high"}
	if len(got) != len(want) {
		t.Fatalf("got %d vehicles: %v", len(got), ids(got))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("position %d: %s, want %s", i, got[i].ID, want[i])
		}
	}
}

func TestSimilarToRelaxesAcrossTiers(t *testing.T) {
	pool := similarPool()
	got := SimilarTo(pool, pool[0], 6)

	// Tier 1: body+price band. Tier 2: same fuel. Tier 3: featured.
	// Tier 4: anything else on sale.
	want := []string{"close", "edge-low", "edge-high", "same-fuel", "featured", "too-cheap"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", ids(got), want)
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("position %d: %s, want %s", i, got[i].ID, want[i])
		}
	}
}

func TestSimilarToExcludesRefAndOffSale(t *testing.T) {
	pool := similarPool()
	got := SimilarTo(pool, pool[0], len(pool))
	for _, v := range got {
		if v.ID == "ref" {
			t.Error("reference vehicle included in its own similar set")
		}
		if v.ID == "sold" {
			t.Error("off-sale vehicle included in similar set")
		}
	}
}

func TestSimilarToNeverDuplicates(t *testing.T) {
	pool := similarPool()
	got := SimilarTo(pool, pool[0], len(pool))
	seen := make(map[string]bool)
	for _, v := range got {
		if seen[v.ID] {
			t.Fatalf("vehicle %s picked twice", v.ID)
		}
		seen[v.ID] = true
	}
}

func TestSimilarToLimit(t *testing.T) {
	pool := similarPool()
	if got := SimilarTo(pool, pool[0], 2); len(got) != 2 {
		t.Errorf("limit 2 returned %d", len(got))
	}
	if got := SimilarTo(pool, pool[0], 0); got != nil {
		t.Errorf("limit 0 returned %v", got)
	}
	// Asking for more than the pool holds returns everything eligible.
	if got := SimilarTo(pool, pool[0], 50); len(got) != 7 {
		t.Errorf("oversized limit returned %d, want 7", len(got))
	}
}

func TestStoreSimilar(t *testing.T) {
	pool := similarPool()
	store := newTestStore(nil, &fakeSource{vehicles: pool})
	got := store.Similar(context.Background(), pool[0], 2)
	if len(got) != 2 || got[0].ID != "close" {
		t.Fatalf("Similar = %v", ids(got))
	}
}

func ids(vs []Vehicle) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.ID
	}
	return out
}
