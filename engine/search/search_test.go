package search

import (
	"context"
	"errors"
	"testing"

	"github.com/VegaMotors/vegamotors-engine/engine/catalog"
)

const fixtureJSON = `{
	"version": "test",
	"vehiculos": [
		{"id": "v1", "titulo": "BMW Serie 3 320d", "marca": "BMW", "modelo": "Serie 3",
		 "descripcion": "Berlina diésel muy cuidada", "precio": 18500, "estado": "disponible"},
		{"id": "v2", "titulo": "Toyota Corolla Híbrido", "marca": "Toyota", "modelo": "Corolla",
		 "descripcion": "Etiqueta ECO", "precio": 20500, "estado": "disponible"},
		{"id": "v3", "titulo": "Seat León FR", "marca": "Seat", "modelo": "León",
		 "descripcion": "Acabado deportivo", "precio": 15800, "estado": "vendido"}
	]
}`

func newTestStore(t *testing.T) *catalog.Store {
	t.Helper()
	static, err := catalog.NewStaticSourceFromJSON([]byte(fixtureJSON))
	if err != nil {
		t.Fatal(err)
	}
	return catalog.NewStore(catalog.NewSelector(nil, static, nil, nil))
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeVectors struct {
	hits []Hit
	err  error
}

func (f *fakeVectors) Search(_ context.Context, _ []float32, _ int) ([]Hit, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func TestSearchSemanticPath(t *testing.T) {
	svc := New(newTestStore(t), &fakeEmbedder{}, &fakeVectors{hits: []Hit{
		{VehicleID: "v2", Score: 0.92},
		{VehicleID: "v1", Score: 0.87},
	}}, nil, nil)

	got := svc.Search(context.Background(), "coche híbrido", 10)
	if len(got) != 2 || got[0].ID != "v2" || got[1].ID != "v1" {
		t.Fatalf("semantic results = %+v", got)
	}
}

func TestSearchSemanticSkipsOffSale(t *testing.T) {
	svc := New(newTestStore(t), &fakeEmbedder{}, &fakeVectors{hits: []Hit{
		{VehicleID: "v3", Score: 0.95}, // vendido
		{VehicleID: "v1", Score: 0.80},
		{VehicleID: "missing", Score: 0.70},
	}}, nil, nil)

	got := svc.Search(context.Background(), "deportivo", 10)
	if len(got) != 1 || got[0].ID != "v1" {
		t.Fatalf("results = %+v", got)
	}
}

func TestSearchFallsBackToLexical(t *testing.T) {
	svc := New(newTestStore(t), &fakeEmbedder{err: errors.New("ollama down")}, &fakeVectors{}, nil, nil)

	got := svc.Search(context.Background(), "corolla", 10)
	if len(got) != 1 || got[0].ID != "v2" {
		t.Fatalf("lexical fallback results = %+v", got)
	}
}

func TestSearchLexicalOnlyWithoutVectorStack(t *testing.T) {
	svc := New(newTestStore(t), nil, nil, nil, nil)

	got := svc.Search(context.Background(), "bmw", 10)
	if len(got) != 1 || got[0].ID != "v1" {
		t.Fatalf("results = %+v", got)
	}
}

func TestSearchLexicalIsAccentInsensitive(t *testing.T) {
	svc := New(newTestStore(t), nil, nil, nil, nil)

	// "hibrido" must match the accented "Híbrido" in the title.
	got := svc.Search(context.Background(), "hibrido", 10)
	if len(got) != 1 || got[0].ID != "v2" {
		t.Fatalf("results = %+v", got)
	}
}

func TestSearchLexicalRequiresAllTerms(t *testing.T) {
	svc := New(newTestStore(t), nil, nil, nil, nil)

	if got := svc.Search(context.Background(), "bmw corolla", 10); len(got) != 0 {
		t.Fatalf("results = %+v, want none", got)
	}
	if got := svc.Search(context.Background(), "bmw diesel", 10); len(got) != 1 {
		t.Fatalf("results = %+v, want the 320d", got)
	}
}

func TestSearchLexicalExcludesOffSale(t *testing.T) {
	svc := New(newTestStore(t), nil, nil, nil, nil)

	if got := svc.Search(context.Background(), "leon", 10); len(got) != 0 {
		t.Fatalf("sold vehicle surfaced: %+v", got)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	svc := New(newTestStore(t), nil, nil, nil, nil)

	if got := svc.Search(context.Background(), "   ", 10); got != nil {
		t.Fatalf("blank query returned %+v", got)
	}
	if got := svc.Search(context.Background(), "bmw", 0); got != nil {
		t.Fatalf("zero limit returned %+v", got)
	}
}

func TestSearchBreakerOpensAfterRepeatedFailures(t *testing.T) {
	embed := &fakeEmbedder{err: errors.New("down")}
	svc := New(newTestStore(t), embed, &fakeVectors{}, nil, nil)

	// Default breaker trips after 5 consecutive failures; later queries must
	// not touch the embedder while open, yet still answer lexically.
	for i := 0; i < 8; i++ {
		got := svc.Search(context.Background(), "bmw", 10)
		if len(got) != 1 {
			t.Fatalf("query %d: results = %+v", i, got)
		}
	}
	if embed.calls != 5 {
		t.Errorf("embedder called %d times, want 5 before the breaker opened", embed.calls)
	}
}

func TestSearchRespectsLimit(t *testing.T) {
	svc := New(newTestStore(t), nil, nil, nil, nil)

	// Both on-sale records contain an "a" somewhere; cap at one.
	got := svc.Search(context.Background(), "a", 1)
	if len(got) != 1 {
		t.Fatalf("limit ignored: %+v", got)
	}
}
