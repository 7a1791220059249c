package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/VegaMotors/vegamotors-engine/engine/catalog"
	"github.com/VegaMotors/vegamotors-engine/engine/search"
)

func testStore(t *testing.T) *catalog.Store {
	t.Helper()
	static, err := catalog.NewStaticSource()
	if err != nil {
		t.Fatal(err)
	}
	return catalog.NewStore(catalog.NewSelector(nil, static, nil, nil))
}

func testMux(t *testing.T) *http.ServeMux {
	t.Helper()
	store := testStore(t)
	svc := search.New(store, nil, nil, nil, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/vehicles", handleVehicles(store))
	mux.HandleFunc("GET /api/vehicles/{slug}", handleVehicle(store))
	mux.HandleFunc("GET /api/vehicles/{slug}/similar", handleSimilar(store))
	mux.HandleFunc("GET /api/filters", handleFilters(store))
	mux.HandleFunc("GET /api/search", handleSearch(store, svc))
	mux.HandleFunc("POST /api/financing", handleFinancing)
	return mux
}

func get(t *testing.T, mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	return rec
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) VehicleList {
	t.Helper()
	var list VehicleList
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return list
}

func TestHealthEndpoint(t *testing.T) {
	rec := get(t, testMux(t), "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestVehiclesEndpoint(t *testing.T) {
	mux := testMux(t)

	list := decodeList(t, get(t, mux, "/api/vehicles"))
	if list.Total != 8 {
		t.Fatalf("total = %d, want the 8 on-sale snapshot vehicles", list.Total)
	}
	for _, v := range list.Vehicles {
		if !v.OnSale {
			t.Errorf("off-sale vehicle %s in listing", v.ID)
		}
	}
}

func TestVehiclesEndpointFilters(t *testing.T) {
	mux := testMux(t)

	list := decodeList(t, get(t, mux, "/api/vehicles?combustible=diesel&precio-max=15000"))
	for _, v := range list.Vehicles {
		if v.Fuel != catalog.FuelDiesel || v.Price > 15000 {
			t.Errorf("filter leak: %s fuel=%s price=%d", v.ID, v.Fuel, v.Price)
		}
	}
	if list.Total == 0 {
		t.Fatal("expected at least one cheap diesel in the snapshot")
	}
}

func TestVehiclesEndpointSort(t *testing.T) {
	mux := testMux(t)

	list := decodeList(t, get(t, mux, "/api/vehicles?orden=precio-asc"))
	for i := 1; i < len(list.Vehicles); i++ {
		if list.Vehicles[i].Price < list.Vehicles[i-1].Price {
			t.Fatalf("not sorted ascending at %d", i)
		}
	}
}

func TestVehicleDetailEndpoint(t *testing.T) {
	mux := testMux(t)

	rec := get(t, mux, "/api/vehicles/peugeot-3008-gt-line-2020")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var v catalog.Vehicle
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	if v.Brand != "Peugeot" {
		t.Errorf("vehicle = %+v", v)
	}

	if rec := get(t, mux, "/api/vehicles/no-such-car"); rec.Code != http.StatusNotFound {
		t.Errorf("missing slug status = %d", rec.Code)
	}
}

func TestSimilarEndpoint(t *testing.T) {
	mux := testMux(t)

	list := decodeList(t, get(t, mux, "/api/vehicles/peugeot-3008-gt-line-2020/similar"))
	if list.Total == 0 || list.Total > 4 {
		t.Fatalf("similar total = %d", list.Total)
	}
	for _, v := range list.Vehicles {
		if v.Slug == "peugeot-3008-gt-line-2020" {
			t.Error("reference vehicle in its own similar list")
		}
		if !v.OnSale {
			t.Errorf("off-sale similar vehicle %s", v.ID)
		}
	}
}

func TestFiltersEndpoint(t *testing.T) {
	rec := get(t, testMux(t), "/api/filters")
	var f Filters
	if err := json.NewDecoder(rec.Body).Decode(&f); err != nil {
		t.Fatal(err)
	}
	if len(f.Brands) == 0 || len(f.FuelTypes) == 0 {
		t.Fatalf("filters = %+v", f)
	}
	if f.PriceRange.Min <= 0 || f.PriceRange.Max <= f.PriceRange.Min {
		t.Errorf("price range = %+v", f.PriceRange)
	}
	if len(f.Terms) != 9 {
		t.Errorf("financing terms = %v", f.Terms)
	}
}

func TestSearchEndpointStructuredQuery(t *testing.T) {
	mux := testMux(t)

	// "bmw diesel" carries filter vocabulary and goes through the filter
	// engine, not the lexical scan.
	list := decodeList(t, get(t, mux, "/api/search?q=bmw+diesel"))
	if list.Total != 1 || list.Vehicles[0].Brand != "BMW" {
		t.Fatalf("results = %+v", list)
	}
}

func TestSearchEndpointFreeText(t *testing.T) {
	mux := testMux(t)

	list := decodeList(t, get(t, mux, "/api/search?q=techo+solar"))
	if list.Total != 1 || !strings.Contains(list.Vehicles[0].Description, "techo solar") {
		t.Fatalf("results = %+v", list)
	}
}

func TestFinancingEndpoint(t *testing.T) {
	mux := testMux(t)

	body := strings.NewReader(`{"price": 18000, "down_payment": 3000, "term_months": 60}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/financing", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var q struct {
		Principal      int     `json:"principal"`
		TermMonths     int     `json:"term_months"`
		MonthlyPayment float64 `json:"monthly_payment"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&q); err != nil {
		t.Fatal(err)
	}
	if q.Principal != 15000 || q.TermMonths != 60 {
		t.Errorf("quote = %+v", q)
	}
	if q.MonthlyPayment < 336 || q.MonthlyPayment > 337 {
		t.Errorf("monthly = %v", q.MonthlyPayment)
	}
}

func TestFinancingEndpointLenientTerm(t *testing.T) {
	mux := testMux(t)

	body := strings.NewReader(`{"price": 10000, "term_months": 61}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/financing", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("lenient status = %d", rec.Code)
	}

	// Strict mode rejects the same term.
	body = strings.NewReader(`{"price": 10000, "term_months": 61, "strict": true}`)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/financing", body))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("strict status = %d", rec.Code)
	}
}

func TestFinancingEndpointRejectsNegativePrincipal(t *testing.T) {
	mux := testMux(t)

	body := strings.NewReader(`{"price": 1000, "down_payment": 2000, "term_months": 60}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/financing", body))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestFinancingEndpointBadBody(t *testing.T) {
	mux := testMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/financing", strings.NewReader("{broken")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}
