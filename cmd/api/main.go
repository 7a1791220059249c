// Package main implements the catalog API server consumed by the website
// rendering layer.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/VegaMotors/vegamotors-engine/engine/catalog"
	"github.com/VegaMotors/vegamotors-engine/engine/finance"
	"github.com/VegaMotors/vegamotors-engine/engine/remote"
	"github.com/VegaMotors/vegamotors-engine/engine/search"
	"github.com/VegaMotors/vegamotors-engine/pkg/metrics"
	"github.com/VegaMotors/vegamotors-engine/pkg/mid"
	"github.com/VegaMotors/vegamotors-engine/pkg/ollama"
	"github.com/VegaMotors/vegamotors-engine/pkg/resilience"
	"github.com/VegaMotors/vegamotors-engine/pkg/vehicletext"
)

// Config holds all environment-based configuration.
type Config struct {
	Port        string
	Neo4jURL    string // empty: serve the static snapshot only
	Neo4jUser   string
	Neo4jPass   string
	QdrantURL   string // empty: lexical search only
	Collection  string
	OllamaURL   string
	OllamaModel string
	CORSOrigin  string
}

func loadConfig() Config {
	return Config{
		Port:        envOr("PORT", "8080"),
		Neo4jURL:    os.Getenv("NEO4J_URL"),
		Neo4jUser:   envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:   envOr("NEO4J_PASS", "password"),
		QdrantURL:   os.Getenv("QDRANT_URL"),
		Collection:  envOr("QDRANT_COLLECTION", "vehiculos"),
		OllamaURL:   envOr("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel: envOr("OLLAMA_MODEL", "nomic-embed-text"),
		CORSOrigin:  envOr("CORS_ORIGIN", "*"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(loadConfig(), logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.New()

	static, err := catalog.NewStaticSource()
	if err != nil {
		return err
	}

	var remoteSrc catalog.Source
	if cfg.Neo4jURL != "" {
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
		if err != nil {
			// A bad driver config degrades to static serving, same as any
			// other remote failure.
			logger.Warn("neo4j driver unavailable, static snapshot only", "err", err)
		} else {
			defer driver.Close(ctx)
			remoteSrc = remote.New(driver, remote.WithLimiter(resilience.NewLimiter(50, 100)))
		}
	}

	store := catalog.NewStore(catalog.NewSelector(remoteSrc, static, logger, reg))

	var embedder search.Embedder
	var vectors search.VectorSearcher
	if cfg.QdrantURL != "" {
		vs, err := search.NewVectorStore(cfg.QdrantURL, cfg.Collection)
		if err != nil {
			logger.Warn("qdrant unavailable, lexical search only", "err", err)
		} else {
			defer vs.Close()
			vectors = vs
			embedder = ollama.NewEmbedClient(cfg.OllamaURL, cfg.OllamaModel)
		}
	}
	searchSvc := search.New(store, embedder, vectors, logger, reg)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/vehicles", handleVehicles(store))
	mux.HandleFunc("GET /api/vehicles/{slug}", handleVehicle(store))
	mux.HandleFunc("GET /api/vehicles/{slug}/similar", handleSimilar(store))
	mux.HandleFunc("GET /api/filters", handleFilters(store))
	mux.HandleFunc("GET /api/search", handleSearch(store, searchSvc))
	mux.HandleFunc("POST /api/financing", handleFinancing)
	mux.Handle("GET /metrics", reg.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.Observe(reg),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("catalog-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func intParam(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}

func criteriaFromQuery(r *http.Request) catalog.Criteria {
	q := r.URL.Query()
	return catalog.Criteria{
		Brand:        q.Get("marca"),
		BodyType:     q.Get("carroceria"),
		Fuel:         catalog.Fuel(q.Get("combustible")),
		Transmission: catalog.Transmission(q.Get("cambio")),
		MinPrice:     intParam(r, "precio-min"),
		MaxPrice:     intParam(r, "precio-max"),
		MaxKM:        intParam(r, "km-max"),
		MinYear:      intParam(r, "anio-min"),
		MaxYear:      intParam(r, "anio-max"),
	}
}

// VehicleList is the JSON response for listing endpoints.
type VehicleList struct {
	Total    int               `json:"total"`
	Vehicles []catalog.Vehicle `json:"vehicles"`
}

func handleVehicles(store *catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := catalog.ParseSortKey(r.URL.Query().Get("orden"))
		vehicles := store.Search(r.Context(), criteriaFromQuery(r), key)
		writeJSON(w, http.StatusOK, VehicleList{Total: len(vehicles), Vehicles: vehicles})
	}
}

func handleVehicle(store *catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := store.GetBySlug(r.Context(), r.PathValue("slug"))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "vehicle not found"})
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func handleSimilar(store *catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := store.GetBySlug(r.Context(), r.PathValue("slug"))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "vehicle not found"})
			return
		}
		limit := intParam(r, "limit")
		if limit <= 0 || limit > 12 {
			limit = 4
		}
		similar := store.Similar(r.Context(), v, limit)
		writeJSON(w, http.StatusOK, VehicleList{Total: len(similar), Vehicles: similar})
	}
}

// Filters is the JSON response for the filter sidebar.
type Filters struct {
	Brands     []string      `json:"brands"`
	FuelTypes  []string      `json:"fuel_types"`
	BodyTypes  []string      `json:"body_types"`
	PriceRange catalog.Range `json:"price_range"`
	YearRange  catalog.Range `json:"year_range"`
	Count      int           `json:"count"`
	Terms      []int         `json:"financing_terms"`
}

func handleFilters(store *catalog.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		writeJSON(w, http.StatusOK, Filters{
			Brands:     store.DistinctBrands(ctx),
			FuelTypes:  store.DistinctFuelTypes(ctx),
			BodyTypes:  store.DistinctBodyTypes(ctx),
			PriceRange: store.PriceRange(ctx),
			YearRange:  store.YearRange(ctx),
			Count:      store.Count(ctx),
			Terms:      finance.Terms(),
		})
	}
}

// handleSearch answers the search box. Structured vocabulary in the phrase
// ("bmw diesel hasta 15000") goes through the filter engine; phrases with
// no recognizable filters fall through to semantic/lexical search.
func handleSearch(store *catalog.Store, svc *search.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		limit := intParam(r, "limit")
		if limit <= 0 || limit > 50 {
			limit = 20
		}

		var vehicles []catalog.Vehicle
		if c := vehicletext.ParseQuery(query); !c.IsZero() {
			vehicles = store.Search(r.Context(), c, catalog.SortRelevancia)
			if len(vehicles) > limit {
				vehicles = vehicles[:limit]
			}
		} else {
			vehicles = svc.Search(r.Context(), query, limit)
		}
		writeJSON(w, http.StatusOK, VehicleList{Total: len(vehicles), Vehicles: vehicles})
	}
}

// FinancingRequest is the JSON body for POST /api/financing.
type FinancingRequest struct {
	Price       int  `json:"price"`
	DownPayment int  `json:"down_payment"`
	TermMonths  int  `json:"term_months"`
	Strict      bool `json:"strict,omitempty"`
}

func handleFinancing(w http.ResponseWriter, r *http.Request) {
	var req FinancingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	principal := req.Price - req.DownPayment
	compute := finance.ComputeWithFallback
	if req.Strict {
		compute = finance.Compute
	}
	q, err := compute(principal, req.TermMonths)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, q)
}
