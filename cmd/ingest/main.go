// Command ingest imports a dashboard export file into the live stores: it
// upserts every vehicle node into Neo4j, indexes embeddings into qdrant,
// and publishes an import event per vehicle on NATS. One-shot batch tool,
// meant to run after each dashboard export.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/VegaMotors/vegamotors-engine/engine/catalog"
	"github.com/VegaMotors/vegamotors-engine/engine/remote"
	"github.com/VegaMotors/vegamotors-engine/engine/search"
	"github.com/VegaMotors/vegamotors-engine/pkg/fn"
	"github.com/VegaMotors/vegamotors-engine/pkg/natsutil"
	"github.com/VegaMotors/vegamotors-engine/pkg/ollama"
	"github.com/VegaMotors/vegamotors-engine/pkg/resilience"
)

const (
	subjectImported = "catalog.vehicle.imported"
	embedBatchSize  = 32
)

// pointNamespace derives stable qdrant point uuids from non-uuid vehicle
// ids, so re-ingesting overwrites instead of duplicating.
var pointNamespace = uuid.MustParse("7b7e4a52-9c04-4a41-8f5f-3e0d2c9b61aa")

// Config holds all environment-based configuration.
type Config struct {
	Neo4jURL    string
	Neo4jUser   string
	Neo4jPass   string
	QdrantURL   string // empty: skip embedding indexing
	Collection  string
	OllamaURL   string
	OllamaModel string
	NATSURL     string // empty: skip event publishing
}

func loadConfig() Config {
	return Config{
		Neo4jURL:    envOr("NEO4J_URL", "bolt://localhost:7687"),
		Neo4jUser:   envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:   envOr("NEO4J_PASS", "password"),
		QdrantURL:   os.Getenv("QDRANT_URL"),
		Collection:  envOr("QDRANT_COLLECTION", "vehiculos"),
		OllamaURL:   envOr("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel: envOr("OLLAMA_MODEL", "nomic-embed-text"),
		NATSURL:     os.Getenv("NATS_URL"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// exportFile is the dashboard export shape, same as the bundled snapshot.
type exportFile struct {
	Version   string              `json:"version"`
	Vehiculos []catalog.RawRecord `json:"vehiculos"`
}

// ImportedEvent is published per vehicle after a successful upsert.
type ImportedEvent struct {
	VehicleID string    `json:"vehicle_id"`
	Slug      string    `json:"slug"`
	Price     int       `json:"price"`
	OnSale    bool      `json:"on_sale"`
	At        time.Time `json:"at"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	file := flag.String("file", "", "dashboard export JSON file (required)")
	flag.Parse()
	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: ingest -file export.json")
		os.Exit(2)
	}

	if err := run(loadConfig(), *file, logger); err != nil {
		logger.Error("ingest failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, path string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	records, err := readExport(path)
	if err != nil {
		return err
	}
	logger.Info("export loaded", "file", path, "records", len(records))

	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
	if err != nil {
		return fmt.Errorf("neo4j driver: %w", err)
	}
	defer driver.Close(ctx)
	src := remote.New(driver, remote.WithLimiter(resilience.NewLimiter(20, 20)))

	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()
	}

	vehicles := catalog.NormalizeAll(records)
	byID := make(map[string]catalog.Vehicle, len(vehicles))
	for _, v := range vehicles {
		byID[v.ID] = v
	}

	var upserted int
	for _, rec := range records {
		r := fn.Retry(ctx, fn.DefaultRetry, func(ctx context.Context) fn.Result[struct{}] {
			return fn.FromPair(struct{}{}, src.Upsert(ctx, rec))
		})
		if _, err := r.Unwrap(); err != nil {
			logger.Error("upsert failed", "id", rec.ID, "err", err)
			continue
		}
		upserted++

		if nc != nil {
			v := byID[rec.ID]
			evt := ImportedEvent{
				VehicleID: v.ID,
				Slug:      v.Slug,
				Price:     v.Price,
				OnSale:    v.OnSale,
				At:        time.Now().UTC(),
			}
			if err := natsutil.Publish(ctx, nc, subjectImported, evt); err != nil {
				logger.Warn("event publish failed", "id", rec.ID, "err", err)
			}
		}
	}
	logger.Info("upsert done", "upserted", upserted, "total", len(records))

	if cfg.QdrantURL != "" {
		if err := indexEmbeddings(ctx, cfg, vehicles, logger); err != nil {
			return err
		}
	}
	return nil
}

func readExport(path string) ([]catalog.RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f exportFile
	if err := json.Unmarshal(data, &f); err == nil && len(f.Vehiculos) > 0 {
		return f.Vehiculos, nil
	}

	// Some exports are a bare array.
	var recs []catalog.RawRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("parse export %s: %w", path, err)
	}
	return recs, nil
}

// indexEmbeddings vectorizes each vehicle's searchable text and upserts the
// points in batches. A vehicle whose embedding fails is skipped, not fatal.
func indexEmbeddings(ctx context.Context, cfg Config, vehicles []catalog.Vehicle, logger *slog.Logger) error {
	store, err := search.NewVectorStore(cfg.QdrantURL, cfg.Collection)
	if err != nil {
		return err
	}
	defer store.Close()

	embedder := ollama.NewEmbedClient(cfg.OllamaURL, cfg.OllamaModel)

	var records []search.VectorRecord
	for _, v := range vehicles {
		embedding, err := embedder.Embed(ctx, searchableText(v))
		if err != nil {
			logger.Warn("embedding failed", "id", v.ID, "err", err)
			continue
		}
		records = append(records, search.VectorRecord{
			ID:        pointID(v.ID),
			VehicleID: v.ID,
			Embedding: embedding,
		})
	}
	if len(records) == 0 {
		logger.Warn("no embeddings produced, index unchanged")
		return nil
	}

	if err := store.EnsureCollection(ctx, len(records[0].Embedding)); err != nil {
		return err
	}
	for _, batch := range fn.Chunk(records, embedBatchSize) {
		if err := store.Upsert(ctx, batch); err != nil {
			return err
		}
	}
	logger.Info("embeddings indexed", "points", len(records))
	return nil
}

// pointID reuses the vehicle id when it already is a uuid, and derives a
// stable one otherwise.
func pointID(vehicleID string) string {
	if id, err := uuid.Parse(vehicleID); err == nil {
		return id.String()
	}
	return uuid.NewSHA1(pointNamespace, []byte(vehicleID)).String()
}

func searchableText(v catalog.Vehicle) string {
	parts := []string{v.Title, v.Brand, v.Model, string(v.Fuel), string(v.BodyType), v.Description}
	parts = append(parts, v.Extras...)
	return strings.Join(fn.Filter(parts, func(s string) bool { return s != "" }), " ")
}
