// Command snapshot-collector pulls the full vehicle list from Neo4j and
// writes it as a snapshot file in the source field-naming scheme. The output
// is meant to be committed as the bundled fallback the API serves when the
// remote store is unreachable.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/VegaMotors/vegamotors-engine/engine/catalog"
	"github.com/VegaMotors/vegamotors-engine/engine/remote"
)

// Config holds all environment-based configuration.
type Config struct {
	Neo4jURL  string
	Neo4jUser string
	Neo4jPass string
}

func loadConfig() Config {
	return Config{
		Neo4jURL:  envOr("NEO4J_URL", "bolt://localhost:7687"),
		Neo4jUser: envOr("NEO4J_USER", "neo4j"),
		Neo4jPass: envOr("NEO4J_PASS", "password"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// snapshotFile mirrors the shape the static catalog source embeds.
type snapshotFile struct {
	Version   string              `json:"version"`
	Vehiculos []catalog.RawRecord `json:"vehiculos"`
	Imagenes  map[string]string   `json:"imagenes"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	out := flag.String("out", "snapshot.json", "output snapshot file")
	flag.Parse()

	if err := run(loadConfig(), *out, logger); err != nil {
		logger.Error("snapshot collection failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, out string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
	if err != nil {
		return fmt.Errorf("neo4j driver: %w", err)
	}
	defer driver.Close(ctx)

	src := remote.New(driver, remote.WithQueryTimeout(30*time.Second))
	records, err := src.FetchAllRaw(ctx)
	if err != nil {
		return fmt.Errorf("fetch vehicles: %w", err)
	}
	if len(records) == 0 {
		// A truncated snapshot would silently shrink the fallback catalog.
		return fmt.Errorf("remote returned no vehicles, refusing to write empty snapshot")
	}

	// Carry a main image for records without an image list, so the fallback
	// catalog never renders image-less cards.
	imagenes := make(map[string]string)
	for _, v := range catalog.NormalizeAll(records) {
		if url := v.MainImage(); url != "" {
			imagenes[v.ID] = url
		}
	}

	file := snapshotFile{
		Version:   time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		Vehiculos: records,
		Imagenes:  imagenes,
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	logger.Info("snapshot written", "file", out, "vehicles", len(records))
	return nil
}
