package catalog

import (
	"context"
	"log/slog"

	"github.com/VegaMotors/vegamotors-engine/pkg/metrics"
)

// Source supplies the full vehicle set, already normalized. The remote
// data-store source and the bundled snapshot both implement it; the two are
// only guaranteed to agree on filter membership, not on ordering.
type Source interface {
	Name() string
	FetchAll(ctx context.Context) ([]Vehicle, error)
}

// Selector picks the backing source per call: remote first when configured,
// with a silent fallback to the static snapshot on any remote error. The
// fallback is never sticky; the next call tries the remote source again.
type Selector struct {
	remote Source
	static Source
	log    *slog.Logger

	remoteHits *metrics.Counter
	fallbacks  *metrics.Counter
}

// NewSelector creates a Selector. remote may be nil when no data store is
// configured; every call then serves the static snapshot. static must not
// be nil.
func NewSelector(remote, static Source, log *slog.Logger, reg *metrics.Registry) *Selector {
	if log == nil {
		log = slog.Default()
	}
	if reg == nil {
		reg = metrics.New()
	}
	return &Selector{
		remote:     remote,
		static:     static,
		log:        log,
		remoteHits: reg.Counter("catalog_remote_fetch_total", "Successful remote catalog fetches"),
		fallbacks:  reg.Counter("catalog_static_fallback_total", "Catalog calls served by the static snapshot"),
	}
}

// Load returns the current vehicle set. It never returns an error: remote
// failures fall back to the snapshot, and a snapshot failure (which only a
// corrupt build could produce) yields an empty catalog.
func (s *Selector) Load(ctx context.Context) []Vehicle {
	if s.remote != nil {
		vehicles, err := s.remote.FetchAll(ctx)
		if err == nil {
			s.remoteHits.Inc()
			return vehicles
		}
		s.fallbacks.Inc()
		s.log.Warn("remote catalog unavailable, serving static snapshot",
			"source", s.remote.Name(), "err", err)
	}

	vehicles, err := s.static.FetchAll(ctx)
	if err != nil {
		s.log.Error("static snapshot failed", "source", s.static.Name(), "err", err)
		return nil
	}
	return vehicles
}
