// Package remote implements the data-store-backed vehicle source. Vehicle
// nodes live in Neo4j under the dashboard's Spanish property names; this
// package queries them and hands rows to the catalog normalizer. Any error
// here is the catalog Selector's cue to fall back to the static snapshot.
package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/VegaMotors/vegamotors-engine/engine/catalog"
	"github.com/VegaMotors/vegamotors-engine/pkg/resilience"
)

// DefaultQueryTimeout bounds every remote query. On expiry the Selector
// falls back; there is no retry on the serving path.
const DefaultQueryTimeout = 3 * time.Second

// result is the minimal surface we need from a neo4j result.
type result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
}

// runner is the minimal surface we need from a neo4j session.
type runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (result, error)
	Close(ctx context.Context) error
}

// Source fetches vehicles from Neo4j. It implements catalog.Source.
type Source struct {
	driver     neo4j.DriverWithContext
	limiter    *resilience.Limiter
	timeout    time.Duration
	newSession func(ctx context.Context) runner // test seam
}

// Option configures a Source.
type Option func(*Source)

// WithLimiter throttles outbound queries.
func WithLimiter(l *resilience.Limiter) Option {
	return func(s *Source) { s.limiter = l }
}

// WithQueryTimeout overrides DefaultQueryTimeout.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Source) { s.timeout = d }
}

// New creates a Source over an open driver.
func New(driver neo4j.DriverWithContext, opts ...Option) *Source {
	s := &Source{driver: driver, timeout: DefaultQueryTimeout}
	for _, o := range opts {
		o(s)
	}
	return s
}

var _ catalog.Source = (*Source)(nil)

// Name implements catalog.Source.
func (s *Source) Name() string { return "neo4j" }

// sessionAdapter narrows neo4j.SessionWithContext to runner.
type sessionAdapter struct {
	sess neo4j.SessionWithContext
}

func (a *sessionAdapter) Run(ctx context.Context, cypher string, params map[string]any) (result, error) {
	return a.sess.Run(ctx, cypher, params)
}

func (a *sessionAdapter) Close(ctx context.Context) error { return a.sess.Close(ctx) }

func (s *Source) session(ctx context.Context) runner {
	if s.newSession != nil {
		return s.newSession(ctx)
	}
	return &sessionAdapter{sess: s.driver.NewSession(ctx, neo4j.SessionConfig{})}
}

// FetchAll implements catalog.Source. Rows come back most-recently-updated
// first; the static snapshot does not replicate that order and is not
// required to.
func (s *Source) FetchAll(ctx context.Context) ([]catalog.Vehicle, error) {
	records, err := s.query(ctx,
		`MATCH (n:Vehicle) RETURN n ORDER BY n.actualizado DESC`, nil)
	if err != nil {
		return nil, err
	}
	return catalog.NormalizeAll(records), nil
}

// FetchAllRaw returns the un-normalized rows, most recently updated first.
// The snapshot collector uses this to write the bundled fallback file in
// the source field-naming scheme.
func (s *Source) FetchAllRaw(ctx context.Context) ([]catalog.RawRecord, error) {
	return s.query(ctx, `MATCH (n:Vehicle) RETURN n ORDER BY n.actualizado DESC`, nil)
}

// Upsert writes one raw record as a Vehicle node. Only the batch import
// tooling calls this; the serving path never writes.
func (s *Source) Upsert(ctx context.Context, rec catalog.RawRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("remote: upsert: record without id")
	}

	sess := s.session(ctx)
	defer sess.Close(ctx)

	props := map[string]any{
		"id":                 rec.ID,
		"uri":                rec.URI,
		"titulo":             rec.Titulo,
		"marca":              rec.Marca,
		"modelo":             rec.Modelo,
		"color":              rec.Color,
		"descripcion":        rec.Descripcion,
		"precio":             int(rec.Precio),
		"descuento":          int(rec.Descuento),
		"cuota":              int(rec.Cuota),
		"anio_matriculacion": int(rec.AnioMatriculacion),
		"kilometraje":        int(rec.Kilometraje),
		"potencia":           int(rec.Potencia),
		"combustible":        rec.Combustible,
		"cambio":             rec.Cambio,
		"carroceria":         rec.Carroceria,
		"plazas":             int(rec.Plazas),
		"puertas":            int(rec.Puertas),
		"estado":             rec.Estado,
		"destacado":          bool(rec.Destacado),
		"etiqueta":           rec.Etiqueta,
		"imagenes":           rec.Imagenes,
		"iva_deducible":      bool(rec.IVADeducible),
		"extras":             rec.Extras,
		"actualizado":        rec.Actualizado,
	}

	_, err := sess.Run(ctx,
		`MERGE (n:Vehicle {id: $id}) SET n += $props`,
		map[string]any{"id": rec.ID, "props": props})
	if err != nil {
		return fmt.Errorf("remote: upsert %s: %w", rec.ID, err)
	}
	return nil
}

// FetchByID returns one vehicle row by its opaque id.
func (s *Source) FetchByID(ctx context.Context, id string) (catalog.Vehicle, error) {
	records, err := s.query(ctx,
		`MATCH (n:Vehicle {id: $id}) RETURN n LIMIT 1`, map[string]any{"id": id})
	if err != nil {
		return catalog.Vehicle{}, err
	}
	if len(records) == 0 {
		return catalog.Vehicle{}, fmt.Errorf("remote: vehicle %s not found", id)
	}
	return catalog.Normalize(records[0]), nil
}

func (s *Source) query(ctx context.Context, cypher string, params map[string]any) ([]catalog.RawRecord, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("remote: limiter: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sess := s.session(ctx)
	defer sess.Close(ctx)

	res, err := sess.Run(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("remote: query: %w", err)
	}

	var out []catalog.RawRecord
	for res.Next(ctx) {
		if raw, ok := rawFromRecord(res.Record()); ok {
			out = append(out, raw)
		}
	}
	return out, nil
}

// rawFromRecord converts the "n" column of a record into a RawRecord. Rows
// without an id are dropped rather than erroring; a half-written node must
// not take the whole catalog down.
func rawFromRecord(rec *neo4j.Record) (catalog.RawRecord, bool) {
	val, ok := rec.Get("n")
	if !ok {
		return catalog.RawRecord{}, false
	}
	props := nodeProps(val)
	if props == nil {
		return catalog.RawRecord{}, false
	}

	raw := catalog.RawRecord{
		ID:          strProp(props, "id"),
		URI:         strProp(props, "uri"),
		Titulo:      strProp(props, "titulo"),
		Marca:       strProp(props, "marca"),
		Modelo:      strProp(props, "modelo"),
		Color:       strProp(props, "color"),
		Descripcion: strProp(props, "descripcion"),

		Precio:    catalog.FlexInt(intProp(props, "precio")),
		Descuento: catalog.FlexInt(intProp(props, "descuento")),
		Cuota:     catalog.FlexInt(intProp(props, "cuota")),

		AnioMatriculacion: catalog.FlexInt(intProp(props, "anio_matriculacion")),
		Kilometraje:       catalog.FlexInt(intProp(props, "kilometraje")),
		Potencia:          catalog.FlexInt(intProp(props, "potencia")),
		Combustible:       strProp(props, "combustible"),
		Cambio:            strProp(props, "cambio"),
		Carroceria:        strProp(props, "carroceria"),
		Plazas:            catalog.FlexInt(intProp(props, "plazas")),
		Puertas:           catalog.FlexInt(intProp(props, "puertas")),

		Estado:       strProp(props, "estado"),
		Destacado:    catalog.FlexBool(boolProp(props, "destacado")),
		Etiqueta:     strProp(props, "etiqueta"),
		Imagenes:     strSliceProp(props, "imagenes"),
		IVADeducible: catalog.FlexBool(boolProp(props, "iva_deducible")),
		Extras:       strSliceProp(props, "extras"),
		Actualizado:  timeProp(props, "actualizado"),
	}
	if raw.ID == "" {
		return catalog.RawRecord{}, false
	}
	return raw, true
}

// nodeProps extracts the property map from a node value. Real results carry
// dbtype.Node; fakes in tests may pass a plain map.
func nodeProps(val any) map[string]any {
	type propsHolder interface {
		GetProperties() map[string]any
	}
	if ph, ok := val.(propsHolder); ok {
		return ph.GetProperties()
	}
	if m, ok := val.(map[string]any); ok {
		return m
	}
	return nil
}

func strProp(props map[string]any, key string) string {
	if s, ok := props[key].(string); ok {
		return s
	}
	return ""
}

func intProp(props map[string]any, key string) int {
	switch v := props[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func boolProp(props map[string]any, key string) bool {
	if b, ok := props[key].(bool); ok {
		return b
	}
	return false
}

func strSliceProp(props map[string]any, key string) []string {
	raw, ok := props[key].([]any)
	if !ok {
		if ss, ok := props[key].([]string); ok {
			return ss
		}
		return nil
	}
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func timeProp(props map[string]any, key string) string {
	switch v := props[key].(type) {
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case string:
		return v
	}
	return ""
}
