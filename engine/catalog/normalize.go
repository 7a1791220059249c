package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// statusAvailable is the only source status that makes a vehicle purchasable.
// "reservado" and "vendido" collapse to OnSale=false.
const statusAvailable = "disponible"

// estimateTermMonths is the term used for the display-only monthly estimate
// shown on listing cards. Distinct from the finance calculator output.
const estimateTermMonths = 60

// RawRecord is one vehicle row as both sources deliver it: the data-store
// export and the bundled snapshot share the Spanish field-naming scheme.
// Numeric and boolean fields tolerate string-typed values; anything
// unparseable degrades to its zero value so a partial record still renders.
type RawRecord struct {
	ID          string `json:"id"`
	URI         string `json:"uri"`
	Titulo      string `json:"titulo"`
	Marca       string `json:"marca"`
	Modelo      string `json:"modelo"`
	Color       string `json:"color"`
	Descripcion string `json:"descripcion"`

	Precio    FlexInt `json:"precio"`
	Descuento FlexInt `json:"descuento"`
	Cuota     FlexInt `json:"cuota"`

	AnioMatriculacion FlexInt `json:"anio_matriculacion"`
	Kilometraje       FlexInt `json:"kilometraje"`
	Potencia          FlexInt `json:"potencia"`
	Combustible       string  `json:"combustible"`
	Cambio            string  `json:"cambio"`
	Carroceria        string  `json:"carroceria"`
	Plazas            FlexInt `json:"plazas"`
	Puertas           FlexInt `json:"puertas"`

	Estado       string   `json:"estado"`
	Destacado    FlexBool `json:"destacado"`
	Etiqueta     string   `json:"etiqueta"`
	Imagenes     []string `json:"imagenes"`
	IVADeducible FlexBool `json:"iva_deducible"`
	Extras       []string `json:"extras"`
	Actualizado  string   `json:"actualizado"`
}

// FlexInt decodes JSON numbers or numeric strings. Malformed values decode
// to 0 instead of failing the record.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexInt(int(v))
	return nil
}

// FlexBool decodes JSON booleans, "true"/"false" strings, or 0/1 numbers.
type FlexBool bool

func (f *FlexBool) UnmarshalJSON(data []byte) error {
	switch strings.ToLower(strings.Trim(string(data), `"`)) {
	case "true", "1", "si", "sí":
		*f = true
	default:
		*f = false
	}
	return nil
}

var _ json.Unmarshaler = (*FlexInt)(nil)
var _ json.Unmarshaler = (*FlexBool)(nil)

// Normalize converts one raw source record into the canonical Vehicle.
// Pure: same record in, same Vehicle out. It never fails; missing or
// malformed fields get safe defaults so a page can always render.
func Normalize(r RawRecord) Vehicle {
	v := Vehicle{
		ID:          strings.TrimSpace(r.ID),
		Brand:       strings.TrimSpace(r.Marca),
		Model:       strings.TrimSpace(r.Modelo),
		Color:       strings.TrimSpace(r.Color),
		Description: strings.TrimSpace(r.Descripcion),

		Price: int(r.Precio),
		Year:  int(r.AnioMatriculacion),
		KM:    int(r.Kilometraje),
		CV:    int(r.Potencia),
		Seats: int(r.Plazas),
		Doors: int(r.Puertas),

		Fuel:         ParseFuel(r.Combustible),
		Transmission: ParseTransmission(r.Cambio),
		BodyType:     ParseBodyType(r.Carroceria),

		OnSale:   foldKey(r.Estado) == statusAvailable,
		Featured: bool(r.Destacado),

		Images: r.Imagenes,
		Extras: r.Extras,

		IVADeducible: bool(r.IVADeducible),
	}

	if v.KM < 0 {
		v.KM = 0
	}

	v.Title = strings.TrimSpace(r.Titulo)
	if v.Title == "" {
		v.Title = strings.TrimSpace(v.Brand + " " + v.Model)
	}

	// A crossed-out price exists only when the source carries a positive
	// discount amount. Absent discount means no OriginalPrice at all.
	if d := int(r.Descuento); d > 0 {
		v.OriginalPrice = v.Price + d
	}

	v.MonthlyPayment = int(r.Cuota)
	if v.MonthlyPayment <= 0 {
		v.MonthlyPayment = MonthlyEstimate(v.Price)
	}

	if r.Etiqueta != "" {
		v.Label = ParseLabel(r.Etiqueta)
	}

	if r.Actualizado != "" {
		if t, err := time.Parse(time.RFC3339, r.Actualizado); err == nil {
			v.UpdatedAt = t
		}
	}

	v.Slug = deriveSlug(r, v)
	return v
}

// NormalizeAll normalizes a batch and resolves slug collisions by suffixing
// later duplicates with a fragment of their id. Slugs are unique within the
// returned snapshot.
func NormalizeAll(records []RawRecord) []Vehicle {
	out := make([]Vehicle, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		v := Normalize(r)
		if seen[v.Slug] {
			if frag := idFragment(v.ID); frag != "" {
				v.Slug = v.Slug + "-" + frag
			}
		}
		seen[v.Slug] = true
		out = append(out, v)
	}
	return out
}

// MonthlyEstimate is the display-only financing teaser on listing cards:
// price over sixty months, no interest. The finance package computes real
// quotes.
func MonthlyEstimate(price int) int {
	if price <= 0 {
		return 0
	}
	return int(math.Round(float64(price) / estimateTermMonths))
}

func deriveSlug(r RawRecord, v Vehicle) string {
	// A supplied URI wins; it still goes through Slugify so the result is
	// URL-safe no matter what the dashboard stored.
	if s := Slugify(r.URI); s != "" {
		return s
	}
	if v.Year > 0 {
		if s := Slugify(fmt.Sprintf("%s %s %d", v.Brand, v.Model, v.Year)); s != "" {
			return s
		}
	}
	if s := Slugify(v.Brand + " " + v.Model); s != "" {
		return s
	}
	return idFragment(v.ID)
}

// Slugify lowercases, strips diacritics (NFD decomposition, combining marks
// removed), collapses every non-alphanumeric run into a single hyphen, and
// trims edge hyphens.
func Slugify(s string) string {
	s = stripDiacritics(strings.ToLower(strings.TrimSpace(s)))
	var b strings.Builder
	b.Grow(len(s))
	lastHyphen := true // suppress a leading hyphen
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func stripDiacritics(s string) string {
	out, _, err := transform.String(diacriticStripper, s)
	if err != nil {
		return s
	}
	return out
}

// idFragment returns up to six slug-safe characters of an id, used to break
// slug collisions.
func idFragment(id string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(id) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == 6 {
				break
			}
		}
	}
	return b.String()
}
