// Package catalog implements the vehicle catalog core: the canonical Vehicle
// model, source-record normalization, the dual-source store with static
// fallback, the filter/sort engine, and the similarity resolver.
package catalog

import (
	"strings"
	"time"
)

// Vehicle is the canonical record every source normalizes into. All
// filtering, sorting, and similarity logic works on this shape only.
type Vehicle struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`

	Title       string `json:"title"`
	Brand       string `json:"brand"`
	Model       string `json:"model"`
	Color       string `json:"color,omitempty"`
	Description string `json:"description,omitempty"`

	// Price in whole euros. OriginalPrice is zero unless the source carried
	// a positive discount, in which case it is strictly greater than Price.
	Price          int `json:"price"`
	OriginalPrice  int `json:"original_price,omitempty"`
	MonthlyPayment int `json:"monthly_payment"`

	Year         int          `json:"year"`
	KM           int          `json:"km"`
	CV           int          `json:"cv"`
	Fuel         Fuel         `json:"fuel"`
	Transmission Transmission `json:"transmission"`
	BodyType     BodyType     `json:"body_type"`
	Seats        int          `json:"seats,omitempty"`
	Doors        int          `json:"doors,omitempty"`

	OnSale   bool  `json:"on_sale"`
	Featured bool  `json:"featured"`
	Label    Label `json:"label,omitempty"`

	Images []string `json:"images"`

	IVADeducible bool     `json:"iva_deducible"`
	Extras       []string `json:"extras,omitempty"`

	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// MainImage returns the first image URL, or "" when the vehicle has none.
func (v Vehicle) MainImage() string {
	if len(v.Images) == 0 {
		return ""
	}
	return v.Images[0]
}

// HasDiscount reports whether the vehicle carries a crossed-out price.
func (v Vehicle) HasDiscount() bool {
	return v.OriginalPrice > 0 && v.OriginalPrice > v.Price
}

// Fuel is a lenient enum: canonical values below, with unrecognized source
// vocabulary passing through as-is so unseen values never break rendering.
type Fuel string

const (
	FuelDiesel    Fuel = "Diesel"
	FuelGasolina  Fuel = "Gasolina"
	FuelHibrido   Fuel = "Híbrido"
	FuelElectrico Fuel = "Eléctrico"
	FuelGas       Fuel = "Gas"
)

var fuelAliases = map[string]Fuel{
	"diesel":    FuelDiesel,
	"gasolina":  FuelGasolina,
	"hibrido":   FuelHibrido,
	"electrico": FuelElectrico,
	"glp":       FuelGas,
	"gnc":       FuelGas,
	"gas":       FuelGas,
}

// ParseFuel maps source vocabulary to a canonical Fuel. Unknown values are
// returned trimmed but otherwise unchanged.
func ParseFuel(raw string) Fuel {
	raw = strings.TrimSpace(raw)
	if f, ok := fuelAliases[foldKey(raw)]; ok {
		return f
	}
	return Fuel(raw)
}

// Known reports whether the value is one of the canonical fuels.
func (f Fuel) Known() bool {
	switch f {
	case FuelDiesel, FuelGasolina, FuelHibrido, FuelElectrico, FuelGas:
		return true
	}
	return false
}

// Transmission is a lenient enum, same pass-through policy as Fuel.
type Transmission string

const (
	TransmissionManual     Transmission = "Manual"
	TransmissionAutomatico Transmission = "Automático"
)

var transmissionAliases = map[string]Transmission{
	"manual":         TransmissionManual,
	"automatico":     TransmissionAutomatico,
	"semiautomatico": TransmissionAutomatico,
}

// ParseTransmission maps source vocabulary to a canonical Transmission.
func ParseTransmission(raw string) Transmission {
	raw = strings.TrimSpace(raw)
	if t, ok := transmissionAliases[foldKey(raw)]; ok {
		return t
	}
	return Transmission(raw)
}

// Known reports whether the value is one of the canonical transmissions.
func (t Transmission) Known() bool {
	return t == TransmissionManual || t == TransmissionAutomatico
}

// BodyType is a lenient enum. Canonical values are lowercase, matching the
// URL segments the rendering layer builds from them.
type BodyType string

const (
	BodyBerlina     BodyType = "berlina"
	BodyFamiliar    BodyType = "familiar"
	BodySUV         BodyType = "suv"
	BodyMonovolumen BodyType = "monovolumen"
	BodyFurgoneta   BodyType = "furgoneta"
	BodyIndustrial  BodyType = "industrial"
	BodyBarco       BodyType = "barco"
)

var bodyAliases = map[string]BodyType{
	"berlina":     BodyBerlina,
	"sedan":       BodyBerlina,
	"familiar":    BodyFamiliar,
	"suv":         BodySUV,
	"4x4":         BodySUV,
	"todoterreno": BodySUV,
	"monovolumen": BodyMonovolumen,
	"furgoneta":   BodyFurgoneta,
	"industrial":  BodyIndustrial,
	"barco":       BodyBarco,
}

// ParseBodyType maps source vocabulary to a canonical BodyType.
func ParseBodyType(raw string) BodyType {
	raw = strings.TrimSpace(raw)
	if b, ok := bodyAliases[foldKey(raw)]; ok {
		return b
	}
	return BodyType(strings.ToLower(raw))
}

// Known reports whether the value is one of the canonical body types.
func (b BodyType) Known() bool {
	switch b {
	case BodyBerlina, BodyFamiliar, BodySUV, BodyMonovolumen, BodyFurgoneta, BodyIndustrial, BodyBarco:
		return true
	}
	return false
}

// Label is the DGT environmental sticker.
type Label string

const (
	LabelECO  Label = "ECO"
	LabelC    Label = "C"
	LabelB    Label = "B"
	LabelCero Label = "0"
)

// ParseLabel maps source vocabulary to a DGT label; unknown values pass
// through uppercased.
func ParseLabel(raw string) Label {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "ECO":
		return LabelECO
	case "C":
		return LabelC
	case "B":
		return LabelB
	case "0", "CERO", "ZERO":
		return LabelCero
	}
	return Label(strings.ToUpper(strings.TrimSpace(raw)))
}

// Fold lowercases and strips diacritics, so "Híbrido", "hibrido" and
// "HIBRIDO" compare equal. Used for alias lookups and lexical matching.
func Fold(s string) string {
	return stripDiacritics(strings.ToLower(s))
}

func foldKey(s string) string { return Fold(s) }
