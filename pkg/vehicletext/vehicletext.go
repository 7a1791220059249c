// Package vehicletext turns free-text Spanish search phrases into catalog
// filter criteria: "bmw automático hasta 15000" becomes brand=BMW,
// transmission=Automático, max price 15000. Recognition is best effort;
// unmatched words are simply ignored.
package vehicletext

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/VegaMotors/vegamotors-engine/engine/catalog"
)

// brandAliases maps folded brand mentions to their canonical names.
var brandAliases = map[string]string{
	"audi":       "Audi",
	"bmw":        "BMW",
	"citroen":    "Citroën",
	"cupra":      "Cupra",
	"dacia":      "Dacia",
	"fiat":       "Fiat",
	"ford":       "Ford",
	"hyundai":    "Hyundai",
	"kia":        "Kia",
	"mercedes":   "Mercedes-Benz",
	"nissan":     "Nissan",
	"opel":       "Opel",
	"peugeot":    "Peugeot",
	"renault":    "Renault",
	"seat":       "Seat",
	"skoda":      "Škoda",
	"toyota":     "Toyota",
	"volkswagen": "Volkswagen",
	"vw":         "Volkswagen",
	"volvo":      "Volvo",
}

// multiWordBrands are checked against the whole phrase before tokenizing.
var multiWordBrands = map[string]string{
	"mercedes benz": "Mercedes-Benz",
	"mercedes-benz": "Mercedes-Benz",
	"alfa romeo":    "Alfa Romeo",
	"land rover":    "Land Rover",
}

var fuelWords = map[string]catalog.Fuel{
	"diesel":    catalog.FuelDiesel,
	"gasolina":  catalog.FuelGasolina,
	"hibrido":   catalog.FuelHibrido,
	"electrico": catalog.FuelElectrico,
	"glp":       catalog.FuelGas,
	"gnc":       catalog.FuelGas,
	"gas":       catalog.FuelGas,
}

var transmissionWords = map[string]catalog.Transmission{
	"manual":     catalog.TransmissionManual,
	"automatico": catalog.TransmissionAutomatico,
	"automatica": catalog.TransmissionAutomatico,
}

var bodyWords = map[string]catalog.BodyType{
	"berlina":     catalog.BodyBerlina,
	"sedan":       catalog.BodyBerlina,
	"familiar":    catalog.BodyFamiliar,
	"suv":         catalog.BodySUV,
	"todoterreno": catalog.BodySUV,
	"4x4":         catalog.BodySUV,
	"monovolumen": catalog.BodyMonovolumen,
	"furgoneta":   catalog.BodyFurgoneta,
	"furgon":      catalog.BodyFurgoneta,
	"industrial":  catalog.BodyIndustrial,
	"barco":       catalog.BodyBarco,
}

var (
	yearRe     = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
	maxAmtRe   = regexp.MustCompile(`(?:hasta|menos de|maximo|max\.?)\s+([\d.,]+)\s*(k|mil|€|euros?)?`)
	minAmtRe   = regexp.MustCompile(`(?:desde|mas de|minimo|min\.?)\s+([\d.,]+)\s*(k|mil|€|euros?)?`)
	kmBoundRe  = regexp.MustCompile(`(?:hasta|menos de|maximo)\s+([\d.,]+)\s*(k|mil)?\s*km\b`)
	minYear    = 1980
	maxYearPad = 1
)

// ParseQuery extracts filter criteria from a free-text phrase. Amounts
// followed by "km" bound mileage; other bounded amounts bound price. A bare
// plausible year pins the registration year.
func ParseQuery(text string) catalog.Criteria {
	var c catalog.Criteria
	folded := catalog.Fold(text)

	for phrase, brand := range multiWordBrands {
		if strings.Contains(folded, phrase) {
			c.Brand = brand
			break
		}
	}

	// Mileage bound first: it would otherwise also match the price regex.
	if m := kmBoundRe.FindStringSubmatch(folded); m != nil {
		c.MaxKM = parseAmount(m[1], m[2])
		folded = strings.Replace(folded, m[0], " ", 1)
	}
	if m := maxAmtRe.FindStringSubmatch(folded); m != nil {
		c.MaxPrice = parseAmount(m[1], m[2])
		folded = strings.Replace(folded, m[0], " ", 1)
	}
	if m := minAmtRe.FindStringSubmatch(folded); m != nil {
		c.MinPrice = parseAmount(m[1], m[2])
		folded = strings.Replace(folded, m[0], " ", 1)
	}

	for _, tok := range strings.Fields(folded) {
		if c.Brand == "" {
			if b, ok := brandAliases[tok]; ok {
				c.Brand = b
				continue
			}
		}
		if c.Fuel == "" {
			if f, ok := fuelWords[tok]; ok {
				c.Fuel = f
				continue
			}
		}
		if c.Transmission == "" {
			if t, ok := transmissionWords[tok]; ok {
				c.Transmission = t
				continue
			}
		}
		if c.BodyType == "" {
			if b, ok := bodyWords[tok]; ok {
				c.BodyType = string(b)
				continue
			}
		}
	}

	if m := yearRe.FindStringSubmatch(folded); m != nil {
		if y, err := strconv.Atoi(m[1]); err == nil && y >= minYear && y <= currentYearPlus(maxYearPad) {
			c.MinYear = y
			c.MaxYear = y
		}
	}

	return c
}

func currentYearPlus(n int) int {
	return time.Now().Year() + n
}

// parseAmount reads "15000", "15.000", or "15" with a k/mil suffix.
func parseAmount(num, suffix string) int {
	num = strings.ReplaceAll(num, ".", "")
	num = strings.ReplaceAll(num, ",", "")
	n, err := strconv.Atoi(num)
	if err != nil {
		return 0
	}
	if suffix == "k" || suffix == "mil" {
		n *= 1000
	}
	return n
}
