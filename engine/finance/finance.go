// Package finance computes financing quotes from the dealer-negotiated
// coefficient table. The coefficients are business constants agreed with the
// financing bank, not the output of an amortization formula; they must not
// be re-derived from an APR.
package finance

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Coefficients maps an allowed term in months to its monthly payment per
// euro financed.
var coefficients = map[int]float64{
	24:  0.047216,
	36:  0.033359,
	48:  0.026482,
	60:  0.022416,
	72:  0.019707,
	84:  0.017814,
	96:  0.016419,
	108: 0.015354,
	120: 0.014521,
}

// DefaultTermMonths is the term used when a caller opts into lenient
// handling of unknown terms.
const DefaultTermMonths = 60

var (
	ErrNegativePrincipal = errors.New("finance: negative principal")
	ErrUnknownTerm       = errors.New("finance: term not in coefficient table")
)

// Quote is one financing computation. MonthlyPayment and TotalCost are
// unrounded; rounding happens at presentation time only, so totals do not
// drift from rounding-then-multiplying.
type Quote struct {
	Principal      int     `json:"principal"`
	TermMonths     int     `json:"term_months"`
	Coefficient    float64 `json:"coefficient"`
	MonthlyPayment float64 `json:"monthly_payment"`
	TotalCost      float64 `json:"total_cost"`
}

// Terms returns the allowed terms in ascending order.
func Terms() []int {
	out := make([]int, 0, len(coefficients))
	for t := range coefficients {
		out = append(out, t)
	}
	sort.Ints(out)
	return out
}

// Compute builds a Quote for a principal (vehicle price minus down payment)
// and term. A zero principal quotes a zero payment; a negative principal or
// a term outside the table is rejected.
func Compute(principal, termMonths int) (Quote, error) {
	if principal < 0 {
		return Quote{}, fmt.Errorf("%w: %d", ErrNegativePrincipal, principal)
	}
	coef, ok := coefficients[termMonths]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %d months", ErrUnknownTerm, termMonths)
	}
	return quote(principal, termMonths, coef), nil
}

// ComputeWithFallback behaves like Compute but quotes unknown terms with the
// 60-month coefficient instead of rejecting them, matching the lenient
// behavior the dealership site always had. Negative principals are still
// rejected.
func ComputeWithFallback(principal, termMonths int) (Quote, error) {
	if principal < 0 {
		return Quote{}, fmt.Errorf("%w: %d", ErrNegativePrincipal, principal)
	}
	coef, ok := coefficients[termMonths]
	if !ok {
		termMonths = DefaultTermMonths
		coef = coefficients[DefaultTermMonths]
	}
	return quote(principal, termMonths, coef), nil
}

func quote(principal, termMonths int, coef float64) Quote {
	payment := float64(principal) * coef
	return Quote{
		Principal:      principal,
		TermMonths:     termMonths,
		Coefficient:    coef,
		MonthlyPayment: payment,
		TotalCost:      payment * float64(termMonths),
	}
}

// RoundedMonthly returns the monthly payment rounded to whole cents, for
// display.
func (q Quote) RoundedMonthly() float64 {
	return math.Round(q.MonthlyPayment*100) / 100
}
