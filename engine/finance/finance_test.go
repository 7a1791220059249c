package finance

import (
	"errors"
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestComputeReferenceQuote(t *testing.T) {
	q, err := Compute(15000, 60)
	if err != nil {
		t.Fatal(err)
	}
	if q.Coefficient != 0.022416 {
		t.Errorf("coefficient = %v", q.Coefficient)
	}
	if !almostEqual(q.MonthlyPayment, 336.24) {
		t.Errorf("monthly = %v, want 336.24", q.MonthlyPayment)
	}
	if !almostEqual(q.TotalCost, 20174.40) {
		t.Errorf("total = %v, want 20174.40", q.TotalCost)
	}
	if q.RoundedMonthly() != 336.24 {
		t.Errorf("rounded monthly = %v", q.RoundedMonthly())
	}
}

func TestComputeIsReproducible(t *testing.T) {
	a, _ := Compute(23750, 96)
	b, _ := Compute(23750, 96)
	if a != b {
		t.Fatalf("same inputs produced different quotes: %+v vs %+v", a, b)
	}
}

func TestComputeZeroPrincipal(t *testing.T) {
	q, err := Compute(0, 48)
	if err != nil {
		t.Fatal(err)
	}
	if q.MonthlyPayment != 0 || q.TotalCost != 0 {
		t.Errorf("zero principal quote = %+v", q)
	}
}

func TestComputeRejectsNegativePrincipal(t *testing.T) {
	_, err := Compute(-1, 60)
	if !errors.Is(err, ErrNegativePrincipal) {
		t.Fatalf("err = %v, want ErrNegativePrincipal", err)
	}
}

func TestComputeRejectsUnknownTerm(t *testing.T) {
	for _, term := range []int{0, 12, 61, 121, -24} {
		_, err := Compute(10000, term)
		if !errors.Is(err, ErrUnknownTerm) {
			t.Errorf("term %d: err = %v, want ErrUnknownTerm", term, err)
		}
	}
}

func TestComputeWithFallback(t *testing.T) {
	q, err := ComputeWithFallback(10000, 61)
	if err != nil {
		t.Fatal(err)
	}
	if q.TermMonths != DefaultTermMonths || q.Coefficient != 0.022416 {
		t.Errorf("fallback quote = %+v, want 60-month terms", q)
	}

	// Known terms are unaffected.
	q, err = ComputeWithFallback(10000, 24)
	if err != nil || q.TermMonths != 24 {
		t.Errorf("known term rerouted: %+v, %v", q, err)
	}

	// Negative principals are still rejected.
	if _, err := ComputeWithFallback(-1, 60); !errors.Is(err, ErrNegativePrincipal) {
		t.Errorf("err = %v, want ErrNegativePrincipal", err)
	}
}

func TestLongerTermsCostLessPerMonth(t *testing.T) {
	terms := Terms()
	var prev float64
	for i, term := range terms {
		q, err := Compute(20000, term)
		if err != nil {
			t.Fatal(err)
		}
		if i > 0 && q.MonthlyPayment >= prev {
			t.Errorf("monthly at %d months (%v) not below %d months (%v)",
				term, q.MonthlyPayment, terms[i-1], prev)
		}
		prev = q.MonthlyPayment
	}
}

func TestLongerTermsCostMoreInTotal(t *testing.T) {
	terms := Terms()
	var prev float64
	for i, term := range terms {
		q, _ := Compute(20000, term)
		if i > 0 && q.TotalCost <= prev {
			t.Errorf("total at %d months (%v) not above previous (%v)", term, q.TotalCost, prev)
		}
		prev = q.TotalCost
	}
}

func TestTermsSortedAscending(t *testing.T) {
	terms := Terms()
	if len(terms) != 9 {
		t.Fatalf("terms = %v", terms)
	}
	for i := 1; i < len(terms); i++ {
		if terms[i] <= terms[i-1] {
			t.Fatalf("terms not ascending: %v", terms)
		}
	}
	if terms[0] != 24 || terms[len(terms)-1] != 120 {
		t.Errorf("term bounds = %v", terms)
	}
}
