package pricing

import (
	"context"
	"fmt"

	"github.com/jewelcraft/metalpricing/internal/rates"
)

// ActiveRates yields the currently active snapshot.
type ActiveRates interface {
	Active(ctx context.Context) (rates.Snapshot, bool, error)
}

// Quoter prices ad-hoc inputs against the active snapshot.
type Quoter struct {
	rates      ActiveRates
	calculator *Calculator
}

// NewQuoter wires a Quoter. A nil calculator uses DefaultCalculator.
func NewQuoter(active ActiveRates, calculator *Calculator) *Quoter {
	if calculator == nil {
		calculator = DefaultCalculator
	}
	return &Quoter{rates: active, calculator: calculator}
}

// Quote loads the active snapshot and calculates in against it.
func (q *Quoter) Quote(ctx context.Context, in Input) (Breakdown, error) {
	snap, found, err := q.rates.Active(ctx)
	if err != nil {
		return Breakdown{}, fmt.Errorf("pricing: load active rates: %w", err)
	}
	if !found {
		return q.calculator.Calculate(in, nil)
	}
	return q.calculator.Calculate(in, &snap)
}
