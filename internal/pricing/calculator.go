// Package pricing computes item prices from the active metal rates.
package pricing

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jewelcraft/metalpricing/internal/money"
	"github.com/jewelcraft/metalpricing/internal/rates"
)

// Input carries the pricing-relevant attributes of an item or quote.
type Input struct {
	Metal         string  `json:"metal" validate:"required"`
	Purity        string  `json:"purity"`
	Weight        float64 `json:"weight"`
	Unit          string  `json:"unit,omitempty"`
	Wastage       float64 `json:"wastage"`
	MakingCharges float64 `json:"makingCharges"`
}

// Breakdown is the result of a price calculation.
type Breakdown struct {
	Metal         Metal   `json:"metal"`
	Purity        string  `json:"purity"`
	MetalRate     float64 `json:"metalRate"`
	TotalWeight   float64 `json:"totalWeight"`
	MetalCost     float64 `json:"metalCost"`
	MakingCharges float64 `json:"makingCharges"`
	TotalPrice    float64 `json:"totalPrice"`
	Calculation   string  `json:"calculation"`
	SnapshotID    int64   `json:"rateSnapshotId"`
}

// Calculator is stateless and safe for concurrent use.
type Calculator struct {
	tag language.Tag
}

// NewCalculator returns a calculator formatting traces for tag.
func NewCalculator(tag language.Tag) *Calculator {
	return &Calculator{tag: tag}
}

// DefaultCalculator formats traces in English.
var DefaultCalculator = NewCalculator(language.English)

// Calculate prices in against snap. A nil snap means no rates were ever set.
func (c *Calculator) Calculate(in Input, snap *rates.Snapshot) (Breakdown, error) {
	if snap == nil {
		return Breakdown{}, ErrNoActiveRates
	}
	metal, err := c.checkInput(in)
	if err != nil {
		return Breakdown{}, err
	}
	rate, ok := selectRate(metal, in.Purity, *snap)
	if !ok {
		return Breakdown{}, &UnsupportedCombinationError{Metal: in.Metal, Purity: in.Purity}
	}
	if rate <= 0 {
		return Breakdown{}, ErrRateNotConfigured
	}

	totalWeight := money.Add(in.Weight, in.Wastage)
	metalCost := money.MulRound2(totalWeight, rate)
	totalPrice := money.Round2(money.Add(metalCost, in.MakingCharges))

	return Breakdown{
		Metal:         metal,
		Purity:        in.Purity,
		MetalRate:     rate,
		TotalWeight:   totalWeight,
		MetalCost:     metalCost,
		MakingCharges: in.MakingCharges,
		TotalPrice:    totalPrice,
		Calculation:   c.trace(metal, in, rate, totalWeight, metalCost, totalPrice),
		SnapshotID:    snap.ID,
	}, nil
}

func (c *Calculator) checkInput(in Input) (Metal, error) {
	metal, ok := ParseMetal(in.Metal)
	if !ok {
		return "", &UnsupportedCombinationError{Metal: in.Metal, Purity: in.Purity}
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"weight", in.Weight},
		{"wastage", in.Wastage},
		{"makingCharges", in.MakingCharges},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return "", &InvalidInputError{Field: f.name, Reason: "must be a finite number"}
		}
		if f.value < 0 {
			return "", &InvalidInputError{Field: f.name, Reason: "must not be negative"}
		}
	}
	if in.Weight == 0 {
		return "", &InvalidInputError{Field: "weight", Reason: "must be greater than 0"}
	}
	if in.Unit != "" {
		unit, ok := ParseUnit(in.Unit)
		if !ok {
			return "", &InvalidInputError{Field: "unit", Reason: "must be grams or carats"}
		}
		if unit != metal.Unit() {
			return "", &InvalidInputError{Field: "unit", Reason: "must be " + string(metal.Unit()) + " for " + string(metal)}
		}
	}
	return metal, nil
}

func (c *Calculator) trace(metal Metal, in Input, rate, totalWeight, metalCost, totalPrice float64) string {
	unit := metal.Unit()
	p := message.NewPrinter(c.tag)
	return p.Sprintf("(%.3f %s + %.3f %s wastage) × %.2f/%s = %.2f; + making %.2f = %.2f",
		in.Weight, unit, in.Wastage, unit, rate, unit, metalCost, in.MakingCharges, totalPrice) +
		p.Sprintf(" [total weight %.3f %s]", totalWeight, unit)
}
