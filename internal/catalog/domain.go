// Package catalog holds the pricing-relevant slice of catalog items.
package catalog

import (
	"time"

	"github.com/jewelcraft/metalpricing/internal/pricing"
)

// Weight is an item weight in grams or carats.
type Weight struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Pricing holds the administrator inputs and the cached calculator output.
type Pricing struct {
	Wastage         float64    `json:"wastage"`
	MakingCharges   float64    `json:"makingCharges"`
	MetalRate       float64    `json:"metalRate"`
	MetalCost       float64    `json:"metalCost"`
	CalculatedPrice float64    `json:"calculatedPrice"`
	LastPriceUpdate *time.Time `json:"lastPriceUpdate,omitempty"`
	RateSnapshotID  *int64     `json:"rateSnapshotId,omitempty"`
}

// Item is a catalog item as seen by the pricing engine.
type Item struct {
	ID       int64   `json:"id"`
	SKU      string  `json:"sku"`
	IsActive bool    `json:"isActive"`
	Metal    string  `json:"metal"`
	Purity   string  `json:"purity"`
	Weight   Weight  `json:"weight"`
	Pricing  Pricing `json:"pricing"`
	Price    float64 `json:"price"`
}

// PricingInput converts the stored attributes into calculator input.
func (i Item) PricingInput() pricing.Input {
	return pricing.Input{
		Metal:         i.Metal,
		Purity:        i.Purity,
		Weight:        i.Weight.Value,
		Unit:          i.Weight.Unit,
		Wastage:       i.Pricing.Wastage,
		MakingCharges: i.Pricing.MakingCharges,
	}
}

// Attributes are the administrator-editable pricing inputs of an item.
type Attributes struct {
	Metal         string  `json:"metal" validate:"required"`
	Purity        string  `json:"purity" validate:"required"`
	Weight        float64 `json:"weight" validate:"gt=0"`
	Unit          string  `json:"unit" validate:"required,oneof=grams carats"`
	Wastage       float64 `json:"wastage" validate:"gte=0"`
	MakingCharges float64 `json:"makingCharges" validate:"gte=0"`
}

// PricingInput converts the attributes into calculator input.
func (a Attributes) PricingInput() pricing.Input {
	return pricing.Input{
		Metal:         a.Metal,
		Purity:        a.Purity,
		Weight:        a.Weight,
		Unit:          a.Unit,
		Wastage:       a.Wastage,
		MakingCharges: a.MakingCharges,
	}
}
