package tax

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// twoPlaces is the rounding precision of a breakdown line in decimal places.
const twoPlaces = 2

// Aggregate computes the combined sales tax for an amount across every active
// rate. State, county, city, transit and SPD rates legitimately co-apply on
// the same sale, so each produces its own breakdown line.
//
// Each line is rounded half-up to two decimals before summing, so the total
// tax is the exact sum of the rounded lines rather than amount times the
// combined percentage. That matches how each jurisdiction is remitted and
// avoids rounding drift between the breakdown and the total.
func Aggregate(amount decimal.Decimal, rates []ActiveRate) TaxCalculationResult {
	result := TaxCalculationResult{
		Subtotal:            amount,
		TotalTaxAmount:      decimal.Zero,
		TotalRatePercentage: decimal.Zero,
		Source:              SourceLocal,
		ComputedAt:          time.Now().UTC(),
	}

	if len(rates) == 0 {
		result.NoApplicableJurisdiction = true
		result.Total = amount
		result.Lines = []TaxBreakdownLine{}
		return result
	}

	ordered := make([]ActiveRate, len(rates))
	copy(ordered, rates)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Rate.Priority != ordered[j].Rate.Priority {
			return ordered[i].Rate.Priority < ordered[j].Rate.Priority
		}
		return ordered[i].Jurisdiction.Name < ordered[j].Jurisdiction.Name
	})

	lines := make([]TaxBreakdownLine, 0, len(ordered))
	for _, ar := range ordered {
		lineTax := amount.Mul(ar.Rate.Percentage).Div(decimal.NewFromInt(100))
		if !ar.Rate.FlatFee.IsZero() {
			lineTax = lineTax.Add(ar.Rate.FlatFee)
		}
		lineTax = lineTax.Round(twoPlaces)

		lines = append(lines, TaxBreakdownLine{
			JurisdictionID:   ar.Jurisdiction.ID,
			JurisdictionName: ar.Jurisdiction.Name,
			JurisdictionType: ar.Jurisdiction.Type,
			Rate:             ar.Rate.Percentage,
			TaxAmount:        lineTax,
		})

		result.TotalTaxAmount = result.TotalTaxAmount.Add(lineTax)
		result.TotalRatePercentage = result.TotalRatePercentage.Add(ar.Rate.Percentage)
	}

	result.Lines = lines
	result.Total = amount.Add(result.TotalTaxAmount)
	return result
}
