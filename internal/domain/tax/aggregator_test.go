package tax

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeRate(id, name string, jt JurisdictionType, pct string, priority int) ActiveRate {
	return ActiveRate{
		Jurisdiction: Jurisdiction{ID: TAID(id), Name: name, Type: jt},
		Rate: TaxRate{
			JurisdictionID: TAID(id),
			Percentage:     decimal.RequireFromString(pct),
			EffectiveDate:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Priority:       priority,
		},
	}
}

func TestAggregate(t *testing.T) {
	amount := decimal.RequireFromString("100.00")
	rates := []ActiveRate{
		activeRate("4227000", "BEXAR COUNTY", JurisdictionTypeCounty, "6.25", 1),
		activeRate("1015000", "SAN ANTONIO", JurisdictionTypeCity, "1.00", 2),
		activeRate("3227000", "VIA METRO TRANSIT", JurisdictionTypeTransit, "1.00", 3),
	}

	result := Aggregate(amount, rates)

	assert.True(t, result.Subtotal.Equal(amount))
	assert.True(t, result.TotalTaxAmount.Equal(decimal.RequireFromString("8.25")), "got %s", result.TotalTaxAmount)
	assert.True(t, result.TotalRatePercentage.Equal(decimal.RequireFromString("8.25")))
	assert.True(t, result.Total.Equal(decimal.RequireFromString("108.25")))
	assert.Equal(t, SourceLocal, result.Source)
	assert.False(t, result.NoApplicableJurisdiction)

	require.Len(t, result.Lines, 3)
	assert.Equal(t, TAID("4227000"), result.Lines[0].JurisdictionID)
	assert.True(t, result.Lines[0].TaxAmount.Equal(decimal.RequireFromString("6.25")))
	assert.True(t, result.Lines[1].TaxAmount.Equal(decimal.RequireFromString("1.00")))
}

func TestAggregateNoRates(t *testing.T) {
	amount := decimal.RequireFromString("59.99")
	result := Aggregate(amount, nil)

	assert.True(t, result.NoApplicableJurisdiction)
	assert.True(t, result.TotalTaxAmount.IsZero())
	assert.True(t, result.Total.Equal(amount))
	assert.Empty(t, result.Lines)
	assert.Equal(t, SourceLocal, result.Source)
}

func TestAggregatePerLineRounding(t *testing.T) {
	// Each line rounds half-up on its own before summing. Two 0.55% lines on
	// 1.00 each yield 0.0055 -> 0.01, so the total is 0.02 even though 1.00
	// at the combined 1.10% would round to 0.01.
	amount := decimal.RequireFromString("1.00")
	rates := []ActiveRate{
		activeRate("5000100", "SPD A", JurisdictionTypeSpecialPurposeDistrict, "0.55", 1),
		activeRate("5000200", "SPD B", JurisdictionTypeSpecialPurposeDistrict, "0.55", 2),
	}

	result := Aggregate(amount, rates)

	require.Len(t, result.Lines, 2)
	assert.True(t, result.Lines[0].TaxAmount.Equal(decimal.RequireFromString("0.01")))
	assert.True(t, result.TotalTaxAmount.Equal(decimal.RequireFromString("0.02")))
	assert.True(t, result.Total.Equal(decimal.RequireFromString("1.02")))
}

func TestAggregateFlatFee(t *testing.T) {
	amount := decimal.RequireFromString("50.00")
	rate := activeRate("5000300", "911 DISTRICT", JurisdictionTypeSpecialPurposeDistrict, "0.00", 1)
	rate.Rate.FlatFee = decimal.RequireFromString("0.75")

	result := Aggregate(amount, []ActiveRate{rate})

	require.Len(t, result.Lines, 1)
	assert.True(t, result.Lines[0].TaxAmount.Equal(decimal.RequireFromString("0.75")))
	assert.True(t, result.Total.Equal(decimal.RequireFromString("50.75")))
}

func TestAggregateOrdering(t *testing.T) {
	amount := decimal.RequireFromString("10.00")
	rates := []ActiveRate{
		activeRate("3", "ZEBRA DISTRICT", JurisdictionTypeSpecialPurposeDistrict, "1.00", 2),
		activeRate("2", "ALPHA DISTRICT", JurisdictionTypeSpecialPurposeDistrict, "1.00", 2),
		activeRate("1", "COUNTY", JurisdictionTypeCounty, "6.25", 1),
	}

	result := Aggregate(amount, rates)

	require.Len(t, result.Lines, 3)
	assert.Equal(t, "COUNTY", result.Lines[0].JurisdictionName, "lower priority first")
	assert.Equal(t, "ALPHA DISTRICT", result.Lines[1].JurisdictionName, "name breaks priority ties")
	assert.Equal(t, "ZEBRA DISTRICT", result.Lines[2].JurisdictionName)
}
