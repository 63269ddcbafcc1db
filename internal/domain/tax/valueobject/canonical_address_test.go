package valueobject

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantHouse  int
		wantStreet string
		wantSuffix string
	}{
		{
			name:       "simple address with suffix",
			raw:        "123 Main St",
			wantHouse:  123,
			wantStreet: "MAIN",
			wantSuffix: "ST",
		},
		{
			name:       "apostrophe deleted not split",
			raw:        "17422 O'Connor St",
			wantHouse:  17422,
			wantStreet: "OCONNOR",
			wantSuffix: "ST",
		},
		{
			name:       "full street type word dropped",
			raw:        "500 Martin Luther King Boulevard",
			wantHouse:  500,
			wantStreet: "MARTIN LUTHER KING",
		},
		{
			name:       "numeric street name keeps digits",
			raw:        "42 5th Ave",
			wantHouse:  42,
			wantStreet: "5TH",
			wantSuffix: "AVE",
		},
		{
			name:       "directional prefix stays in name",
			raw:        "901 N Lamar Blvd",
			wantHouse:  901,
			wantStreet: "N LAMAR",
			wantSuffix: "BLVD",
		},
		{
			name:       "suffix is the whole name so it is kept",
			raw:        "12 St",
			wantHouse:  12,
			wantStreet: "ST",
		},
		{
			name:       "type word is the whole name so it is kept",
			raw:        "7 Avenue",
			wantHouse:  7,
			wantStreet: "AVENUE",
		},
		{
			name:       "unit letter glued to house number",
			raw:        "123A Main St",
			wantHouse:  123,
			wantStreet: "A MAIN",
			wantSuffix: "ST",
		},
		{
			name:       "unit letter keeps full digit run",
			raw:        "221B Baker St",
			wantHouse:  221,
			wantStreet: "B BAKER",
			wantSuffix: "ST",
		},
		{
			name:       "punctuation becomes separator",
			raw:        "88 Smith-Jones Rd",
			wantHouse:  88,
			wantStreet: "SMITH JONES",
			wantSuffix: "RD",
		},
		{
			name:       "periods deleted",
			raw:        "3 St. James Pl",
			wantHouse:  3,
			wantStreet: "ST JAMES",
			wantSuffix: "PL",
		},
		{
			name:       "extra whitespace collapsed",
			raw:        "  77   Congress    Ave  ",
			wantHouse:  77,
			wantStreet: "CONGRESS",
			wantSuffix: "AVE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := Normalize(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHouse, addr.HouseNumber())
			assert.Equal(t, tt.wantStreet, addr.StreetName())
			assert.Equal(t, tt.wantSuffix, addr.Suffix())
		})
	}
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty input", raw: ""},
		{name: "whitespace only", raw: "   "},
		{name: "no house number", raw: "Main St"},
		{name: "house number only", raw: "123"},
		{name: "punctuation only", raw: "--- ..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw)
			require.Error(t, err)

			var parseErr *AddressParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, tt.raw, parseErr.Raw)
			assert.NotEmpty(t, parseErr.Reason)
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"123 Main St",
		"17422 O'Connor St",
		"500 Martin Luther King Boulevard",
		"42 5th Ave",
		"901 N Lamar Blvd",
		"123A Main St",
	}

	for _, raw := range inputs {
		t.Run(raw, func(t *testing.T) {
			first, err := Normalize(raw)
			require.NoError(t, err)

			second, err := Normalize(first.Render())
			require.NoError(t, err)
			assert.True(t, first.Equals(second))
		})
	}
}

func TestNormalizeStreet(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain name", raw: "OCONNOR", want: "OCONNOR"},
		{name: "lowercase uppercased", raw: "oconnor", want: "OCONNOR"},
		{name: "suffix stripped", raw: "Lamar Blvd", want: "LAMAR"},
		{name: "type word dropped", raw: "Congress Avenue", want: "CONGRESS"},
		{name: "single suffix token kept", raw: "St", want: "ST"},
		{name: "apostrophe deleted", raw: "O'Connor", want: "OCONNOR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeStreet(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("empty street rejected", func(t *testing.T) {
		_, err := NormalizeStreet("  ")
		var parseErr *AddressParseError
		require.True(t, errors.As(err, &parseErr))
	})
}

func TestNormalizeStreetMatchesNormalize(t *testing.T) {
	// Ingestion rows carry the street bare; query input carries the full
	// line. Both paths must land on the same key.
	addr, err := Normalize("17422 O'Connor St")
	require.NoError(t, err)

	street, err := NormalizeStreet("O'CONNOR ST")
	require.NoError(t, err)
	assert.Equal(t, addr.StreetName(), street)
}
