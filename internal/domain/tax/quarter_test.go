package tax

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuarter(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Quarter
		wantErr bool
	}{
		{name: "valid first quarter", input: "2026Q1", want: Quarter{Year: 2026, Q: 1}},
		{name: "valid fourth quarter", input: "2025Q4", want: Quarter{Year: 2025, Q: 4}},
		{name: "lowercase accepted", input: "2026q2", want: Quarter{Year: 2026, Q: 2}},
		{name: "surrounding whitespace", input: " 2026Q3 ", want: Quarter{Year: 2026, Q: 3}},
		{name: "missing separator", input: "20261", wantErr: true},
		{name: "quarter out of range", input: "2026Q5", wantErr: true},
		{name: "quarter zero", input: "2026Q0", wantErr: true},
		{name: "implausible year", input: "26Q1", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQuarter(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuarterBounds(t *testing.T) {
	q := Quarter{Year: 2026, Q: 2}

	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), q.Start())
	assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), q.End())

	t.Run("contains start but not end", func(t *testing.T) {
		assert.True(t, q.Contains(q.Start()))
		assert.True(t, q.Contains(time.Date(2026, 5, 15, 12, 0, 0, 0, time.UTC)))
		assert.False(t, q.Contains(q.End()))
	})

	t.Run("next rolls the year", func(t *testing.T) {
		assert.Equal(t, Quarter{Year: 2027, Q: 1}, Quarter{Year: 2026, Q: 4}.Next())
	})
}

func TestQuarterOf(t *testing.T) {
	assert.Equal(t, Quarter{Year: 2026, Q: 1}, QuarterOf(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, Quarter{Year: 2026, Q: 1}, QuarterOf(time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)))
	assert.Equal(t, Quarter{Year: 2026, Q: 4}, QuarterOf(time.Date(2026, 12, 25, 0, 0, 0, 0, time.UTC)))
}

func TestQuarterOrdering(t *testing.T) {
	assert.True(t, Quarter{Year: 2025, Q: 4}.Before(Quarter{Year: 2026, Q: 1}))
	assert.True(t, Quarter{Year: 2026, Q: 1}.Before(Quarter{Year: 2026, Q: 2}))
	assert.False(t, Quarter{Year: 2026, Q: 2}.Before(Quarter{Year: 2026, Q: 2}))
}

func TestQuarterString(t *testing.T) {
	assert.Equal(t, "2026Q1", Quarter{Year: 2026, Q: 1}.String())
	assert.True(t, Quarter{}.IsZero())
	assert.False(t, Quarter{Year: 2026, Q: 1}.IsZero())
}
