package tax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taid(s string) *TAID {
	id := TAID(s)
	return &id
}

func TestAddressRangeRecordValidate(t *testing.T) {
	valid := AddressRangeRecord{
		State:       "TX",
		Zip:         "78247",
		Street:      "OCONNOR",
		AddressFrom: 17400,
		AddressTo:   17499,
	}

	t.Run("valid record", func(t *testing.T) {
		require.NoError(t, valid.Validate())
	})

	t.Run("single house range", func(t *testing.T) {
		rec := valid
		rec.AddressFrom = 17422
		rec.AddressTo = 17422
		require.NoError(t, rec.Validate())
	})

	tests := []struct {
		name   string
		mutate func(*AddressRangeRecord)
	}{
		{name: "bad state", mutate: func(r *AddressRangeRecord) { r.State = "TEX" }},
		{name: "bad zip", mutate: func(r *AddressRangeRecord) { r.Zip = "7824" }},
		{name: "missing street", mutate: func(r *AddressRangeRecord) { r.Street = "" }},
		{name: "negative from", mutate: func(r *AddressRangeRecord) { r.AddressFrom = -1 }},
		{name: "inverted range", mutate: func(r *AddressRangeRecord) { r.AddressFrom = 200; r.AddressTo = 100 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := valid
			tt.mutate(&rec)
			assert.Error(t, rec.Validate())
		})
	}
}

func TestAddressRangeRecordContains(t *testing.T) {
	rec := AddressRangeRecord{AddressFrom: 17400, AddressTo: 17499}

	assert.True(t, rec.Contains(17400), "from is inclusive")
	assert.True(t, rec.Contains(17499), "to is inclusive")
	assert.True(t, rec.Contains(17422))
	assert.False(t, rec.Contains(17399))
	assert.False(t, rec.Contains(17500))
}

func TestAddressRangeRecordRoles(t *testing.T) {
	t.Run("empty slots omitted", func(t *testing.T) {
		rec := AddressRangeRecord{County: taid("4227000"), SPD2: taid("5000100")}
		roles := rec.Roles()
		require.Len(t, roles, 2)
		assert.Equal(t, RoleAssignment{Role: RoleCounty, ID: "4227000"}, roles[0])
		assert.Equal(t, RoleAssignment{Role: RoleSPD2, ID: "5000100"}, roles[1])
	})

	t.Run("blank taid treated as empty", func(t *testing.T) {
		rec := AddressRangeRecord{City: taid("")}
		assert.Empty(t, rec.Roles())
	})

	t.Run("all eight slots", func(t *testing.T) {
		rec := AddressRangeRecord{
			County: taid("1"), City: taid("2"),
			Transit1: taid("3"), Transit2: taid("4"),
			SPD1: taid("5"), SPD2: taid("6"), SPD3: taid("7"), SPD4: taid("8"),
		}
		assert.Len(t, rec.Roles(), 8)
	})
}
