package tax

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJurisdictionTypeIsValid(t *testing.T) {
	for _, jt := range []JurisdictionType{
		JurisdictionTypeState, JurisdictionTypeCounty, JurisdictionTypeCity,
		JurisdictionTypeTransit, JurisdictionTypeSpecialPurposeDistrict,
	} {
		assert.True(t, jt.IsValid(), jt.String())
	}
	assert.False(t, JurisdictionType("district").IsValid())
	assert.False(t, JurisdictionType("").IsValid())
}

func TestJurisdictionRoleType(t *testing.T) {
	assert.Equal(t, JurisdictionTypeState, RoleState.Type())
	assert.Equal(t, JurisdictionTypeCounty, RoleCounty.Type())
	assert.Equal(t, JurisdictionTypeCity, RoleCity.Type())
	assert.Equal(t, JurisdictionTypeTransit, RoleTransit1.Type())
	assert.Equal(t, JurisdictionTypeTransit, RoleTransit2.Type())
	for _, role := range []JurisdictionRole{RoleSPD1, RoleSPD2, RoleSPD3, RoleSPD4} {
		assert.Equal(t, JurisdictionTypeSpecialPurposeDistrict, role.Type())
	}
}

func TestJurisdictionSetAssign(t *testing.T) {
	t.Run("fills empty slot without conflict", func(t *testing.T) {
		set := NewJurisdictionSet()
		conflict := set.Assign(RoleCounty, "4227000", 1)
		assert.False(t, conflict)

		id, ok := set.Get(RoleCounty)
		assert.True(t, ok)
		assert.Equal(t, TAID("4227000"), id)
	})

	t.Run("same jurisdiction twice is not a conflict", func(t *testing.T) {
		set := NewJurisdictionSet()
		set.Assign(RoleCity, "1015000", 1)
		conflict := set.Assign(RoleCity, "1015000", 2)
		assert.False(t, conflict)
	})

	t.Run("newer import wins the slot and flags the conflict", func(t *testing.T) {
		set := NewJurisdictionSet()
		set.Assign(RoleCity, "1015000", 1)
		conflict := set.Assign(RoleCity, "1019000", 5)
		assert.True(t, conflict)

		id, _ := set.Get(RoleCity)
		assert.Equal(t, TAID("1019000"), id)
	})

	t.Run("older import loses but still flags the conflict", func(t *testing.T) {
		set := NewJurisdictionSet()
		set.Assign(RoleCity, "1015000", 5)
		conflict := set.Assign(RoleCity, "1019000", 1)
		assert.True(t, conflict)

		id, _ := set.Get(RoleCity)
		assert.Equal(t, TAID("1015000"), id)
	})
}

func TestJurisdictionSetAccessors(t *testing.T) {
	set := NewJurisdictionSet()
	assert.True(t, set.IsEmpty())
	assert.Empty(t, set.IDs())

	set.Assign(RoleSPD1, "5000100", 1)
	set.Assign(RoleCounty, "4227000", 1)
	set.Assign(RoleTransit1, "3227000", 1)
	// Same authority in a second slot; deduped in IDs.
	set.Assign(RoleSPD2, "5000100", 1)

	assert.Equal(t, 4, set.Len())
	assert.False(t, set.IsEmpty())

	t.Run("assignments in canonical slot order", func(t *testing.T) {
		assignments := set.Assignments()
		roles := make([]JurisdictionRole, 0, len(assignments))
		for _, a := range assignments {
			roles = append(roles, a.Role)
		}
		assert.Equal(t, []JurisdictionRole{RoleCounty, RoleTransit1, RoleSPD1, RoleSPD2}, roles)
	})

	t.Run("ids deduped", func(t *testing.T) {
		assert.Equal(t, []TAID{"4227000", "3227000", "5000100"}, set.IDs())
	})

	t.Run("state slot sorts ahead of range slots", func(t *testing.T) {
		set.Assign(RoleState, "TX0000000", 0)
		assignments := set.Assignments()
		assert.Equal(t, RoleState, assignments[0].Role)
		assert.Equal(t, TAID("TX0000000"), set.IDs()[0])
	})
}
