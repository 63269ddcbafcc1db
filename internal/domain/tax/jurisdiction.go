package tax

import "fmt"

// TAID is the taxing authority identifier used by government source data
// to reference a jurisdiction.
type TAID string

// JurisdictionType classifies a taxing authority.
type JurisdictionType string

const (
	JurisdictionTypeState                  JurisdictionType = "state"
	JurisdictionTypeCounty                 JurisdictionType = "county"
	JurisdictionTypeCity                   JurisdictionType = "city"
	JurisdictionTypeTransit                JurisdictionType = "transit"
	JurisdictionTypeSpecialPurposeDistrict JurisdictionType = "special_purpose_district"
)

// String returns the string representation of the jurisdiction type
func (t JurisdictionType) String() string {
	return string(t)
}

// IsValid returns true if the jurisdiction type is valid
func (t JurisdictionType) IsValid() bool {
	switch t {
	case JurisdictionTypeState, JurisdictionTypeCounty, JurisdictionTypeCity,
		JurisdictionTypeTransit, JurisdictionTypeSpecialPurposeDistrict:
		return true
	default:
		return false
	}
}

// Jurisdiction is immutable reference data describing a single taxing authority.
type Jurisdiction struct {
	ID   TAID
	Name string
	Type JurisdictionType
	Code string
}

// JurisdictionRole identifies which slot of a resolved jurisdiction set a
// jurisdiction occupies. A delivery address sits inside its state plus up to
// eight jurisdictions from the range record: a county, a city, up to two
// transit authorities and up to four special purpose districts. The state
// role is derived from the destination state code rather than carried in the
// range file, which only publishes the eight sub-state columns.
type JurisdictionRole string

const (
	RoleState    JurisdictionRole = "state"
	RoleCounty   JurisdictionRole = "county"
	RoleCity     JurisdictionRole = "city"
	RoleTransit1 JurisdictionRole = "transit1"
	RoleTransit2 JurisdictionRole = "transit2"
	RoleSPD1     JurisdictionRole = "spd1"
	RoleSPD2     JurisdictionRole = "spd2"
	RoleSPD3     JurisdictionRole = "spd3"
	RoleSPD4     JurisdictionRole = "spd4"
)

// AllJurisdictionRoles returns the roles in their canonical slot order.
func AllJurisdictionRoles() []JurisdictionRole {
	return []JurisdictionRole{
		RoleState, RoleCounty, RoleCity,
		RoleTransit1, RoleTransit2,
		RoleSPD1, RoleSPD2, RoleSPD3, RoleSPD4,
	}
}

// String returns the string representation of the role
func (r JurisdictionRole) String() string {
	return string(r)
}

// Type returns the jurisdiction type a role maps to.
func (r JurisdictionRole) Type() JurisdictionType {
	switch r {
	case RoleState:
		return JurisdictionTypeState
	case RoleCounty:
		return JurisdictionTypeCounty
	case RoleCity:
		return JurisdictionTypeCity
	case RoleTransit1, RoleTransit2:
		return JurisdictionTypeTransit
	default:
		return JurisdictionTypeSpecialPurposeDistrict
	}
}

// RoleAssignment pairs a role slot with the jurisdiction occupying it.
type RoleAssignment struct {
	Role JurisdictionRole
	ID   TAID
}

// JurisdictionSet is the result of resolving a delivery address: the union of
// all non-empty jurisdiction slots across the matching address range records.
// Absence in a slot is valid; an empty set means the address matched nothing.
type JurisdictionSet struct {
	slots map[JurisdictionRole]TAID
	// importSeq tracks, per slot, the import sequence of the record that
	// supplied the assignment so the most recently imported record wins on
	// slot conflicts.
	importSeq map[JurisdictionRole]int64
}

// NewJurisdictionSet creates an empty jurisdiction set
func NewJurisdictionSet() *JurisdictionSet {
	return &JurisdictionSet{
		slots:     make(map[JurisdictionRole]TAID),
		importSeq: make(map[JurisdictionRole]int64),
	}
}

// Assign places a jurisdiction into a role slot. If the slot is already
// occupied by a different jurisdiction, the assignment from the higher import
// sequence wins and the returned conflict flag is true so the caller can log
// a data-quality warning.
func (s *JurisdictionSet) Assign(role JurisdictionRole, id TAID, importSeq int64) (conflict bool) {
	existing, occupied := s.slots[role]
	if !occupied {
		s.slots[role] = id
		s.importSeq[role] = importSeq
		return false
	}
	if existing == id {
		if importSeq > s.importSeq[role] {
			s.importSeq[role] = importSeq
		}
		return false
	}
	if importSeq > s.importSeq[role] {
		s.slots[role] = id
		s.importSeq[role] = importSeq
	}
	return true
}

// Get returns the jurisdiction occupying a role slot, if any.
func (s *JurisdictionSet) Get(role JurisdictionRole) (TAID, bool) {
	id, ok := s.slots[role]
	return id, ok
}

// Len returns the number of occupied slots.
func (s *JurisdictionSet) Len() int {
	return len(s.slots)
}

// IsEmpty returns true when no slot is occupied.
func (s *JurisdictionSet) IsEmpty() bool {
	return len(s.slots) == 0
}

// Assignments returns the occupied slots in canonical role order.
func (s *JurisdictionSet) Assignments() []RoleAssignment {
	out := make([]RoleAssignment, 0, len(s.slots))
	for _, role := range AllJurisdictionRoles() {
		if id, ok := s.slots[role]; ok {
			out = append(out, RoleAssignment{Role: role, ID: id})
		}
	}
	return out
}

// IDs returns the distinct jurisdiction ids across all occupied slots, in
// canonical role order. The same authority can occupy two slots in source
// data; it is returned once.
func (s *JurisdictionSet) IDs() []TAID {
	seen := make(map[TAID]struct{}, len(s.slots))
	out := make([]TAID, 0, len(s.slots))
	for _, a := range s.Assignments() {
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a.ID)
	}
	return out
}

// String returns a compact representation for logging
func (s *JurisdictionSet) String() string {
	return fmt.Sprintf("JurisdictionSet(%d slots)", len(s.slots))
}
