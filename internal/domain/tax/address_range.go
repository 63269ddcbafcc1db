package tax

import "fmt"

// AddressRangeRecord is one row of the government address dataset: a street
// number interval inside a ZIP, mapped to the jurisdictions whose boundaries
// contain it. Multiple records legitimately overlap for the same street when
// different authorities draw different boundaries. Records are created by
// ingestion, tagged with their quarter and never mutated afterwards.
type AddressRangeRecord struct {
	State       string
	Zip         string
	Street      string // canonical street name, no suffix
	AddressFrom int    // inclusive
	AddressTo   int    // inclusive

	County   *TAID
	City     *TAID
	Transit1 *TAID
	Transit2 *TAID
	SPD1     *TAID
	SPD2     *TAID
	SPD3     *TAID
	SPD4     *TAID

	Quarter Quarter
	// ImportSeq orders records by import recency within the index so slot
	// conflicts between overlapping rows resolve deterministically.
	ImportSeq int64
}

// Validate checks the structural invariants of a range record.
func (r *AddressRangeRecord) Validate() error {
	if len(r.State) != 2 {
		return fmt.Errorf("state must be a 2-letter code, got %q", r.State)
	}
	if len(r.Zip) != 5 {
		return fmt.Errorf("zip must be 5 digits, got %q", r.Zip)
	}
	if r.Street == "" {
		return fmt.Errorf("street name is required")
	}
	if r.AddressFrom < 0 {
		return fmt.Errorf("address_from must be non-negative, got %d", r.AddressFrom)
	}
	if r.AddressFrom > r.AddressTo {
		return fmt.Errorf("address_from %d exceeds address_to %d", r.AddressFrom, r.AddressTo)
	}
	return nil
}

// Contains reports whether a house number falls inside the record's interval.
func (r *AddressRangeRecord) Contains(houseNumber int) bool {
	return houseNumber >= r.AddressFrom && houseNumber <= r.AddressTo
}

// Roles returns the occupied jurisdiction slots of the record in canonical
// order. Empty slots are valid and omitted.
func (r *AddressRangeRecord) Roles() []RoleAssignment {
	out := make([]RoleAssignment, 0, 8)
	add := func(role JurisdictionRole, id *TAID) {
		if id != nil && *id != "" {
			out = append(out, RoleAssignment{Role: role, ID: *id})
		}
	}
	add(RoleCounty, r.County)
	add(RoleCity, r.City)
	add(RoleTransit1, r.Transit1)
	add(RoleTransit2, r.Transit2)
	add(RoleSPD1, r.SPD1)
	add(RoleSPD2, r.SPD2)
	add(RoleSPD3, r.SPD3)
	add(RoleSPD4, r.SPD4)
	return out
}
