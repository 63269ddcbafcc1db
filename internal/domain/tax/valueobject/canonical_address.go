package valueobject

import (
	"fmt"
	"strconv"
	"strings"
)

// CanonicalAddress is a value object representing a street address reduced to
// the form government address-range data is keyed on: a house number and a
// bare street name with the suffix split off. It is immutable.
//
// Government range files omit street suffixes and type words, so lookup keys
// on StreetName alone; Suffix is retained for display only.
type CanonicalAddress struct {
	houseNumber int
	streetName  string
	suffix      string
}

// AddressParseError reports free-text input that cannot be reduced to a
// canonical address. It is the only error surfaced to end users by the tax
// engine: a transaction cannot proceed without a parseable delivery address.
type AddressParseError struct {
	Raw    string
	Reason string
}

// Error implements the error interface
func (e *AddressParseError) Error() string {
	return fmt.Sprintf("cannot parse address %q: %s", e.Raw, e.Reason)
}

// suffixTokens are the abbreviated trailing suffixes stripped into the
// Suffix field.
var suffixTokens = map[string]struct{}{
	"ST": {}, "AVE": {}, "RD": {}, "BLVD": {}, "DR": {}, "LN": {},
	"WAY": {}, "CT": {}, "PL": {}, "PKWY": {}, "CIR": {}, "TRL": {}, "PATH": {},
}

// fullStreetTypes are the spelled-out street type words government data
// omits. They are removed wherever they appear in the street name.
var fullStreetTypes = map[string]struct{}{
	"STREET": {}, "AVENUE": {}, "ROAD": {}, "BOULEVARD": {}, "DRIVE": {},
	"LANE": {}, "COURT": {}, "PLACE": {}, "PARKWAY": {}, "CIRCLE": {},
	"TRAIL": {}, "HIGHWAY": {},
}

// Normalize reduces free-text input to a CanonicalAddress.
//
// Rules: uppercase and trim; leading digits become the house number; a known
// trailing suffix token is split off; embedded full street type words are
// dropped; punctuation and apostrophes are removed so O'CONNOR becomes
// OCONNOR. Directional prefixes and numeric street names ("5TH") stay part of
// the street name. Fails with AddressParseError when there is no leading
// house number or the street name would be empty.
func Normalize(raw string) (CanonicalAddress, error) {
	cleaned := canonicalize(raw)
	if cleaned == "" {
		return CanonicalAddress{}, &AddressParseError{Raw: raw, Reason: "empty address"}
	}

	tokens := strings.Fields(cleaned)
	digits := leadingDigits(tokens[0])
	if digits == "" {
		return CanonicalAddress{}, &AddressParseError{Raw: raw, Reason: "missing leading house number"}
	}
	houseNumber, err := strconv.Atoi(digits)
	if err != nil {
		return CanonicalAddress{}, &AddressParseError{Raw: raw, Reason: "house number out of range"}
	}
	// A unit letter glued to the number ("123A") belongs to the street
	// tokens; range data keys on the numeric part alone.
	if rest := tokens[0][len(digits):]; rest != "" {
		tokens[0] = rest
	} else {
		tokens = tokens[1:]
	}
	if len(tokens) == 0 {
		return CanonicalAddress{}, &AddressParseError{Raw: raw, Reason: "missing street name"}
	}

	var suffix string
	last := tokens[len(tokens)-1]
	if _, ok := suffixTokens[last]; ok && len(tokens) > 1 {
		suffix = last
		tokens = tokens[:len(tokens)-1]
	}

	// Drop spelled-out type words unless that would empty the name; a street
	// literally named "AVENUE" keeps its token.
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, ok := fullStreetTypes[tok]; ok {
			continue
		}
		kept = append(kept, tok)
	}
	if len(kept) == 0 {
		kept = tokens
	}

	return CanonicalAddress{
		houseNumber: houseNumber,
		streetName:  strings.Join(kept, " "),
		suffix:      suffix,
	}, nil
}

// NormalizeStreet applies the street-name rules alone, for ingestion rows
// that carry the street in its own column. Ingestion and query-time
// normalization share this code path so the two never diverge.
func NormalizeStreet(raw string) (string, error) {
	cleaned := canonicalize(raw)
	if cleaned == "" {
		return "", &AddressParseError{Raw: raw, Reason: "empty street name"}
	}

	tokens := strings.Fields(cleaned)
	if last := tokens[len(tokens)-1]; len(tokens) > 1 {
		if _, ok := suffixTokens[last]; ok {
			tokens = tokens[:len(tokens)-1]
		}
	}

	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, ok := fullStreetTypes[tok]; ok {
			continue
		}
		kept = append(kept, tok)
	}
	if len(kept) == 0 {
		kept = tokens
	}
	return strings.Join(kept, " "), nil
}

// leadingDigits returns the maximal run of digits at the start of a token.
func leadingDigits(tok string) string {
	i := 0
	for i < len(tok) && tok[i] >= '0' && tok[i] <= '9' {
		i++
	}
	return tok[:i]
}

// canonicalize uppercases and collapses input to the alnum+space alphabet.
// Apostrophes and periods are deleted outright so contractions join up;
// every other punctuation mark becomes a space.
func canonicalize(raw string) string {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	var b strings.Builder
	b.Grow(len(upper))
	lastSpace := true
	for _, r := range upper {
		switch {
		case r >= 'A' && r <= 'Z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		case r == '\'' || r == '.':
			// deleted, not a separator: O'CONNOR -> OCONNOR
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// HouseNumber returns the house number
func (a CanonicalAddress) HouseNumber() int {
	return a.houseNumber
}

// StreetName returns the canonical street name without suffix
func (a CanonicalAddress) StreetName() string {
	return a.streetName
}

// Suffix returns the stripped suffix token, if any
func (a CanonicalAddress) Suffix() string {
	return a.suffix
}

// Render re-renders the canonical address as a single line. Normalizing the
// rendered form yields the same CanonicalAddress back.
func (a CanonicalAddress) Render() string {
	if a.suffix != "" {
		return fmt.Sprintf("%d %s %s", a.houseNumber, a.streetName, a.suffix)
	}
	return fmt.Sprintf("%d %s", a.houseNumber, a.streetName)
}

// Equals returns true if both addresses are identical
func (a CanonicalAddress) Equals(other CanonicalAddress) bool {
	return a == other
}

// String returns the rendered form
func (a CanonicalAddress) String() string {
	return a.Render()
}
