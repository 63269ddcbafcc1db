package index

import (
	"sort"
	"strings"
	"time"

	"github.com/msphost/taxengine/internal/domain/tax"
)

// bucketKey joins the exact-match part of a lookup. Street is already
// canonical, so plain string equality is correct.
func bucketKey(state, zip, street string) string {
	return strings.ToUpper(state) + "|" + zip + "|" + street
}

// partition holds one quarter's address ranges, keyed by (state, zip, street)
// with each bucket sorted by AddressFrom. Partitions are immutable once
// built; a re-import of the same quarter builds a replacement.
type partition struct {
	quarter tax.Quarter
	buckets map[string][]tax.AddressRangeRecord
	rows    int
}

func newPartition(quarter tax.Quarter, records []tax.AddressRangeRecord) *partition {
	p := &partition{
		quarter: quarter,
		buckets: make(map[string][]tax.AddressRangeRecord),
		rows:    len(records),
	}
	for _, rec := range records {
		key := bucketKey(rec.State, rec.Zip, rec.Street)
		p.buckets[key] = append(p.buckets[key], rec)
	}
	for key := range p.buckets {
		bucket := p.buckets[key]
		sort.Slice(bucket, func(i, j int) bool {
			if bucket[i].AddressFrom != bucket[j].AddressFrom {
				return bucket[i].AddressFrom < bucket[j].AddressFrom
			}
			return bucket[i].ImportSeq < bucket[j].ImportSeq
		})
	}
	return p
}

// match returns the records whose interval contains the house number. The
// bucket is sorted by AddressFrom, so a binary search bounds the scan to
// entries that start at or below the house number; buckets hold the handful
// of ranges published for a single street, not the whole county.
func (p *partition) match(key string, houseNumber int) []tax.AddressRangeRecord {
	bucket, ok := p.buckets[key]
	if !ok {
		return nil
	}
	// First entry with AddressFrom > houseNumber; everything at or after it
	// cannot contain the house number.
	bound := sort.Search(len(bucket), func(i int) bool {
		return bucket[i].AddressFrom > houseNumber
	})
	var matches []tax.AddressRangeRecord
	for i := 0; i < bound; i++ {
		if bucket[i].Contains(houseNumber) {
			matches = append(matches, bucket[i])
		}
	}
	return matches
}

// snapshot is the read-only view served to concurrent lookups. Ingestion
// builds a successor snapshot and swaps it in atomically, so readers never
// observe a half-imported quarter.
type snapshot struct {
	// partitions in ascending quarter order.
	partitions []*partition
	// rates per jurisdiction in ascending effective-date order.
	rates         map[tax.TAID][]tax.TaxRate
	jurisdictions map[tax.TAID]tax.Jurisdiction
	// stateByCode maps a state code to its state-level taxing authority,
	// registered from state-type jurisdiction reference data. Range rows only
	// carry sub-state columns, so the state authority resolves by state code.
	stateByCode map[string]tax.TAID
}

func emptySnapshot() *snapshot {
	return &snapshot{
		rates:         make(map[tax.TAID][]tax.TaxRate),
		jurisdictions: make(map[tax.TAID]tax.Jurisdiction),
		stateByCode:   make(map[string]tax.TAID),
	}
}

// clone copies the snapshot's containers shallowly. Partitions and rate
// slices are immutable, so sharing them between generations is safe.
func (s *snapshot) clone() *snapshot {
	next := &snapshot{
		partitions:    make([]*partition, len(s.partitions)),
		rates:         make(map[tax.TAID][]tax.TaxRate, len(s.rates)),
		jurisdictions: make(map[tax.TAID]tax.Jurisdiction, len(s.jurisdictions)),
		stateByCode:   make(map[string]tax.TAID, len(s.stateByCode)),
	}
	copy(next.partitions, s.partitions)
	for id, rr := range s.rates {
		next.rates[id] = rr
	}
	for id, j := range s.jurisdictions {
		next.jurisdictions[id] = j
	}
	for code, id := range s.stateByCode {
		next.stateByCode[code] = id
	}
	return next
}

// partitionFor selects the partition serving lookups at asOf: the quarter
// containing the date when imported, otherwise the most recent imported
// quarter that began before it. New quarters supersede old ones; old
// partitions stay loaded for as-of-date queries against historic quarters.
func (s *snapshot) partitionFor(asOf time.Time) *partition {
	for i := len(s.partitions) - 1; i >= 0; i-- {
		if s.partitions[i].quarter.Contains(asOf) {
			return s.partitions[i]
		}
	}
	for i := len(s.partitions) - 1; i >= 0; i-- {
		if !s.partitions[i].quarter.Start().After(asOf) {
			return s.partitions[i]
		}
	}
	return nil
}

// activeRate returns the rate for one jurisdiction in force at asOf.
func (s *snapshot) activeRate(id tax.TAID, asOf time.Time) (tax.TaxRate, bool) {
	for i := len(s.rates[id]) - 1; i >= 0; i-- {
		if s.rates[id][i].ActiveAt(asOf) {
			return s.rates[id][i], true
		}
	}
	return tax.TaxRate{}, false
}
