// Package index holds the in-memory jurisdiction range index and rate
// snapshot store. Lookups are read-mostly and lock-free: readers load the
// current snapshot through an atomic pointer while ingestion, the sole
// writer, stages a successor and swaps it in whole.
package index

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/msphost/taxengine/internal/domain/tax"
)

// Store implements tax.JurisdictionResolver and tax.RateRepository over
// quarter-partitioned government address data.
type Store struct {
	current atomic.Pointer[snapshot]
	logger  *zap.Logger

	// mu serializes writers; readers never take it.
	mu  sync.Mutex
	seq atomic.Int64
}

// NewStore creates an empty store
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{logger: logger}
	s.current.Store(emptySnapshot())
	return s
}

// NextImportSeq hands out monotonically increasing import sequence numbers.
// Rows imported later carry higher sequences, which is what breaks ties when
// overlapping rows claim the same jurisdiction slot.
func (s *Store) NextImportSeq() int64 {
	return s.seq.Add(1)
}

// ReplaceQuarter atomically replaces one quarter's address ranges. Re-running
// an import for a quarter swaps in the new rows rather than appending, which
// is what makes imports idempotent per quarter.
func (s *Store) ReplaceQuarter(quarter tax.Quarter, records []tax.AddressRangeRecord) {
	part := newPartition(quarter, records)

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Load().clone()
	replaced := false
	for i, p := range next.partitions {
		if p.quarter == quarter {
			next.partitions[i] = part
			replaced = true
			break
		}
	}
	if !replaced {
		next.partitions = append(next.partitions, part)
		sort.Slice(next.partitions, func(i, j int) bool {
			return next.partitions[i].quarter.Before(next.partitions[j].quarter)
		})
	}
	s.current.Store(next)

	s.logger.Info("range index quarter swapped",
		zap.String("quarter", quarter.String()),
		zap.Int("rows", part.rows),
		zap.Bool("replaced", replaced),
	)
}

// UpsertJurisdictions merges jurisdiction reference data into the store.
// State-type jurisdictions additionally register under their state code so
// lookups can attach the state authority to every resolved address.
func (s *Store) UpsertJurisdictions(jurisdictions []tax.Jurisdiction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Load().clone()
	for _, j := range jurisdictions {
		next.jurisdictions[j.ID] = j
		if j.Type == tax.JurisdictionTypeState && j.Code != "" {
			next.stateByCode[strings.ToUpper(j.Code)] = j.ID
		}
	}
	s.current.Store(next)
}

// UpsertRate inserts a new rate for a jurisdiction, expiring the previously
// active rate at the new rate's effective date so at most one rate is active
// per jurisdiction at any instant.
func (s *Store) UpsertRate(rate tax.TaxRate) error {
	if err := rate.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Load().clone()
	existing := next.rates[rate.JurisdictionID]
	updated := make([]tax.TaxRate, 0, len(existing)+1)
	for _, r := range existing {
		if r.EffectiveDate.Equal(rate.EffectiveDate) {
			// Same effective date: the new rate replaces it outright.
			continue
		}
		if r.ActiveAt(rate.EffectiveDate) {
			r = r.ExpireAt(rate.EffectiveDate)
		}
		if r.EffectiveDate.After(rate.EffectiveDate) && rate.ExpirationDate == nil {
			// A later-dated rate already exists; cap the new one at its
			// effective date so only one rate is active at any instant.
			rate = rate.ExpireAt(r.EffectiveDate)
		}
		updated = append(updated, r)
	}
	updated = append(updated, rate)
	sort.Slice(updated, func(i, j int) bool {
		return updated[i].EffectiveDate.Before(updated[j].EffectiveDate)
	})
	next.rates[rate.JurisdictionID] = updated
	s.current.Store(next)
	return nil
}

// Lookup implements tax.JurisdictionResolver. It selects the records matching
// (state, zip, street) exactly whose interval contains the house number in
// the partition covering the as-of date, and unions their jurisdiction slots.
// Same-slot conflicts between overlapping rows resolve to the most recently
// imported row with a data-quality warning rather than an error.
func (s *Store) Lookup(ctx context.Context, q tax.LookupQuery) (*tax.JurisdictionSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := s.current.Load()
	part := snap.partitionFor(q.AsOf)
	if part == nil {
		return nil, tax.ErrQuarterNotLoaded
	}

	matches := part.match(bucketKey(q.State, q.Zip, q.Street), q.HouseNumber)
	if len(matches) == 0 {
		return nil, tax.ErrJurisdictionNotFound
	}

	set := tax.NewJurisdictionSet()
	for _, rec := range matches {
		for _, ra := range rec.Roles() {
			if conflict := set.Assign(ra.Role, ra.ID, rec.ImportSeq); conflict {
				s.logger.Warn("conflicting jurisdiction slot in address range data",
					zap.String("quarter", part.quarter.String()),
					zap.String("state", q.State),
					zap.String("zip", q.Zip),
					zap.String("street", q.Street),
					zap.Int("house_number", q.HouseNumber),
					zap.String("role", ra.Role.String()),
					zap.String("jurisdiction_id", string(ra.ID)),
				)
			}
		}
	}
	if set.IsEmpty() {
		return nil, tax.ErrJurisdictionNotFound
	}
	// The range file carries no state column; the state's own authority
	// applies to every address resolved within it.
	if stateID, ok := snap.stateByCode[strings.ToUpper(q.State)]; ok {
		set.Assign(tax.RoleState, stateID, 0)
	}
	return set, nil
}

// ActiveRates implements tax.RateRepository.
func (s *Store) ActiveRates(ctx context.Context, ids []tax.TAID, asOf time.Time) ([]tax.ActiveRate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := s.current.Load()
	out := make([]tax.ActiveRate, 0, len(ids))
	for _, id := range ids {
		rate, ok := snap.activeRate(id, asOf)
		if !ok {
			continue
		}
		jur, known := snap.jurisdictions[id]
		if !known {
			// Rate without reference data still taxes; identify the line by
			// the authority id.
			jur = tax.Jurisdiction{ID: id, Name: string(id)}
		}
		out = append(out, tax.ActiveRate{Jurisdiction: jur, Rate: rate})
	}
	return out, nil
}

// RatesFor returns a jurisdiction's full rate history in ascending
// effective-date order, including expirations applied by upserts. Used to
// archive the post-upsert state.
func (s *Store) RatesFor(id tax.TAID) []tax.TaxRate {
	snap := s.current.Load()
	rates := snap.rates[id]
	out := make([]tax.TaxRate, len(rates))
	copy(out, rates)
	return out
}

// Quarters returns the quarters currently loaded, oldest first.
func (s *Store) Quarters() []tax.Quarter {
	snap := s.current.Load()
	out := make([]tax.Quarter, 0, len(snap.partitions))
	for _, p := range snap.partitions {
		out = append(out, p.quarter)
	}
	return out
}

// RowCount returns the number of rows loaded for a quarter.
func (s *Store) RowCount(quarter tax.Quarter) int {
	for _, p := range s.current.Load().partitions {
		if p.quarter == quarter {
			return p.rows
		}
	}
	return 0
}
