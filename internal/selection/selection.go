// Package selection tracks which catalog cards the user has picked.
package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"card-offer-finder/internal/catalog"
	"card-offer-finder/internal/kvstore"
)

// StorageKey is the key holding the persisted selection snapshot.
const StorageKey = "hulisi_selected_cards"

// ErrCorruptSnapshot is returned by Restore when the persisted snapshot could
// not be decoded. The selection is reset to empty in that case.
var ErrCorruptSnapshot = errors.New("selection: corrupt snapshot")

// Origin tells where a restored selection came from.
type Origin string

const (
	OriginNone  Origin = "none"
	OriginLink  Origin = "link"
	OriginSaved Origin = "saved"
)

// Store is the set of selected card identifiers. Every identifier in the
// store exists in the catalog; iteration follows insertion order.
type Store struct {
	catalog *catalog.Catalog
	kv      kvstore.Store
	ids     []string
}

// New creates an empty selection over c, persisted to kv.
func New(c *catalog.Catalog, kv kvstore.Store) *Store {
	return &Store{catalog: c, kv: kv}
}

// IDs returns the selected identifiers in insertion order.
func (s *Store) IDs() []string {
	ids := make([]string, len(s.ids))
	copy(ids, s.ids)
	return ids
}

// Len returns the number of selected cards.
func (s *Store) Len() int {
	return len(s.ids)
}

// Has reports whether id is selected.
func (s *Store) Has(id string) bool {
	return s.indexOf(id) >= 0
}

func (s *Store) indexOf(id string) int {
	for i, existing := range s.ids {
		if existing == id {
			return i
		}
	}
	return -1
}

// Toggle removes id if it is selected and adds it otherwise, then persists
// the snapshot. Identifiers missing from the catalog are ignored. It reports
// whether id is selected afterwards. A persistence error leaves the new
// in-memory selection in place.
func (s *Store) Toggle(ctx context.Context, id string) (bool, error) {
	if !s.catalog.Has(id) {
		return false, nil
	}

	selected := true
	if i := s.indexOf(id); i >= 0 {
		s.ids = append(s.ids[:i:i], s.ids[i+1:]...)
		selected = false
	} else {
		s.ids = append(s.ids, id)
	}

	return selected, s.save(ctx)
}

// Clear empties the selection and persists the empty snapshot.
func (s *Store) Clear(ctx context.Context) error {
	s.ids = nil
	return s.save(ctx)
}

// Restore sets the selection from linkIDs when any are given, replacing the
// set entirely and persisting it. Otherwise the persisted snapshot is used.
// Identifiers missing from the catalog are dropped silently.
func (s *Store) Restore(ctx context.Context, linkIDs []string) (Origin, error) {
	if len(linkIDs) > 0 {
		s.ids = s.catalog.Filter(linkIDs)
		return OriginLink, s.save(ctx)
	}

	s.ids = nil
	data, err := s.kv.Get(ctx, StorageKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return OriginNone, nil
	}
	if err != nil {
		return OriginNone, fmt.Errorf("failed to read selection: %w", err)
	}

	var saved []string
	if err := json.Unmarshal(data, &saved); err != nil {
		return OriginNone, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	s.ids = s.catalog.Filter(saved)
	if len(s.ids) == 0 {
		return OriginNone, nil
	}
	return OriginSaved, nil
}

func (s *Store) save(ctx context.Context) error {
	ids := s.IDs()
	if err := kvstore.SetJSON(ctx, s.kv, StorageKey, ids); err != nil {
		return fmt.Errorf("failed to persist selection: %w", err)
	}
	return nil
}
