// Package ledger records when card offers were used and summarises that
// history against each offer's usage limit.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"card-offer-finder/internal/kvstore"
	"card-offer-finder/internal/models"
)

// StorageKey is the key holding the persisted ledger.
const StorageKey = "hulisi_usage"

// ErrCorruptLedger is returned by Load when the persisted ledger could not be
// decoded. The ledger is reset to empty in that case.
var ErrCorruptLedger = errors.New("ledger: corrupt usage data")

// UsageEvent is a single recorded use of an offer.
type UsageEvent struct {
	Date time.Time `json:"date"`
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate accepts RFC 3339 timestamps and bare dates. Values without a
// zone are read as UTC.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func (e *UsageEvent) UnmarshalJSON(data []byte) error {
	var raw struct {
		Date string `json:"date"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t, err := ParseDate(raw.Date)
	if err != nil {
		return err
	}
	e.Date = t
	return nil
}

type sourceUsage struct {
	Source models.Source `json:"source"`
	Used   []UsageEvent  `json:"used"`
}

type cardUsage struct {
	Discounts []*sourceUsage `json:"discounts"`
}

func (c *cardUsage) find(source models.Source) *sourceUsage {
	for _, s := range c.Discounts {
		if s.Source == source {
			return s
		}
	}
	return nil
}

// Ledger holds usage history per card and source. History only grows through
// RecordUsage; EditUsage rewrites a timestamp in place.
type Ledger struct {
	kv    kvstore.Store
	cards map[string]*cardUsage
}

// New creates an empty ledger persisted to kv.
func New(kv kvstore.Store) *Ledger {
	return &Ledger{kv: kv, cards: make(map[string]*cardUsage)}
}

// Load replaces the in-memory history with the persisted one. A missing key
// leaves the ledger empty; malformed data resets it and returns
// ErrCorruptLedger.
func (l *Ledger) Load(ctx context.Context) error {
	l.cards = make(map[string]*cardUsage)

	data, err := l.kv.Get(ctx, StorageKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read usage: %w", err)
	}

	var cards map[string]*cardUsage
	if err := json.Unmarshal(data, &cards); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptLedger, err)
	}
	for id, card := range cards {
		if card == nil {
			continue
		}
		kept := card.Discounts[:0]
		for _, s := range card.Discounts {
			if s != nil {
				kept = append(kept, s)
			}
		}
		card.Discounts = kept
		l.cards[id] = card
	}
	return nil
}

func (l *Ledger) save(ctx context.Context) error {
	if err := kvstore.SetJSON(ctx, l.kv, StorageKey, l.cards); err != nil {
		return fmt.Errorf("failed to persist usage: %w", err)
	}
	return nil
}

// RecordUsage appends a use at t and persists the ledger. The in-memory
// append always happens; the returned error only reports persistence.
func (l *Ledger) RecordUsage(ctx context.Context, cardID string, source models.Source, t time.Time) error {
	card, ok := l.cards[cardID]
	if !ok {
		card = &cardUsage{}
		l.cards[cardID] = card
	}
	s := card.find(source)
	if s == nil {
		s = &sourceUsage{Source: source}
		card.Discounts = append(card.Discounts, s)
	}
	s.Used = append(s.Used, UsageEvent{Date: t})

	return l.save(ctx)
}

// EditUsage replaces the timestamp at index. It reports false and does
// nothing when the card, source or index does not exist.
func (l *Ledger) EditUsage(ctx context.Context, cardID string, source models.Source, index int, t time.Time) (bool, error) {
	card, ok := l.cards[cardID]
	if !ok {
		return false, nil
	}
	s := card.find(source)
	if s == nil || index < 0 || index >= len(s.Used) {
		return false, nil
	}
	s.Used[index].Date = t

	return true, l.save(ctx)
}

// UsagesFor returns the usage timestamps in insertion order.
func (l *Ledger) UsagesFor(cardID string, source models.Source) []time.Time {
	card, ok := l.cards[cardID]
	if !ok {
		return []time.Time{}
	}
	s := card.find(source)
	if s == nil {
		return []time.Time{}
	}
	usages := make([]time.Time, len(s.Used))
	for i, e := range s.Used {
		usages[i] = e.Date
	}
	return usages
}

// StatusOf summarises the history of cardID/source against limit at ref.
func (l *Ledger) StatusOf(cardID string, source models.Source, limit *models.UsageLimit, ref time.Time) models.UsageStatus {
	return Status(l.UsagesFor(cardID, source), limit, ref)
}
