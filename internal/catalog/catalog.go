// Package catalog holds the read-only card catalog. Cards keep the order in
// which they appear in the source document.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"card-offer-finder/internal/models"
)

// Catalog maps card identifiers to card records.
type Catalog struct {
	keys  []string
	cards map[string]models.CardRecord
}

// New builds a catalog from cards in the given order. Later duplicates
// replace the record but keep the first position.
func New(cards ...models.CardRecord) *Catalog {
	c := &Catalog{cards: make(map[string]models.CardRecord, len(cards))}
	for _, card := range cards {
		c.put(card)
	}
	return c
}

// Parse decodes a catalog document of the form {"<id>": {card}, ...}.
func Parse(data []byte) (*Catalog, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("catalog must be a JSON object")
	}

	c := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected catalog token %v", tok)
		}

		var card models.CardRecord
		if err := dec.Decode(&card); err != nil {
			return nil, fmt.Errorf("failed to decode card %q: %w", key, err)
		}
		card.ID = key
		c.put(card)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to read end of catalog: %w", err)
	}

	return c, nil
}

func (c *Catalog) put(card models.CardRecord) {
	if _, exists := c.cards[card.ID]; !exists {
		c.keys = append(c.keys, card.ID)
	}
	c.cards[card.ID] = card
}

// Len returns the number of cards.
func (c *Catalog) Len() int {
	return len(c.keys)
}

// Has reports whether id is a catalog key.
func (c *Catalog) Has(id string) bool {
	_, ok := c.cards[id]
	return ok
}

// Get returns the card for id.
func (c *Catalog) Get(id string) (models.CardRecord, bool) {
	card, ok := c.cards[id]
	return card, ok
}

// Keys returns the card identifiers in catalog order.
func (c *Catalog) Keys() []string {
	keys := make([]string, len(c.keys))
	copy(keys, c.keys)
	return keys
}

// Filter keeps the ids that exist in the catalog, dropping duplicates and
// preserving the input order.
func (c *Catalog) Filter(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] || !c.Has(id) {
			continue
		}
		seen[id] = true
		valid = append(valid, id)
	}
	return valid
}

// UnknownBank groups cards that have no bank name.
const UnknownBank = "Unknown"

// BankGroups groups cards by bank, sorted by bank name. A non-empty query
// keeps only cards whose bank or card name contains it, ignoring case; banks
// left without cards are omitted. selected may be nil.
func (c *Catalog) BankGroups(query string, selected func(id string) bool) []models.BankGroup {
	query = strings.ToLower(strings.TrimSpace(query))

	index := make(map[string]int)
	var groups []models.BankGroup
	for _, key := range c.keys {
		card := c.cards[key]
		bank := card.BankName
		if bank == "" {
			bank = UnknownBank
		}

		if query != "" &&
			!strings.Contains(strings.ToLower(card.BankName), query) &&
			!strings.Contains(strings.ToLower(card.CardName), query) {
			continue
		}

		i, ok := index[bank]
		if !ok {
			i = len(groups)
			index[bank] = i
			groups = append(groups, models.BankGroup{BankName: bank})
		}
		groups[i].Cards = append(groups[i].Cards, models.CardChip{
			Key:      key,
			CardName: card.DisplayName(),
			CardType: card.CardType,
			Selected: selected != nil && selected(key),
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].BankName < groups[j].BankName
	})
	return groups
}
