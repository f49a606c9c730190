// Package aggregator flattens the offers of the selected cards, ranks them
// and picks the best offer per merchant source. Every function here is pure
// and total: missing data yields empty results, never an error.
package aggregator

import (
	"sort"

	"card-offer-finder/internal/catalog"
	"card-offer-finder/internal/models"
)

// Flatten returns the offers of the selected cards joined with card
// identity. Cards are visited in catalog order and offers in list order.
func Flatten(selected []string, c *catalog.Catalog) []models.AnnotatedOffer {
	want := make(map[string]bool, len(selected))
	for _, id := range selected {
		want[id] = true
	}

	offers := []models.AnnotatedOffer{}
	for _, key := range c.Keys() {
		if !want[key] {
			continue
		}
		card, _ := c.Get(key)
		for _, d := range card.Discounts {
			offers = append(offers, models.AnnotatedOffer{
				DiscountOffer: d,
				CardKey:       key,
				BankName:      card.BankName,
				CardName:      card.DisplayName(),
				CardType:      card.CardType,
			})
		}
	}
	return offers
}

// Rank returns a copy of offers sorted by MaxDiscount, highest first. Equal
// values keep their relative order.
func Rank(offers []models.AnnotatedOffer) []models.AnnotatedOffer {
	ranked := make([]models.AnnotatedOffer, len(offers))
	copy(ranked, offers)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RankValue().GreaterThan(ranked[j].RankValue())
	})
	return ranked
}

// BestPerSource returns one entry per canonical source. Each entry holds the
// first offer with the highest MaxDiscount for that source, or is marked
// unavailable when the source has no offers.
func BestPerSource(offers []models.AnnotatedOffer) []models.SourceBest {
	sources := models.Sources()
	best := make([]models.SourceBest, 0, len(sources))
	for _, source := range sources {
		entry := models.SourceBest{Source: source}
		for i := range offers {
			if offers[i].Source != source {
				continue
			}
			if entry.Offer == nil || offers[i].RankValue().GreaterThan(entry.Offer.RankValue()) {
				offer := offers[i]
				entry.Offer = &offer
				entry.Available = true
			}
		}
		best = append(best, entry)
	}
	return best
}

// Aggregate runs Flatten, Rank and BestPerSource. BestPerSource is computed
// from the flattened order so ties resolve to the first card in the catalog.
func Aggregate(selected []string, c *catalog.Catalog) (ranked []models.AnnotatedOffer, best []models.SourceBest) {
	flat := Flatten(selected, c)
	return Rank(flat), BestPerSource(flat)
}
