package aggregator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"card-offer-finder/internal/catalog"
	"card-offer-finder/internal/models"
)

func amount(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func offer(source models.Source, max int64) models.DiscountOffer {
	return models.DiscountOffer{Source: source, MaxDiscount: amount(max)}
}

func scenarioCatalog() *catalog.Catalog {
	return catalog.New(
		models.CardRecord{ID: "c1", BankName: "Bank A", Discounts: []models.DiscountOffer{
			offer(models.SourceZomato, 200),
			offer(models.SourceEazyDiner, 100),
		}},
		models.CardRecord{ID: "c2", BankName: "Bank B", Discounts: []models.DiscountOffer{
			offer(models.SourceZomato, 150),
		}},
	)
}

func maxValues(offers []models.AnnotatedOffer) []string {
	values := make([]string, len(offers))
	for i, o := range offers {
		values[i] = o.RankValue().String()
	}
	return values
}

func TestScenario_TwoCards(t *testing.T) {
	c := scenarioCatalog()
	selected := []string{"c1", "c2"}

	flat := Flatten(selected, c)
	require.Len(t, flat, 3)

	ranked := Rank(flat)
	require.Equal(t, []string{"200", "150", "100"}, maxValues(ranked))

	best := BestPerSource(flat)
	require.Len(t, best, 3)
	require.Equal(t, models.SourceZomato, best[0].Source)
	require.True(t, best[0].Available)
	require.Equal(t, "c1", best[0].Offer.CardKey)
	require.Equal(t, "200", best[0].Offer.RankValue().String())

	require.Equal(t, models.SourceEazyDiner, best[1].Source)
	require.Equal(t, "100", best[1].Offer.RankValue().String())

	require.Equal(t, models.SourceBookMyShow, best[2].Source)
	require.False(t, best[2].Available)
	require.Nil(t, best[2].Offer)
}

func TestFlatten_CatalogOrderAndAnnotation(t *testing.T) {
	c := scenarioCatalog()

	// selection order does not matter, catalog order does
	flat := Flatten([]string{"c2", "c1"}, c)
	require.Len(t, flat, 3)
	require.Equal(t, []string{"c1", "c1", "c2"}, []string{flat[0].CardKey, flat[1].CardKey, flat[2].CardKey})
	require.Equal(t, models.SourceZomato, flat[0].Source)
	require.Equal(t, models.SourceEazyDiner, flat[1].Source)
	require.Equal(t, "Bank A", flat[0].BankName)
	require.Equal(t, models.AnyCardName, flat[0].CardName)
}

func TestFlatten_LengthIsSumOfDiscounts(t *testing.T) {
	c := catalog.New(
		models.CardRecord{ID: "a", Discounts: []models.DiscountOffer{offer(models.SourceZomato, 1), offer(models.SourceZomato, 2)}},
		models.CardRecord{ID: "empty"},
		models.CardRecord{ID: "b", Discounts: []models.DiscountOffer{offer(models.SourceBookMyShow, 3)}},
	)

	require.Len(t, Flatten([]string{"a", "empty", "b"}, c), 3)
	require.Len(t, Flatten([]string{"empty"}, c), 0)
	require.NotNil(t, Flatten(nil, c))
	require.Len(t, Flatten([]string{"not-in-catalog"}, c), 0)
}

func TestRank_StableAndAbsentIsZero(t *testing.T) {
	noMax := models.DiscountOffer{Source: models.SourceZomato, Offer: "free dessert"}
	c := catalog.New(
		models.CardRecord{ID: "a", Discounts: []models.DiscountOffer{noMax, offer(models.SourceZomato, 50)}},
		models.CardRecord{ID: "b", Discounts: []models.DiscountOffer{offer(models.SourceEazyDiner, 50), offer(models.SourceZomato, 0)}},
	)
	flat := Flatten([]string{"a", "b"}, c)

	ranked := Rank(flat)
	require.Equal(t, []string{"50", "50", "0", "0"}, maxValues(ranked))
	require.Equal(t, "a", ranked[0].CardKey)
	require.Equal(t, "b", ranked[1].CardKey)
	require.Equal(t, "free dessert", ranked[2].Offer)
	require.Equal(t, "b", ranked[3].CardKey)

	// input is untouched
	require.Equal(t, "free dessert", flat[0].Offer)
}

func TestRank_DescendingProperty(t *testing.T) {
	var discounts []models.DiscountOffer
	for _, v := range []int64{5, 300, 20, 300, 0, 75, 20} {
		discounts = append(discounts, offer(models.SourceZomato, v))
	}
	c := catalog.New(models.CardRecord{ID: "x", Discounts: discounts})

	ranked := Rank(Flatten([]string{"x"}, c))
	for i := 1; i < len(ranked); i++ {
		require.False(t, ranked[i].RankValue().GreaterThan(ranked[i-1].RankValue()))
	}
}

func TestBestPerSource_TieGoesToFirstEncountered(t *testing.T) {
	c := catalog.New(
		models.CardRecord{ID: "first", Discounts: []models.DiscountOffer{offer(models.SourceBookMyShow, 250)}},
		models.CardRecord{ID: "second", Discounts: []models.DiscountOffer{offer(models.SourceBookMyShow, 250)}},
	)

	best := BestPerSource(Flatten([]string{"second", "first"}, c))
	require.Equal(t, "first", best[2].Offer.CardKey)
}

func TestBestPerSource_EmptyInput(t *testing.T) {
	best := BestPerSource(nil)
	require.Len(t, best, len(models.Sources()))
	for i, entry := range best {
		require.Equal(t, models.Sources()[i], entry.Source)
		require.False(t, entry.Available)
		require.Nil(t, entry.Offer)
	}
}

func TestBestPerSource_IgnoresUnknownSources(t *testing.T) {
	c := catalog.New(models.CardRecord{ID: "x", Discounts: []models.DiscountOffer{offer("Swiggy", 999)}})

	flat := Flatten([]string{"x"}, c)
	require.Len(t, flat, 1)
	for _, entry := range BestPerSource(flat) {
		require.False(t, entry.Available)
	}
}

func TestAggregate(t *testing.T) {
	ranked, best := Aggregate([]string{"c1", "c2"}, scenarioCatalog())
	require.Equal(t, []string{"200", "150", "100"}, maxValues(ranked))
	require.Equal(t, "c1", best[0].Offer.CardKey)
}
