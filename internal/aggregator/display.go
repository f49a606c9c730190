package aggregator

import (
	"fmt"
	"strings"

	"card-offer-finder/internal/models"
)

const (
	currencySymbol = "₹"
	noOffersText   = "No offers available"
	noDetailsText  = "No additional details"
	applicableSep  = ", "
)

// HeadlineText is the carousel headline: the short offer text when present,
// "Up to ₹N off" otherwise.
func HeadlineText(best models.SourceBest) string {
	if !best.Available || best.Offer == nil {
		return noOffersText
	}
	if best.Offer.Offer != "" {
		return best.Offer.Offer
	}
	return fmt.Sprintf("Up to %s%s off", currencySymbol, best.Offer.RankValue().String())
}

// DiscountText is the list headline: the short offer text when present,
// "₹N off" otherwise.
func DiscountText(o models.DiscountOffer) string {
	if o.Offer != "" {
		return o.Offer
	}
	return fmt.Sprintf("%s%s off", currencySymbol, o.RankValue().String())
}

// DetailText returns the long description with a fallback.
func DetailText(o models.DiscountOffer) string {
	if o.OfferText != "" {
		return o.OfferText
	}
	return noDetailsText
}

// LimitText renders a usage limit as "2x/1mo"; it is empty without a limit.
func LimitText(o models.DiscountOffer) string {
	if o.UsageLimit == nil {
		return ""
	}
	return fmt.Sprintf("%dx/%dmo", o.UsageLimit.MaxUsageCount, o.UsageLimit.DurationInMonths)
}

// ApplicableText joins the applicableOn entries.
func ApplicableText(o models.DiscountOffer) string {
	return strings.Join(o.ApplicableOn, applicableSep)
}

// CardLabel is "<bank> <card>", as shown next to an offer.
func CardLabel(o models.AnnotatedOffer) string {
	return strings.TrimSpace(o.BankName + " " + o.CardName)
}
