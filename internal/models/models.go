package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source is a merchant platform an offer applies to.
type Source string

const (
	SourceZomato     Source = "Zomato"
	SourceEazyDiner  Source = "EazyDiner"
	SourceBookMyShow Source = "BookMyShow"
)

// Sources returns the merchant sources in canonical order.
func Sources() []Source {
	return []Source{SourceZomato, SourceEazyDiner, SourceBookMyShow}
}

// IsKnown reports whether s is one of the canonical sources.
func (s Source) IsKnown() bool {
	for _, known := range Sources() {
		if s == known {
			return true
		}
	}
	return false
}

// UsageLimit caps how often an offer may be used within a number of calendar months.
type UsageLimit struct {
	MaxUsageCount    int `json:"maxUsageCount"`
	DurationInMonths int `json:"durationInMonths"`
}

// DiscountOffer is a single offer attached to a card. Empty strings and
// invalid decimals mean the field was absent in the catalog.
type DiscountOffer struct {
	Source        Source              `json:"source"`
	Offer         string              `json:"offer,omitempty"`     // short display text
	OfferText     string              `json:"offerText,omitempty"` // long description
	MaxDiscount   decimal.NullDecimal `json:"maxDiscount"`
	MinBillAmount decimal.NullDecimal `json:"minBillAmount"`
	ApplicableOn  []string            `json:"applicableOn,omitempty"`
	UsageLimit    *UsageLimit         `json:"usageLimit,omitempty"`
}

// RankValue is the value used for ordering offers; an absent MaxDiscount counts as zero.
func (d DiscountOffer) RankValue() decimal.Decimal {
	if !d.MaxDiscount.Valid {
		return decimal.Zero
	}
	return d.MaxDiscount.Decimal
}

// CardRecord is a catalog entry. ID is the catalog key and is not part of the JSON body.
type CardRecord struct {
	ID        string          `json:"-"`
	BankName  string          `json:"bankName"`
	CardName  string          `json:"cardName,omitempty"`
	CardType  string          `json:"cardType,omitempty"`
	Discounts []DiscountOffer `json:"discounts"`
}

// DisplayName returns the card name, or "Any" when the catalog omits it.
func (c CardRecord) DisplayName() string {
	if c.CardName == "" {
		return AnyCardName
	}
	return c.CardName
}

// AnyCardName is shown for cards without a name.
const AnyCardName = "Any"

// AnnotatedOffer is an offer joined with the identity of the card that unlocks it.
type AnnotatedOffer struct {
	DiscountOffer
	CardKey  string `json:"cardKey"`
	BankName string `json:"bankName"`
	CardName string `json:"cardName"`
	CardType string `json:"cardType,omitempty"`
}

// SourceBest is the best offer for one source. Available is false when no
// selected card has an offer for the source; Offer is nil in that case.
type SourceBest struct {
	Source    Source          `json:"source"`
	Available bool            `json:"available"`
	Offer     *AnnotatedOffer `json:"offer"`
}

// UsageKind tells which usage summary applies to an offer.
type UsageKind string

const (
	UsageUnused   UsageKind = "unused"
	UsageWindowed UsageKind = "windowed"
	UsageLastUsed UsageKind = "last_used"
)

// UsageStatus summarises the usage history of one card/source pair.
type UsageStatus struct {
	Kind         UsageKind  `json:"kind"`
	Used         bool       `json:"used"`
	Count        int        `json:"count,omitempty"`
	MaxCount     int        `json:"max_count,omitempty"`
	LastUsed     *time.Time `json:"last_used,omitempty"`
	Fresh        bool       `json:"fresh"`
	LimitReached bool       `json:"limit_reached"`
	Text         string     `json:"text,omitempty"`
}

// OfferView is a ranked offer as presented to clients.
type OfferView struct {
	AnnotatedOffer
	Rank           int         `json:"rank"`
	DiscountText   string      `json:"discount_text"`
	DetailText     string      `json:"detail_text"`
	LimitText      string      `json:"limit_text,omitempty"`
	ApplicableText string      `json:"applicable_text,omitempty"`
	CardLabel      string      `json:"card_label"`
	Usage          UsageStatus `json:"usage"`
}

// BestView is a best-per-source entry as presented to clients.
type BestView struct {
	SourceBest
	Headline  string `json:"headline"`
	CardLabel string `json:"card_label,omitempty"`
}

// OffersView is the response payload for the offers screen.
type OffersView struct {
	Selected  []string     `json:"selected"`
	Offers    []OfferView  `json:"offers"`
	Best      []BestView   `json:"best"`
	ShareLink string       `json:"share_link,omitempty"`
	Carousel  CarouselView `json:"carousel"`
}

// SlideRole is the visual position of a carousel slide.
type SlideRole string

const (
	RoleLeft   SlideRole = "left"
	RoleCenter SlideRole = "center"
	RoleRight  SlideRole = "right"
	RoleHidden SlideRole = "hidden"
)

// CarouselSlide is a single slide with its current role.
type CarouselSlide struct {
	Index     int       `json:"index"`
	Source    Source    `json:"source"`
	Available bool      `json:"available"`
	Headline  string    `json:"headline"`
	CardLabel string    `json:"card_label,omitempty"`
	Role      SlideRole `json:"role"`
}

// CarouselView is the carousel state as presented to clients.
type CarouselView struct {
	State        string          `json:"state"`
	CurrentIndex int             `json:"current_index"`
	TotalSlides  int             `json:"total_slides"`
	Slides       []CarouselSlide `json:"slides"`
}

// BankGroup lists the catalog cards of one bank.
type BankGroup struct {
	BankName string     `json:"bank_name"`
	Cards    []CardChip `json:"cards"`
}

// CardChip is a selectable card in the catalog listing.
type CardChip struct {
	Key      string `json:"key"`
	CardName string `json:"card_name"`
	CardType string `json:"card_type,omitempty"`
	Selected bool   `json:"selected"`
}

// SelectionResponse is returned by the selection endpoints.
type SelectionResponse struct {
	Selected  []string `json:"selected"`
	ShareLink string   `json:"share_link,omitempty"`
}

// ToggleSelectionRequest is the request body for toggling a card.
type ToggleSelectionRequest struct {
	CardID string `json:"card_id"`
}

// RecordUsageRequest is the request body for marking an offer as used.
type RecordUsageRequest struct {
	CardID string `json:"card_id"`
	Source Source `json:"source"`
	Date   string `json:"date,omitempty"` // RFC3339, defaults to now
}

// EditUsageRequest is the request body for correcting a recorded usage date.
type EditUsageRequest struct {
	CardID string `json:"card_id"`
	Source Source `json:"source"`
	Index  int    `json:"index"`
	Date   string `json:"date"`
}

// UsageResponse lists the usage history of a card/source pair.
type UsageResponse struct {
	CardID  string      `json:"card_id"`
	Source  Source      `json:"source"`
	Used    []time.Time `json:"used"`
	Updated *bool       `json:"updated,omitempty"`
}

// JumpRequest is the request body for jumping the carousel to a slide.
type JumpRequest struct {
	Index int `json:"index"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
