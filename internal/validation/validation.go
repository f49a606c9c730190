package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"card-offer-finder/internal/models"
)

const maxCardIDLength = 200

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ValidateCard checks a catalog record. The catalog is read-only, so callers
// report problems rather than reject the card.
func ValidateCard(card models.CardRecord) error {
	if err := ValidateCardID(card.ID, "id"); err != nil {
		return err
	}

	if strings.TrimSpace(card.BankName) == "" {
		return &ValidationError{
			Field:   "bankName",
			Message: "is required",
		}
	}

	for i, d := range card.Discounts {
		if err := validateDiscount(d); err != nil {
			return &ValidationError{
				Field:   fmt.Sprintf("discounts[%d]", i),
				Message: err.Error(),
			}
		}
	}

	return nil
}

func validateDiscount(d models.DiscountOffer) error {
	if err := ValidateSource(d.Source); err != nil {
		return err
	}

	if d.MaxDiscount.Valid && d.MaxDiscount.Decimal.IsNegative() {
		return &ValidationError{
			Field:   "maxDiscount",
			Message: "must be non-negative",
		}
	}

	if d.MinBillAmount.Valid && d.MinBillAmount.Decimal.IsNegative() {
		return &ValidationError{
			Field:   "minBillAmount",
			Message: "must be non-negative",
		}
	}

	if d.UsageLimit != nil {
		if d.UsageLimit.MaxUsageCount < 1 {
			return &ValidationError{
				Field:   "usageLimit.maxUsageCount",
				Message: "must be positive",
			}
		}
		if d.UsageLimit.DurationInMonths < 1 {
			return &ValidationError{
				Field:   "usageLimit.durationInMonths",
				Message: "must be positive",
			}
		}
	}

	return nil
}

// ValidateSource checks that source is one of the known merchant sources.
func ValidateSource(source models.Source) error {
	if source == "" {
		return &ValidationError{
			Field:   "source",
			Message: "is required",
		}
	}

	if !source.IsKnown() {
		return &ValidationError{
			Field:   "source",
			Message: fmt.Sprintf("unknown source %q", source),
		}
	}

	return nil
}

func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

func ValidateCardID(id, fieldName string) error {
	if id == "" {
		return &ValidationError{
			Field:   fieldName,
			Message: "is required",
		}
	}

	if len(id) > maxCardIDLength {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("cannot exceed %d characters", maxCardIDLength),
		}
	}

	if SanitizeString(id) != id {
		return &ValidationError{
			Field:   fieldName,
			Message: "must not contain control characters or surrounding whitespace",
		}
	}

	return nil
}

// ValidateIndex checks a usage history position.
func ValidateIndex(index int, fieldName string) error {
	if index < 0 {
		return &ValidationError{
			Field:   fieldName,
			Message: "must be non-negative",
		}
	}
	return nil
}

// ValidateTimeString parses an RFC3339 timestamp or a YYYY-MM-DD date (read as UTC).
func ValidateTimeString(timeStr string) (time.Time, error) {
	if timeStr == "" {
		return time.Time{}, &ValidationError{
			Field:   "time",
			Message: "is required",
		}
	}

	if t, err := time.Parse(time.RFC3339, timeStr); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", timeStr); err == nil {
		return t, nil
	}

	return time.Time{}, &ValidationError{
		Field:   "time",
		Message: "must be a valid RFC3339 timestamp or YYYY-MM-DD date",
	}
}

// ValidateUsageTime rejects usage dates far from now.
func ValidateUsageTime(t, now time.Time) error {
	if t.IsZero() {
		return &ValidationError{
			Field:   "date",
			Message: "is required",
		}
	}

	maxFutureTime := now.Add(1 * time.Hour)
	if t.After(maxFutureTime) {
		return &ValidationError{
			Field:   "date",
			Message: "cannot be more than 1 hour in the future",
		}
	}

	maxPastTime := now.AddDate(-10, 0, 0)
	if t.Before(maxPastTime) {
		return &ValidationError{
			Field:   "date",
			Message: "cannot be more than 10 years in the past",
		}
	}

	return nil
}
