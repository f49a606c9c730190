package ledger

import (
	"fmt"
	"time"

	"card-offer-finder/internal/models"
)

// WindowStart returns the first instant of the usage window ending at ref:
// midnight on the 1st of the month durationInMonths-1 months before ref's
// month, in ref's location. The current partial month counts as one month.
// Durations below 1 are treated as 1.
func WindowStart(durationInMonths int, ref time.Time) time.Time {
	if durationInMonths < 1 {
		durationInMonths = 1
	}
	return time.Date(ref.Year(), ref.Month()-time.Month(durationInMonths-1), 1, 0, 0, 0, 0, ref.Location())
}

// InWindow reports whether t lies in [WindowStart(d, ref), ref].
func InWindow(t time.Time, durationInMonths int, ref time.Time) bool {
	return !t.Before(WindowStart(durationInMonths, ref)) && !t.After(ref)
}

// PeriodUsageCount counts the usages inside the window ending at ref.
func PeriodUsageCount(usages []time.Time, durationInMonths int, ref time.Time) int {
	count := 0
	for _, u := range usages {
		if InWindow(u, durationInMonths, ref) {
			count++
		}
	}
	return count
}

// LatestUsage returns the greatest timestamp in usages. Usages are in
// insertion order, which may differ from time order after edits; on equal
// timestamps the later insertion wins.
func LatestUsage(usages []time.Time) (time.Time, bool) {
	if len(usages) == 0 {
		return time.Time{}, false
	}
	latest := usages[0]
	for _, u := range usages[1:] {
		if !u.Before(latest) {
			latest = u
		}
	}
	return latest, true
}

// Status summarises usages against limit at ref.
//
// Offers allowing more than one use report how many uses fall in the
// window. Single-use offers, and offers without a limit, report the date of
// the latest use whether or not it is still inside the window.
func Status(usages []time.Time, limit *models.UsageLimit, ref time.Time) models.UsageStatus {
	if len(usages) == 0 {
		return models.UsageStatus{Kind: models.UsageUnused}
	}

	if limit != nil && limit.MaxUsageCount > 1 {
		count := PeriodUsageCount(usages, limit.DurationInMonths, ref)
		return models.UsageStatus{
			Kind:         models.UsageWindowed,
			Used:         true,
			Count:        count,
			MaxCount:     limit.MaxUsageCount,
			Fresh:        count > 0,
			LimitReached: count >= limit.MaxUsageCount,
			Text:         windowText(count, limit.MaxUsageCount, limit.DurationInMonths),
		}
	}

	latest, _ := LatestUsage(usages)
	duration := 1
	if limit != nil {
		duration = limit.DurationInMonths
	}
	fresh := InWindow(latest, duration, ref)

	return models.UsageStatus{
		Kind:         models.UsageLastUsed,
		Used:         true,
		LastUsed:     &latest,
		Fresh:        fresh,
		LimitReached: limit != nil && fresh,
		Text:         "used on " + shortDate(latest, ref),
	}
}

// StatusText is the human readable part of Status; it is empty for unused offers.
func StatusText(usages []time.Time, limit *models.UsageLimit, ref time.Time) string {
	return Status(usages, limit, ref).Text
}

func windowText(count, max, durationInMonths int) string {
	if durationInMonths <= 1 {
		return fmt.Sprintf("used %d/%d this month", count, max)
	}
	return fmt.Sprintf("used %d/%d in last %d months", count, max, durationInMonths)
}

func shortDate(t, ref time.Time) string {
	t = t.In(ref.Location())
	if t.Year() != ref.Year() {
		return t.Format("Jan 2, 2006")
	}
	return t.Format("Jan 2")
}
