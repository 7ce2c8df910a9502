package editor

import "github.com/insightdelivered/statement-editor/internal/models"

// SequenceDates computes new dates for dates spread across [start, end].
// The input is not modified and the result keeps input order.
//
// preserve_spacing maps each date's offset from the earliest date onto the
// new range proportionally. When every date is the same it behaves like
// uniform, which spaces rows evenly by position.
func SequenceDates(dates []models.Date, start, end models.Date, method string) []models.Date {
	out := make([]models.Date, len(dates))
	if len(dates) == 0 {
		return out
	}
	if method == models.DistributionPreserveSpacing {
		if preserveSpacing(out, dates, start, end) {
			return out
		}
	}
	uniform(out, start, end)
	return out
}

func preserveSpacing(out, dates []models.Date, start, end models.Date) bool {
	lo, hi := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d.Before(lo) {
			lo = d
		}
		if d.After(hi) {
			hi = d
		}
	}
	origRange := lo.DaysUntil(hi)
	if origRange == 0 {
		return false
	}
	newRange := start.DaysUntil(end)
	for i, d := range dates {
		out[i] = start.AddDays(lo.DaysUntil(d) * newRange / origRange)
	}
	return true
}

func uniform(out []models.Date, start, end models.Date) {
	n := len(out)
	if n == 1 {
		out[0] = start
		return
	}
	total := start.DaysUntil(end)
	for i := range out {
		out[i] = start.AddDays(i * total / (n - 1))
	}
}
