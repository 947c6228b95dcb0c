package query

import (
	"strings"
	"time"

	"github.com/siherrmann/retriever/model"
)

// temporalPeriods maps bilingual temporal phrases to time windows,
// ordered most specific first: the first matching period wins, so "today"
// beats "this month" when a query somehow matches both.
var temporalPeriods = []struct {
	phrases []string
	window  func(now time.Time) model.TimeWindow
}{
	{
		phrases: []string{"today", "היום"},
		window: func(now time.Time) model.TimeWindow {
			after := startOfDay(now)
			return model.TimeWindow{After: &after}
		},
	},
	{
		phrases: []string{"yesterday", "אתמול"},
		window: func(now time.Time) model.TimeWindow {
			before := startOfDay(now)
			after := before.AddDate(0, 0, -1)
			return model.TimeWindow{After: &after, Before: &before}
		},
	},
	{
		phrases: []string{"this week", "השבוע"},
		window: func(now time.Time) model.TimeWindow {
			after := now.AddDate(0, 0, -7)
			return model.TimeWindow{After: &after}
		},
	},
	{
		phrases: []string{"last month", "חודש שעבר"},
		window: func(now time.Time) model.TimeWindow {
			monthStart := startOfMonth(now)
			after := monthStart.AddDate(0, -1, 0)
			before := monthStart.AddDate(0, 0, -1)
			return model.TimeWindow{After: &after, Before: &before}
		},
	},
	{
		phrases: []string{"this month", "החודש"},
		window: func(now time.Time) model.TimeWindow {
			after := startOfMonth(now)
			return model.TimeWindow{After: &after}
		},
	},
}

// ExtractFilters scans a question for temporal phrases and derives a time
// window relative to now. It never fails; unrecognized phrasing yields an
// unbounded window.
func ExtractFilters(query string, now time.Time) model.Filter {
	lower := strings.ToLower(query)

	for _, period := range temporalPeriods {
		for _, phrase := range period.phrases {
			if strings.Contains(lower, phrase) {
				return model.Filter{TimeWindow: period.window(now)}
			}
		}
	}

	return model.Filter{}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
