package task

import "time"

// defaultTripDays is the trip length assumed when a task has flexible
// dates and no month hint.
const defaultTripDays = 7

// ResolveDates turns the model-supplied startDate/endDate strings into
// concrete UTC datetimes. Resolution is total: it always yields two valid
// dates, falling back to now / now+7d when nothing better is available.
//
//   - FLEXIBLE start with a month:YYYY-MM tag resolves to the first day of
//     that month at 00:00:00 UTC; without the tag it resolves to now.
//   - FLEXIBLE end with a month tag resolves to the last calendar day of
//     that month at 23:59:59 UTC (first of next month minus one second);
//     without the tag it resolves to now + 7 days.
//   - A literal date that fails to parse gets the same now / now+7d
//     safety net.
//
// All month arithmetic is pinned to UTC so boundary days do not shift
// under non-UTC deployment timezones.
func ResolveDates(t AgentTask, now time.Time) (start, end time.Time) {
	now = now.UTC()
	month := t.MonthHint()

	start = resolveStart(t.StartDate, month, now)
	end = resolveEnd(t.EndDate, month, now)
	return start, end
}

func resolveStart(raw, month string, now time.Time) time.Time {
	if raw == FlexibleDate {
		if m, ok := parseMonth(month); ok {
			return m
		}
		return now
	}
	if d, ok := parseDate(raw); ok {
		return d
	}
	return now
}

func resolveEnd(raw, month string, now time.Time) time.Time {
	if raw == FlexibleDate {
		if m, ok := parseMonth(month); ok {
			// Last day of the month: first of next month minus a second.
			return m.AddDate(0, 1, 0).Add(-time.Second)
		}
		return now.AddDate(0, 0, defaultTripDays)
	}
	if d, ok := parseDate(raw); ok {
		return d
	}
	return now.AddDate(0, 0, defaultTripDays)
}

// parseMonth parses a YYYY-MM hint into the first instant of that month.
func parseMonth(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("2006-01", s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parseDate accepts the date shapes the model actually produces: full
// RFC3339 timestamps and bare YYYY-MM-DD dates.
func parseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.UTC); err == nil {
		return t, true
	}
	return time.Time{}, false
}
