package domain

import "time"

// DaySection holds the operations of an account that fall on one calendar
// day, most recent first.
type DaySection struct {
	Day        time.Time
	Operations []Operation
}

// DailyOperations is the progressive-disclosure projection of an account
// history: day sections, newest day first, plus a flag telling whether the
// whole history has been consumed.
type DailyOperations struct {
	Sections  []DaySection
	Completed bool
}

// GroupOperationsByDay projects the account's pending and confirmed
// operations into calendar-day buckets, newest day first. At most count
// operations are materialized; Completed reports whether both collections
// were fully consumed. The walk is deterministic, so calling again with a
// larger count reproduces the previous sections as a strict prefix.
//
// Pending operations are stored in ascending submission order and are
// consumed newest first; confirmed operations are already newest first. The
// two streams are merged by date, preferring the pending one on ties, and
// deduplicated by operation id so that an operation observed both as
// pending and confirmed shows up once.
func GroupOperationsByDay(account *Account, count int) DailyOperations {
	pending := account.PendingOperations
	confirmed := account.Operations

	pi := len(pending) - 1
	ci := 0
	seen := make(map[string]struct{})
	sections := []DaySection{}
	emitted := 0

	for emitted < count {
		var op Operation
		switch {
		case pi >= 0 && ci < len(confirmed):
			if confirmed[ci].Date.After(pending[pi].Date) {
				op = confirmed[ci]
				ci++
			} else {
				op = pending[pi]
				pi--
			}
		case pi >= 0:
			op = pending[pi]
			pi--
		case ci < len(confirmed):
			op = confirmed[ci]
			ci++
		default:
			return DailyOperations{Sections: sections, Completed: true}
		}

		if _, ok := seen[op.Id]; ok {
			continue
		}
		seen[op.Id] = struct{}{}

		day := startOfDay(op.Date)
		if len(sections) == 0 || !sections[len(sections)-1].Day.Equal(day) {
			sections = append(sections, DaySection{Day: day})
		}
		last := len(sections) - 1
		sections[last].Operations = append(sections[last].Operations, op)
		emitted++
	}

	completed := pi < 0 && ci >= len(confirmed)
	return DailyOperations{Sections: sections, Completed: completed}
}

// Days are bucketed in UTC so the projection is reproducible regardless of
// the host timezone.
func startOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
