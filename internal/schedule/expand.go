package schedule

import (
	"fmt"
	"sort"
	"time"
)

// DefaultHorizonDays bounds how far into the future occurrences are
// materialized regardless of a definition's end date. Raising it increases
// stored-occurrence volume for open-ended daily and weekly reminders.
const DefaultHorizonDays = 90

// Expand turns a recurrence definition into the ordered list of UTC instants
// it fires at, up to and including horizonEnd. It is pure: no I/O, no clock
// reads, identical inputs produce identical output. Both initial creation and
// re-expansion after edits go through here.
//
// The effective end is min(definition end date, horizonEnd); an open-ended
// definition is still cut off at the horizon. Results are ascending and
// contain no duplicate instants even when multiple times of day collide on
// the same recurrence day.
func Expand(def Definition, horizonEnd Date) ([]time.Time, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if horizonEnd.IsZero() {
		return nil, fmt.Errorf("%w: missing horizon end", ErrInvalidDefinition)
	}

	end := horizonEnd
	if def.EndDate != nil && def.EndDate.Before(end) {
		end = *def.EndDate
	}
	if end.Before(def.StartDate) {
		return nil, nil
	}

	var days []Date
	switch rule := def.Rule.(type) {
	case Once:
		if !rule.Anchor.Before(def.StartDate) && !rule.Anchor.After(end) {
			days = append(days, rule.Anchor)
		}
	case Daily:
		for d := def.StartDate; !d.After(end); d = d.AddDays(1) {
			days = append(days, d)
		}
	case Weekly:
		for d := def.StartDate; !d.After(end); d = d.AddDays(1) {
			if rule.Mask.Contains(d.Weekday()) {
				days = append(days, d)
			}
		}
	case Interval:
		for d := def.StartDate; !d.After(end); d = d.AddDays(rule.StepDays) {
			days = append(days, d)
		}
	case Monthly:
		// The day of month is taken from the start date and clamped to
		// shorter months (Jan 31 hits Feb 28/29, then Mar 31 again).
		target := def.StartDate.Day
		for n := 0; ; n++ {
			d := def.StartDate.AddMonthsClamped(n, target)
			if d.After(end) {
				break
			}
			days = append(days, d)
		}
	default:
		return nil, fmt.Errorf("%w: unknown schedule type %q", ErrInvalidDefinition, def.Rule.Kind())
	}

	// Compose instants day-major, time-minor so the pre-sort order is
	// well-defined, then dedupe: distinct wall-clock times can map to the
	// same instant across a DST fall-back.
	occurrences := make([]time.Time, 0, len(days)*len(def.Times))
	seen := make(map[int64]bool, len(days)*len(def.Times))
	for _, day := range days {
		for _, tod := range def.Times {
			instant, err := ComposeInstant(day, tod, def.Location)
			if err != nil {
				return nil, err
			}
			key := instant.Unix()
			if seen[key] {
				continue
			}
			seen[key] = true
			occurrences = append(occurrences, instant)
		}
	}

	sort.SliceStable(occurrences, func(i, j int) bool {
		return occurrences[i].Before(occurrences[j])
	})
	return occurrences, nil
}
