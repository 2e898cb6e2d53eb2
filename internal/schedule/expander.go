package schedule

import (
	"time"

	"github.com/tutorium/tutorium/internal/model"
)

// MaxOccurrences caps expansion so a distant end date can never generate
// unbounded work. 104 weekly occurrences covers two years.
const MaxOccurrences = 104

// Expand turns a recurrence pattern into the ordered, finite sequence of
// lesson start instants it describes. Weeks are counted from the start date,
// so a biweekly pattern fires in the week of the start date, then every
// second week after it. Monthly patterns repeat the start day-of-month,
// clamped to the last day of shorter months.
//
// Expansion stops once OccurrencesCount instants have been emitted or the
// next candidate day falls after EndDate, whichever comes first.
func Expand(p *model.RecurringPattern) ([]time.Time, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	limit := MaxOccurrences
	if p.OccurrencesCount != nil && *p.OccurrencesCount < limit {
		limit = *p.OccurrencesCount
	}

	loc := p.StartDate.Location()
	startDay := dateOnly(p.StartDate)
	var endDay *time.Time
	if p.EndDate != nil {
		d := dateOnly(*p.EndDate)
		endDay = &d
	}

	var out []time.Time

	if p.Frequency == model.FrequencyMonthly {
		for k := 0; len(out) < limit; k += p.Interval {
			day := addMonthsClamped(startDay, k)
			if endDay != nil && day.After(*endDay) {
				break
			}
			out = append(out, atTime(day, p.StartHour, p.StartMinute, loc))
		}
		return out, nil
	}

	stepWeeks := p.Interval
	if p.Frequency == model.FrequencyBiweekly {
		stepWeeks *= 2
	}
	days := p.EffectiveDays()

	for i := 0; len(out) < limit; i++ {
		day := startDay.AddDate(0, 0, i)
		if endDay != nil && day.After(*endDay) {
			break
		}
		if (i/7)%stepWeeks != 0 {
			continue
		}
		if !containsDay(days, int(day.Weekday())) {
			continue
		}
		out = append(out, atTime(day, p.StartHour, p.StartMinute, loc))
	}

	return out, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func atTime(day time.Time, hour, minute int, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, loc)
}

// addMonthsClamped advances by whole months keeping the day-of-month,
// clamping to the last day when the target month is shorter (Jan 31 +1 month
// = Feb 28/29, not Mar 3).
func addMonthsClamped(day time.Time, months int) time.Time {
	y, m, d := day.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, day.Location()).AddDate(0, months, 0)
	lastDay := first.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, day.Location())
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}
