package analytics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/meowmeowtoast/yangyu-report/pkg/models"
)

// Range keywords accepted by the dashboard filter
const (
	RangeLast7   = "7"
	RangeLast30  = "30"
	RangeLast90  = "90"
	RangeAll     = "all"
	RangeMonthly = "monthly"
	RangeCustom  = "custom"
)

// StorageKeyAllTime keys analysis notes for the unbounded window
const StorageKeyAllTime = "all-time"

const dateLabelLayout = "2006/01/02"

// Filter is the user-selected window specification
type Filter struct {
	Range string     // 7 | 30 | 90 | all | monthly | custom
	Month string     // YYYY-MM, required for monthly
	Start *time.Time // required for custom
	End   *time.Time // required for custom
}

// Period is a resolved analysis window. Start/End are zero and Bounded is
// false for the unbounded "all" range.
type Period struct {
	Start      time.Time
	End        time.Time
	Label      string
	StorageKey string
	Bounded    bool
}

// Contains reports whether t falls inside the window, inclusive on both
// ends. Unbounded periods contain everything.
func (p Period) Contains(t time.Time) bool {
	if !p.Bounded {
		return true
	}
	return !t.Before(p.Start) && !t.After(p.End)
}

// Resolve translates a filter specification into concrete instants. Start
// snaps to 00:00:00.000 and End to 23:59:59.999 in loc.
func Resolve(f Filter, now time.Time, loc *time.Location) (Period, error) {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)

	switch f.Range {
	case RangeLast7, RangeLast30, RangeLast90:
		days, _ := strconv.Atoi(f.Range)
		end := endOfDay(now)
		// the window runs from the start of the day N days back through
		// the end of today, so a post published exactly N days ago is in
		start := startOfDay(now.AddDate(0, 0, -days))
		return Period{
			Start:      start,
			End:        end,
			Label:      fmt.Sprintf("Last %d Days", days),
			StorageKey: end.Format("2006-01"),
			Bounded:    true,
		}, nil

	case RangeMonthly:
		month, err := time.ParseInLocation("2006-01", f.Month, loc)
		if err != nil {
			return Period{}, fmt.Errorf("invalid month %q: %w", f.Month, err)
		}
		start := startOfDay(month)
		end := endOfDay(month.AddDate(0, 1, -1))
		return Period{
			Start:      start,
			End:        end,
			Label:      f.Month,
			StorageKey: f.Month,
			Bounded:    true,
		}, nil

	case RangeCustom:
		if f.Start == nil || f.End == nil {
			return Period{}, fmt.Errorf("custom range requires start and end dates")
		}
		start := startOfDay(f.Start.In(loc))
		end := endOfDay(f.End.In(loc))
		if end.Before(start) {
			return Period{}, fmt.Errorf("custom range end precedes start")
		}
		return Period{
			Start:      start,
			End:        end,
			Label:      start.Format(dateLabelLayout) + " ~ " + end.Format(dateLabelLayout),
			StorageKey: end.Format("2006-01"),
			Bounded:    true,
		}, nil

	case RangeAll, "":
		return Period{
			Label:      "All Time",
			StorageKey: StorageKeyAllTime,
		}, nil

	default:
		return Period{}, fmt.Errorf("unknown range %q", f.Range)
	}
}

// PreviousPeriod derives the window of equal duration ending 1ms before p
// starts. Unbounded periods have no previous period.
func PreviousPeriod(p Period) (Period, bool) {
	if !p.Bounded {
		return Period{}, false
	}
	duration := p.End.Sub(p.Start)
	prevEnd := p.Start.Add(-time.Millisecond)
	prevStart := prevEnd.Add(-duration)
	return Period{
		Start:      prevStart,
		End:        prevEnd,
		Label:      prevStart.Format(dateLabelLayout) + " ~ " + prevEnd.Format(dateLabelLayout),
		StorageKey: prevEnd.Format("2006-01"),
		Bounded:    true,
	}, true
}

// DataRangeLabel derives the label for an unbounded window from the posts
// actually present: the min..max publish date, or "All Time" when empty.
func DataRangeLabel(posts []models.Post, loc *time.Location) string {
	if len(posts) == 0 {
		return "All Time"
	}
	min, max := posts[0].PublishTime, posts[0].PublishTime
	for _, p := range posts[1:] {
		if p.PublishTime.Before(min) {
			min = p.PublishTime
		}
		if p.PublishTime.After(max) {
			max = p.PublishTime
		}
	}
	return min.In(loc).Format(dateLabelLayout) + " ~ " + max.In(loc).Format(dateLabelLayout)
}

// PctChange computes the percent change between two KPI values with the
// uniform zero-denominator policy: a rise from zero is 100, zero to zero
// is 0.
func PctChange(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return (current - previous) / previous * 100
}

// FilterPosts returns the posts matching the platform filter and falling
// inside the period window.
func FilterPosts(posts []models.Post, platform models.Platform, period Period) []models.Post {
	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if platform != "" && platform != models.PlatformAll && p.Platform != platform {
			continue
		}
		if !period.Contains(p.PublishTime) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}
