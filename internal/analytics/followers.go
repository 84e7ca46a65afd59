package analytics

import (
	"sort"
	"time"

	"github.com/meowmeowtoast/yangyu-report/pkg/models"
)

// ReconcileFollowers combines the base counts and the sparse monthly delta
// map into period-relative growth figures. The period is the calendar-month
// span of the earliest to latest post in the (already filtered) input.
//
// Deltas for months strictly before the period roll into the starting
// balance; deltas inside the period count as gained/lost. The whole
// reconciliation is re-derived from scratch on every call because past
// months can be edited retroactively.
func ReconcileFollowers(posts []models.Post, monthly map[string]models.MonthlyFollowerDelta, base models.BaseFollowerData, loc *time.Location) models.FollowerGrowth {
	if loc == nil {
		loc = time.Local
	}

	fbBase := base.FBBase.Int()
	igBase := base.IGBase.Int()

	if len(posts) == 0 {
		return models.FollowerGrowth{
			Facebook:  models.GrowthResult{Start: fbBase, End: fbBase},
			Instagram: models.GrowthResult{Start: igBase, End: igBase},
			Total:     models.GrowthResult{Start: fbBase + igBase, End: fbBase + igBase},
		}
	}

	earliest, latest := posts[0].PublishTime, posts[0].PublishTime
	for _, p := range posts[1:] {
		if p.PublishTime.Before(earliest) {
			earliest = p.PublishTime
		}
		if p.PublishTime.After(latest) {
			latest = p.PublishTime
		}
	}
	periodStart := startOfMonth(earliest.In(loc))
	periodEnd := endOfMonth(latest.In(loc))

	// YYYY-MM keys sort chronologically as strings
	keys := make([]string, 0, len(monthly))
	for key := range monthly {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var fbBefore, igBefore int
	var fbGained, fbLost, igGained, igLost int
	for _, key := range keys {
		month, err := time.ParseInLocation("2006-01", key, loc)
		if err != nil {
			continue
		}
		delta := monthly[key]
		switch {
		case month.Before(periodStart):
			fbBefore += delta.FBGained.Int() - delta.FBLost.Int()
			igBefore += delta.IGGained.Int() - delta.IGLost.Int()
		case !month.After(periodEnd):
			fbGained += delta.FBGained.Int()
			fbLost += delta.FBLost.Int()
			igGained += delta.IGGained.Int()
			igLost += delta.IGLost.Int()
		}
	}

	fb := growthResult(fbBase+fbBefore, fbGained, fbLost)
	ig := growthResult(igBase+igBefore, igGained, igLost)
	total := growthResult(fbBase+igBase+fbBefore+igBefore, fbGained+igGained, fbLost+igLost)

	return models.FollowerGrowth{Facebook: fb, Instagram: ig, Total: total}
}

func growthResult(start, gained, lost int) models.GrowthResult {
	net := gained - lost
	result := models.GrowthResult{
		Start:  start,
		Gained: gained,
		Lost:   lost,
		Net:    net,
		End:    start + net,
	}
	switch {
	case start > 0:
		result.Rate = float64(net) / float64(start) * 100
	case net > 0:
		result.Rate = 100
	}
	return result
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func endOfMonth(t time.Time) time.Time {
	return endOfDay(startOfMonth(t).AddDate(0, 1, -1))
}
