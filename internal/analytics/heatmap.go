package analytics

import (
	"time"

	"github.com/meowmeowtoast/yangyu-report/pkg/models"
)

// Composite score weights. Interaction rate matters most for best-time-to-
// post guidance, then raw activity, reach, and lastly posting frequency as
// a tie-breaking signal. They sum to 1.0.
const (
	weightRate     = 0.4
	weightActivity = 0.3
	weightReach    = 0.2
	weightCount    = 0.1
)

// ScoreHeatmap buckets posts into a 7x24 grid by local weekday (0=Sunday)
// and hour of publish time, then scores each populated cell against the
// global maxima. Cells with no posts score exactly 0 and never feed the
// maxima.
func ScoreHeatmap(posts []models.Post, loc *time.Location) models.Heatmap {
	if loc == nil {
		loc = time.Local
	}

	var hm models.Heatmap

	for _, p := range posts {
		t := p.PublishTime.In(loc)
		cell := &hm.Cells[int(t.Weekday())][t.Hour()]
		cell.PostCount++
		cell.Engagement += p.TotalEngagement
		cell.Reach += p.Reach
	}

	var maxRate, maxActivity, maxAvgReach float64
	var maxCount int
	for day := range hm.Cells {
		for hour := range hm.Cells[day] {
			cell := &hm.Cells[day][hour]
			if cell.PostCount == 0 {
				continue
			}
			cell.InteractionRate = rate(cell.Engagement, cell.Reach)
			cell.AvgReach = float64(cell.Reach) / float64(cell.PostCount)

			if cell.InteractionRate > maxRate {
				maxRate = cell.InteractionRate
			}
			if float64(cell.Engagement) > maxActivity {
				maxActivity = float64(cell.Engagement)
			}
			if cell.AvgReach > maxAvgReach {
				maxAvgReach = cell.AvgReach
			}
			if cell.PostCount > maxCount {
				maxCount = cell.PostCount
			}
		}
	}

	for day := range hm.Cells {
		for hour := range hm.Cells[day] {
			cell := &hm.Cells[day][hour]
			if cell.PostCount == 0 {
				continue
			}
			score := weightRate*norm(cell.InteractionRate, maxRate) +
				weightActivity*norm(float64(cell.Engagement), maxActivity) +
				weightReach*norm(cell.AvgReach, maxAvgReach) +
				weightCount*norm(float64(cell.PostCount), float64(maxCount))
			cell.Score = score
			if score > hm.MaxScore {
				hm.MaxScore = score
			}
		}
	}

	return hm
}

// norm is value/max with each ratio term zero when its max is zero
func norm(value, max float64) float64 {
	if max == 0 {
		return 0
	}
	return value / max
}
