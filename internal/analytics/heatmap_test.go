package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meowmeowtoast/yangyu-report/pkg/models"
)

func TestScoreWeightsSumToOne(t *testing.T) {
	assert.InDelta(t, 1.0, weightRate+weightActivity+weightReach+weightCount, 1e-12)
}

func TestScoreHeatmap_SingleCell(t *testing.T) {
	// Sunday 2024-03-10, 09:xx local
	posts := []models.Post{
		{PublishTime: time.Date(2024, 3, 10, 9, 15, 0, 0, time.UTC), Reach: 1000, TotalEngagement: 100},
		{PublishTime: time.Date(2024, 3, 10, 9, 45, 0, 0, time.UTC), Reach: 500, TotalEngagement: 80},
	}

	hm := ScoreHeatmap(posts, time.UTC)

	cell := hm.Cells[0][9]
	assert.Equal(t, 2, cell.PostCount)
	assert.Equal(t, 180, cell.Engagement)
	assert.Equal(t, 1500, cell.Reach)
	assert.InDelta(t, 12.0, cell.InteractionRate, 1e-9)
	assert.InDelta(t, 750.0, cell.AvgReach, 1e-9)

	// the only populated cell holds every maximum, so its score is 1.0
	assert.InDelta(t, 1.0, cell.Score, 1e-9)
	assert.InDelta(t, 1.0, hm.MaxScore, 1e-9)
}

func TestScoreHeatmap_EmptyCellsScoreZero(t *testing.T) {
	posts := []models.Post{
		{PublishTime: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), Reach: 100, TotalEngagement: 10},
	}

	hm := ScoreHeatmap(posts, time.UTC)

	for day := range hm.Cells {
		for hour := range hm.Cells[day] {
			if day == 0 && hour == 9 {
				continue
			}
			cell := hm.Cells[day][hour]
			assert.Zero(t, cell.Score)
			assert.Zero(t, cell.PostCount)
		}
	}
}

func TestScoreHeatmap_ZeroReachNoPanic(t *testing.T) {
	posts := []models.Post{
		{PublishTime: time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC), TotalEngagement: 10},
	}

	hm := ScoreHeatmap(posts, time.UTC)

	// Monday row; rate and reach terms drop out, activity and count remain
	cell := hm.Cells[1][10]
	assert.Zero(t, cell.InteractionRate)
	assert.Zero(t, cell.AvgReach)
	assert.InDelta(t, weightActivity+weightCount, cell.Score, 1e-9)
}

func TestScoreHeatmap_WeekdayHourFollowsLocation(t *testing.T) {
	taipei, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)

	// Saturday 23:00 UTC is Sunday 07:00 in Taipei
	posts := []models.Post{
		{PublishTime: time.Date(2024, 3, 9, 23, 0, 0, 0, time.UTC), Reach: 10, TotalEngagement: 1},
	}

	hm := ScoreHeatmap(posts, taipei)
	assert.Equal(t, 1, hm.Cells[0][7].PostCount)
}

func TestScoreHeatmap_Idempotent(t *testing.T) {
	posts := samplePosts()
	assert.Equal(t, ScoreHeatmap(posts, time.UTC), ScoreHeatmap(posts, time.UTC))
}
