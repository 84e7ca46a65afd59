package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meowmeowtoast/yangyu-report/pkg/models"
)

func samplePosts() []models.Post {
	return []models.Post{
		{
			Platform:        models.PlatformFacebook,
			Permalink:       "https://fb.com/p/1",
			PublishTime:     time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
			PostType:        "相片",
			Reach:           1000,
			Impressions:     1500,
			TotalEngagement: 100,
		},
		{
			Platform:        models.PlatformFacebook,
			Permalink:       "https://fb.com/p/2",
			PublishTime:     time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC),
			PostType:        "影片",
			Reach:           500,
			Impressions:     800,
			TotalEngagement: 60,
		},
		{
			Platform:        models.PlatformInstagram,
			Permalink:       "https://instagram.com/p/a",
			PublishTime:     time.Date(2024, 3, 12, 12, 0, 0, 0, time.UTC),
			PostType:        "相片",
			Reach:           2000,
			Impressions:     2600,
			TotalEngagement: 300,
		},
	}
}

func TestAggregate_Totals(t *testing.T) {
	summary := Aggregate(samplePosts(), time.UTC)

	assert.Equal(t, 3, summary.Totals.PostCount)
	assert.Equal(t, 3500, summary.Totals.Reach)
	assert.Equal(t, 4900, summary.Totals.Impressions)
	assert.Equal(t, 460, summary.Totals.Engagement)
	assert.InDelta(t, 460.0/3500.0*100, summary.Totals.EngagementRate, 1e-9)
}

func TestAggregate_EngagementRateZeroGuard(t *testing.T) {
	posts := []models.Post{
		{PublishTime: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), TotalEngagement: 50},
	}
	summary := Aggregate(posts, time.UTC)
	assert.Zero(t, summary.Totals.EngagementRate)
	require.Len(t, summary.DailyTrend, 1)
	assert.Zero(t, summary.DailyTrend[0].EngagementRate)
}

func TestAggregate_DailyTrendSparseAscending(t *testing.T) {
	summary := Aggregate(samplePosts(), time.UTC)

	// two days present, nothing zero-filled in between
	require.Len(t, summary.DailyTrend, 2)
	assert.Equal(t, "2024-03-10", summary.DailyTrend[0].Date)
	assert.Equal(t, "2024-03-12", summary.DailyTrend[1].Date)

	first := summary.DailyTrend[0]
	assert.Equal(t, 2, first.PostCount)
	assert.Equal(t, 1500, first.Reach)
	assert.Equal(t, 160, first.Engagement)
}

func TestAggregate_DayBoundaryFollowsLocation(t *testing.T) {
	taipei, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)

	// 23:00 UTC on the 10th is already the 11th in Taipei
	posts := []models.Post{
		{PublishTime: time.Date(2024, 3, 10, 23, 0, 0, 0, time.UTC), Reach: 10},
	}
	summary := Aggregate(posts, taipei)
	require.Len(t, summary.DailyTrend, 1)
	assert.Equal(t, "2024-03-11", summary.DailyTrend[0].Date)
}

func TestAggregate_EmptyInput(t *testing.T) {
	summary := Aggregate(nil, time.UTC)
	assert.Zero(t, summary.Totals.PostCount)
	assert.Zero(t, summary.Totals.EngagementRate)
	assert.Empty(t, summary.DailyTrend)
}

func TestAggregate_Idempotent(t *testing.T) {
	posts := samplePosts()
	first := Aggregate(posts, time.UTC)
	second := Aggregate(posts, time.UTC)
	assert.Equal(t, first, second)
}

func TestTopPosts(t *testing.T) {
	top := TopPosts(samplePosts(), 2)
	require.Len(t, top, 2)
	assert.Equal(t, "https://instagram.com/p/a", top[0].Permalink)
	assert.Equal(t, 300, top[0].Engagement)
	assert.Equal(t, "https://fb.com/p/1", top[1].Permalink)

	// limit beyond input length returns everything
	assert.Len(t, TopPosts(samplePosts(), 10), 3)
	assert.Len(t, TopPosts(samplePosts(), 0), 3)
}

func TestPostTypes(t *testing.T) {
	stats := PostTypes(samplePosts())
	require.Len(t, stats, 2)
	assert.Equal(t, "相片", stats[0].PostType)
	assert.Equal(t, 2, stats[0].PostCount)
	assert.Equal(t, 400, stats[0].Engagement)
	assert.Equal(t, "影片", stats[1].PostType)
}

func TestPlatformShare(t *testing.T) {
	share := PlatformShare(samplePosts())
	require.Len(t, share, 2)
	assert.Equal(t, string(models.PlatformFacebook), share[0].Platform)
	assert.Equal(t, 2, share[0].PostCount)
	assert.InDelta(t, 200.0/3.0, share[0].Percent, 1e-9)

	assert.Empty(t, PlatformShare(nil))
}
