package analytics

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meowmeowtoast/yangyu-report/pkg/models"
)

func febPosts() []models.Post {
	return []models.Post{
		{Permalink: "https://fb.com/p/1", PublishTime: time.Date(2024, 2, 5, 10, 0, 0, 0, time.UTC)},
		{Permalink: "https://fb.com/p/2", PublishTime: time.Date(2024, 2, 20, 18, 0, 0, 0, time.UTC)},
	}
}

func TestReconcileFollowers_PriorMonthsRollIntoStart(t *testing.T) {
	monthly := map[string]models.MonthlyFollowerDelta{
		"2024-01": {FBGained: 10, FBLost: 2},
		"2024-02": {FBGained: 5, FBLost: 1},
	}
	base := models.BaseFollowerData{FBBase: 100}

	growth := ReconcileFollowers(febPosts(), monthly, base, time.UTC)

	fb := growth.Facebook
	assert.Equal(t, 108, fb.Start)
	assert.Equal(t, 5, fb.Gained)
	assert.Equal(t, 1, fb.Lost)
	assert.Equal(t, 4, fb.Net)
	assert.Equal(t, 112, fb.End)
	assert.InDelta(t, 4.0/108.0*100, fb.Rate, 1e-9)
}

func TestReconcileFollowers_TotalRow(t *testing.T) {
	monthly := map[string]models.MonthlyFollowerDelta{
		"2024-01": {FBGained: 10, FBLost: 2, IGGained: 4, IGLost: 1},
		"2024-02": {FBGained: 5, FBLost: 1, IGGained: 8, IGLost: 2},
	}
	base := models.BaseFollowerData{FBBase: 100, IGBase: 50}

	growth := ReconcileFollowers(febPosts(), monthly, base, time.UTC)

	ig := growth.Instagram
	assert.Equal(t, 53, ig.Start)
	assert.Equal(t, 6, ig.Net)
	assert.Equal(t, 59, ig.End)

	total := growth.Total
	assert.Equal(t, 108+53, total.Start)
	assert.Equal(t, 13, total.Gained)
	assert.Equal(t, 3, total.Lost)
	assert.Equal(t, 108+53+10, total.End)
}

func TestReconcileFollowers_NoPosts(t *testing.T) {
	base := models.BaseFollowerData{FBBase: 100, IGBase: 40}

	growth := ReconcileFollowers(nil, map[string]models.MonthlyFollowerDelta{
		"2024-01": {FBGained: 10},
	}, base, time.UTC)

	assert.Equal(t, models.GrowthResult{Start: 100, End: 100}, growth.Facebook)
	assert.Equal(t, models.GrowthResult{Start: 40, End: 40}, growth.Instagram)
	assert.Equal(t, models.GrowthResult{Start: 140, End: 140}, growth.Total)
}

func TestReconcileFollowers_ZeroStartRatePolicy(t *testing.T) {
	monthly := map[string]models.MonthlyFollowerDelta{
		"2024-02": {FBGained: 7},
	}

	growth := ReconcileFollowers(febPosts(), monthly, models.BaseFollowerData{}, time.UTC)
	assert.Equal(t, float64(100), growth.Facebook.Rate)

	// zero start, zero net
	growth = ReconcileFollowers(febPosts(), nil, models.BaseFollowerData{}, time.UTC)
	assert.Zero(t, growth.Facebook.Rate)
}

func TestReconcileFollowers_BlankDeltasCountAsZero(t *testing.T) {
	var delta models.MonthlyFollowerDelta
	require.NoError(t, json.Unmarshal([]byte(`{"fbGained":"","fbLost":"x","igGained":"12","igLost":3}`), &delta))

	monthly := map[string]models.MonthlyFollowerDelta{"2024-02": delta}
	growth := ReconcileFollowers(febPosts(), monthly, models.BaseFollowerData{FBBase: 10, IGBase: 10}, time.UTC)

	assert.Zero(t, growth.Facebook.Net)
	assert.Equal(t, 9, growth.Instagram.Net)
}

func TestReconcileFollowers_MalformedMonthKeysIgnored(t *testing.T) {
	monthly := map[string]models.MonthlyFollowerDelta{
		"2024-02":    {FBGained: 5},
		"not-a-date": {FBGained: 999},
	}

	growth := ReconcileFollowers(febPosts(), monthly, models.BaseFollowerData{FBBase: 100}, time.UTC)
	assert.Equal(t, 5, growth.Facebook.Gained)
}

func TestReconcileFollowers_Deterministic(t *testing.T) {
	monthly := map[string]models.MonthlyFollowerDelta{
		"2024-01": {FBGained: 10, FBLost: 2},
		"2024-02": {FBGained: 5, FBLost: 1},
		"2023-12": {FBGained: 3},
	}
	base := models.BaseFollowerData{FBBase: 100}

	first := ReconcileFollowers(febPosts(), monthly, base, time.UTC)
	second := ReconcileFollowers(febPosts(), monthly, base, time.UTC)
	assert.Equal(t, first, second)
	assert.Equal(t, 111, first.Facebook.Start)
}
