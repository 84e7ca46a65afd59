package analytics

import (
	"sort"
	"time"

	"github.com/meowmeowtoast/yangyu-report/pkg/models"
)

// Aggregate computes KPI totals and the daily trend series for an already
// filtered set of posts. Pure function; never errors on data shape.
func Aggregate(posts []models.Post, loc *time.Location) models.Summary {
	if loc == nil {
		loc = time.Local
	}

	summary := models.Summary{DailyTrend: []models.TrendPoint{}}

	byDay := make(map[string]*models.TrendPoint)
	for _, p := range posts {
		summary.Totals.PostCount++
		summary.Totals.Reach += p.Reach
		summary.Totals.Impressions += p.Impressions
		summary.Totals.Engagement += p.TotalEngagement

		day := p.PublishTime.In(loc).Format("2006-01-02")
		point, ok := byDay[day]
		if !ok {
			point = &models.TrendPoint{Date: day}
			byDay[day] = point
		}
		point.PostCount++
		point.Reach += p.Reach
		point.Impressions += p.Impressions
		point.Engagement += p.TotalEngagement
	}

	summary.Totals.EngagementRate = rate(summary.Totals.Engagement, summary.Totals.Reach)

	for _, point := range byDay {
		point.EngagementRate = rate(point.Engagement, point.Reach)
		summary.DailyTrend = append(summary.DailyTrend, *point)
	}
	sort.Slice(summary.DailyTrend, func(i, j int) bool {
		return summary.DailyTrend[i].Date < summary.DailyTrend[j].Date
	})

	return summary
}

// TopPosts returns the limit highest-engagement posts, ties broken by reach
func TopPosts(posts []models.Post, limit int) []models.TopPost {
	sorted := make([]models.Post, len(posts))
	copy(sorted, posts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TotalEngagement != sorted[j].TotalEngagement {
			return sorted[i].TotalEngagement > sorted[j].TotalEngagement
		}
		return sorted[i].Reach > sorted[j].Reach
	})

	if limit <= 0 || limit > len(sorted) {
		limit = len(sorted)
	}

	out := make([]models.TopPost, 0, limit)
	for _, p := range sorted[:limit] {
		out = append(out, models.TopPost{
			Permalink:  p.Permalink,
			Platform:   string(p.Platform),
			Content:    p.Content,
			PostType:   p.PostType,
			Engagement: p.TotalEngagement,
			Reach:      p.Reach,
			Rate:       rate(p.TotalEngagement, p.Reach),
		})
	}
	return out
}

// PostTypes aggregates post count and engagement per post type, sorted by
// engagement descending
func PostTypes(posts []models.Post) []models.PostTypeStat {
	byType := make(map[string]*models.PostTypeStat)
	for _, p := range posts {
		stat, ok := byType[p.PostType]
		if !ok {
			stat = &models.PostTypeStat{PostType: p.PostType}
			byType[p.PostType] = stat
		}
		stat.PostCount++
		stat.Engagement += p.TotalEngagement
	}

	out := make([]models.PostTypeStat, 0, len(byType))
	for _, stat := range byType {
		out = append(out, *stat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Engagement != out[j].Engagement {
			return out[i].Engagement > out[j].Engagement
		}
		return out[i].PostType < out[j].PostType
	})
	return out
}

// PlatformShare computes the per-platform share of the post set
func PlatformShare(posts []models.Post) []models.PlatformShare {
	counts := make(map[string]int)
	for _, p := range posts {
		counts[string(p.Platform)]++
	}

	out := make([]models.PlatformShare, 0, len(counts))
	for platform, count := range counts {
		share := models.PlatformShare{Platform: platform, PostCount: count}
		if len(posts) > 0 {
			share.Percent = float64(count) / float64(len(posts)) * 100
		}
		out = append(out, share)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PostCount != out[j].PostCount {
			return out[i].PostCount > out[j].PostCount
		}
		return out[i].Platform < out[j].Platform
	})
	return out
}

// rate is the engagement-per-reach percentage with the uniform zero guard
func rate(engagement, reach int) float64 {
	if reach <= 0 {
		return 0
	}
	return float64(engagement) / float64(reach) * 100
}
