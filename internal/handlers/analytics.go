package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/meowmeowtoast/yangyu-report/internal/analytics"
	"github.com/meowmeowtoast/yangyu-report/internal/store"
	"github.com/meowmeowtoast/yangyu-report/pkg/api/dashboard"
	"github.com/meowmeowtoast/yangyu-report/pkg/models"
)

// Overview returns the KPI totals for the resolved window plus percent
// changes against the previous period of equal duration
func (h *Handlers) Overview(c *gin.Context) {
	filter, platform, err := parseFilter(c)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	period, err := analytics.Resolve(filter, h.now(), h.loc)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	datasets, err := h.store.ListDataSets(c.Request.Context())
	if err != nil {
		h.respondStoreError(c, err, "list datasets")
		return
	}
	selection, err := h.loadSelection(c.Request.Context())
	if err != nil {
		h.respondStoreError(c, err, "load selection")
		return
	}

	all := enabledPosts(datasets, selection)
	posts := analytics.FilterPosts(all, platform, period)
	if !period.Bounded {
		period.Label = analytics.DataRangeLabel(posts, h.loc)
	}

	summary := analytics.Aggregate(posts, h.loc)
	response := dashboard.OverviewResponse{
		Period: periodView(period),
		Totals: summary.Totals,
	}

	if prev, hasPrev := analytics.PreviousPeriod(period); hasPrev {
		prevPosts := analytics.FilterPosts(all, platform, prev)
		prevSummary := analytics.Aggregate(prevPosts, h.loc)

		response.PostCount = kpiDelta(float64(summary.Totals.PostCount), float64(prevSummary.Totals.PostCount))
		response.Reach = kpiDelta(float64(summary.Totals.Reach), float64(prevSummary.Totals.Reach))
		response.Impressions = kpiDelta(float64(summary.Totals.Impressions), float64(prevSummary.Totals.Impressions))
		response.Engagement = kpiDelta(float64(summary.Totals.Engagement), float64(prevSummary.Totals.Engagement))
		response.EngagementRate = kpiDelta(summary.Totals.EngagementRate, prevSummary.Totals.EngagementRate)
	} else {
		response.PostCount = dashboard.KPIDelta{Current: float64(summary.Totals.PostCount)}
		response.Reach = dashboard.KPIDelta{Current: float64(summary.Totals.Reach)}
		response.Impressions = dashboard.KPIDelta{Current: float64(summary.Totals.Impressions)}
		response.Engagement = dashboard.KPIDelta{Current: float64(summary.Totals.Engagement)}
		response.EngagementRate = dashboard.KPIDelta{Current: summary.Totals.EngagementRate}
	}

	c.JSON(http.StatusOK, response)
}

// Trend returns the sparse daily series for the resolved window
func (h *Handlers) Trend(c *gin.Context) {
	posts, period, ok := h.filteredPosts(c)
	if !ok {
		return
	}
	summary := analytics.Aggregate(posts, h.loc)
	c.JSON(http.StatusOK, dashboard.TrendResponse{
		Period: periodView(period),
		Trend:  summary.DailyTrend,
	})
}

// Heatmap returns the 7x24 posting-time score grid
func (h *Handlers) Heatmap(c *gin.Context) {
	posts, period, ok := h.filteredPosts(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dashboard.HeatmapResponse{
		Period:  periodView(period),
		Heatmap: analytics.ScoreHeatmap(posts, h.loc),
	})
}

// Followers reconciles monthly deltas against the base counts for the
// resolved window
func (h *Handlers) Followers(c *gin.Context) {
	posts, period, ok := h.filteredPosts(c)
	if !ok {
		return
	}

	monthly := map[string]models.MonthlyFollowerDelta{}
	if err := h.store.GetDocument(c.Request.Context(), store.KeyMonthlyFollowers, &monthly); err != nil && !errors.Is(err, store.ErrNotFound) {
		h.respondStoreError(c, err, "load monthly followers")
		return
	}
	var base models.BaseFollowerData
	if err := h.store.GetDocument(c.Request.Context(), store.KeyBaseFollowers, &base); err != nil && !errors.Is(err, store.ErrNotFound) {
		h.respondStoreError(c, err, "load base followers")
		return
	}

	c.JSON(http.StatusOK, dashboard.FollowersResponse{
		Period: periodView(period),
		Growth: analytics.ReconcileFollowers(posts, monthly, base, h.loc),
	})
}

// TopPosts lists the highest-engagement posts in the window
func (h *Handlers) TopPosts(c *gin.Context) {
	posts, period, ok := h.filteredPosts(c)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "5"))
	if err != nil || limit < 0 {
		h.respondError(c, http.StatusBadRequest, "invalid limit")
		return
	}

	c.JSON(http.StatusOK, dashboard.TopPostsResponse{
		Period: periodView(period),
		Posts:  analytics.TopPosts(posts, limit),
	})
}

// PostTypes aggregates engagement per post type in the window
func (h *Handlers) PostTypes(c *gin.Context) {
	posts, period, ok := h.filteredPosts(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dashboard.PostTypesResponse{
		Period: periodView(period),
		Types:  analytics.PostTypes(posts),
	})
}

// PlatformShare returns the per-platform split of the window's posts
func (h *Handlers) PlatformShare(c *gin.Context) {
	posts, period, ok := h.filteredPosts(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dashboard.PlatformShareResponse{
		Period: periodView(period),
		Share:  analytics.PlatformShare(posts),
	})
}

func kpiDelta(current, previous float64) dashboard.KPIDelta {
	change := analytics.PctChange(current, previous)
	return dashboard.KPIDelta{Current: current, Previous: previous, PctChange: &change}
}
