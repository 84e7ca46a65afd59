package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meowmeowtoast/yangyu-report/internal/analytics"
	"github.com/meowmeowtoast/yangyu-report/internal/ingest"
	"github.com/meowmeowtoast/yangyu-report/internal/metrics"
	"github.com/meowmeowtoast/yangyu-report/internal/preview"
	"github.com/meowmeowtoast/yangyu-report/internal/store"
	"github.com/meowmeowtoast/yangyu-report/pkg/api/dashboard"
	"github.com/meowmeowtoast/yangyu-report/pkg/logging"
	"github.com/meowmeowtoast/yangyu-report/pkg/models"
)

// Handlers carries the HTTP layer dependencies
type Handlers struct {
	store      store.Store
	normalizer *ingest.Normalizer
	preview    *preview.Fetcher
	metrics    *metrics.Metrics
	logger     logging.Logger
	loc        *time.Location
	now        func() time.Time
}

// New creates the handler set
func New(s store.Store, normalizer *ingest.Normalizer, fetcher *preview.Fetcher, m *metrics.Metrics, logger logging.Logger, loc *time.Location) *Handlers {
	if loc == nil {
		loc = time.Local
	}
	return &Handlers{
		store:      s,
		normalizer: normalizer,
		preview:    fetcher,
		metrics:    m,
		logger:     logger,
		loc:        loc,
		now:        time.Now,
	}
}

// RegisterRoutes mounts every API route under /api/v1
func (h *Handlers) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")

	v1.POST("/datasets", h.UploadDataSets)
	v1.GET("/datasets", h.ListDataSets)
	v1.DELETE("/datasets/:id", h.DeleteDataSet)
	v1.DELETE("/datasets", h.ClearDataSets)
	v1.DELETE("/posts", h.DeletePostsInRange)

	v1.PUT("/selection/posts", h.TogglePost)
	v1.PUT("/selection/datasets", h.ToggleDataSet)

	v1.GET("/analytics/overview", h.Overview)
	v1.GET("/analytics/trend", h.Trend)
	v1.GET("/analytics/heatmap", h.Heatmap)
	v1.GET("/analytics/followers", h.Followers)
	v1.GET("/analytics/top-posts", h.TopPosts)
	v1.GET("/analytics/post-types", h.PostTypes)
	v1.GET("/analytics/platform-share", h.PlatformShare)

	v1.PUT("/followers/monthly", h.PutMonthlyFollowers)
	v1.PUT("/followers/base", h.PutBaseFollowers)

	v1.GET("/analysis/:key", h.GetAnalysis)
	v1.PUT("/analysis/:key", h.PutAnalysis)

	v1.GET("/profile", h.GetProfile)
	v1.PUT("/profile", h.PutProfile)

	v1.GET("/backup", h.ExportBackup)
	v1.POST("/backup", h.ImportBackup)

	v1.GET("/preview", h.Preview)
}

func (h *Handlers) respondError(c *gin.Context, status int, message string) {
	c.JSON(status, dashboard.ErrorResponse{Error: message})
}

func (h *Handlers) respondStoreError(c *gin.Context, err error, operation string) {
	if errors.Is(err, store.ErrNotFound) {
		h.respondError(c, http.StatusNotFound, "not found")
		return
	}
	h.logger.WithError(err).Error("Store operation failed: " + operation)
	h.respondError(c, http.StatusInternalServerError, "internal error")
}

// loadSelection fetches the selection state, defaulting to empty maps
func (h *Handlers) loadSelection(ctx context.Context) (models.SelectionState, error) {
	selection := models.SelectionState{
		DataSets: map[string]bool{},
		Posts:    map[string]bool{},
	}
	err := h.store.GetDocument(ctx, store.KeySelection, &selection)
	if errors.Is(err, store.ErrNotFound) {
		return selection, nil
	}
	if selection.DataSets == nil {
		selection.DataSets = map[string]bool{}
	}
	if selection.Posts == nil {
		selection.Posts = map[string]bool{}
	}
	return selection, err
}

// enabledPosts flattens the datasets down to the posts passing the
// selection filter. A permalink absent from the map counts as enabled.
func enabledPosts(datasets []models.DataSet, selection models.SelectionState) []models.Post {
	posts := []models.Post{}
	for _, ds := range datasets {
		for _, p := range ds.Posts {
			if enabled, ok := selection.Posts[p.Permalink]; ok && !enabled {
				continue
			}
			posts = append(posts, p)
		}
	}
	return posts
}

// deriveDatasetFlags recomputes the derived dataset map: a dataset is
// enabled iff at least one of its posts is.
func deriveDatasetFlags(datasets []models.DataSet, selection *models.SelectionState) {
	selection.DataSets = map[string]bool{}
	for _, ds := range datasets {
		enabled := false
		for _, p := range ds.Posts {
			if on, ok := selection.Posts[p.Permalink]; !ok || on {
				enabled = true
				break
			}
		}
		selection.DataSets[ds.ID] = enabled
	}
}

// syncSelection recomputes the selection state wholesale after a dataset
// add or delete: stale permalinks drop out, dataset flags re-derive.
func (h *Handlers) syncSelection(ctx context.Context, datasets []models.DataSet) error {
	selection, err := h.loadSelection(ctx)
	if err != nil {
		return err
	}

	known := map[string]struct{}{}
	for _, ds := range datasets {
		for _, p := range ds.Posts {
			known[p.Permalink] = struct{}{}
		}
	}
	for permalink := range selection.Posts {
		if _, ok := known[permalink]; !ok {
			delete(selection.Posts, permalink)
		}
	}
	deriveDatasetFlags(datasets, &selection)

	return h.store.PutDocument(ctx, store.KeySelection, selection)
}

// filteredPosts loads the enabled posts and applies the platform and
// period filters from the request query.
func (h *Handlers) filteredPosts(c *gin.Context) ([]models.Post, analytics.Period, bool) {
	filter, platform, err := parseFilter(c)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err.Error())
		return nil, analytics.Period{}, false
	}

	period, err := analytics.Resolve(filter, h.now(), h.loc)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err.Error())
		return nil, analytics.Period{}, false
	}

	datasets, err := h.store.ListDataSets(c.Request.Context())
	if err != nil {
		h.respondStoreError(c, err, "list datasets")
		return nil, analytics.Period{}, false
	}
	selection, err := h.loadSelection(c.Request.Context())
	if err != nil {
		h.respondStoreError(c, err, "load selection")
		return nil, analytics.Period{}, false
	}

	posts := analytics.FilterPosts(enabledPosts(datasets, selection), platform, period)
	if !period.Bounded {
		period.Label = analytics.DataRangeLabel(posts, h.loc)
	}
	return posts, period, true
}

func parseFilter(c *gin.Context) (analytics.Filter, models.Platform, error) {
	platform := models.Platform(c.DefaultQuery("platform", string(models.PlatformAll)))

	filter := analytics.Filter{
		Range: c.DefaultQuery("range", analytics.RangeAll),
		Month: c.Query("month"),
	}
	if filter.Range == analytics.RangeCustom {
		start, err := parseDate(c.Query("start"))
		if err != nil {
			return filter, platform, err
		}
		end, err := parseDate(c.Query("end"))
		if err != nil {
			return filter, platform, err
		}
		filter.Start, filter.End = start, end
	}
	return filter, platform, nil
}

func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, errors.New("missing date parameter")
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, errors.New("invalid date " + value + ", expected YYYY-MM-DD")
	}
	return &t, nil
}

func periodView(p analytics.Period) dashboard.Period {
	view := dashboard.Period{Label: p.Label, StorageKey: p.StorageKey}
	if p.Bounded {
		start, end := p.Start, p.End
		view.Start, view.End = &start, &end
	}
	return view
}
