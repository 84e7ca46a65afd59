package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/meowmeowtoast/yangyu-report/internal/backup"
	"github.com/meowmeowtoast/yangyu-report/internal/preview"
	"github.com/meowmeowtoast/yangyu-report/internal/store"
	"github.com/meowmeowtoast/yangyu-report/pkg/api/dashboard"
	"github.com/meowmeowtoast/yangyu-report/pkg/logging"
	"github.com/meowmeowtoast/yangyu-report/pkg/models"
)

const maxBackupBytes = 64 << 20

type togglePostRequest struct {
	Permalink string `json:"permalink" binding:"required"`
	Enabled   *bool  `json:"enabled" binding:"required"`
}

type toggleDataSetRequest struct {
	DataSetID string `json:"dataSetId" binding:"required"`
	Enabled   *bool  `json:"enabled" binding:"required"`
}

// TogglePost flips one permalink's selection flag and re-derives the
// dataset flags
func (h *Handlers) TogglePost(c *gin.Context) {
	var req togglePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "permalink and enabled are required")
		return
	}

	selection, err := h.loadSelection(c.Request.Context())
	if err != nil {
		h.respondStoreError(c, err, "load selection")
		return
	}
	selection.Posts[req.Permalink] = *req.Enabled

	datasets, err := h.store.ListDataSets(c.Request.Context())
	if err != nil {
		h.respondStoreError(c, err, "list datasets")
		return
	}
	deriveDatasetFlags(datasets, &selection)

	if err := h.store.PutDocument(c.Request.Context(), store.KeySelection, selection); err != nil {
		h.respondStoreError(c, err, "save selection")
		return
	}
	c.JSON(http.StatusOK, selection)
}

// ToggleDataSet flips every post of one dataset at once
func (h *Handlers) ToggleDataSet(c *gin.Context) {
	var req toggleDataSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "dataSetId and enabled are required")
		return
	}

	datasets, err := h.store.ListDataSets(c.Request.Context())
	if err != nil {
		h.respondStoreError(c, err, "list datasets")
		return
	}

	var target *models.DataSet
	for i := range datasets {
		if datasets[i].ID == req.DataSetID {
			target = &datasets[i]
			break
		}
	}
	if target == nil {
		h.respondError(c, http.StatusNotFound, "dataset not found")
		return
	}

	selection, err := h.loadSelection(c.Request.Context())
	if err != nil {
		h.respondStoreError(c, err, "load selection")
		return
	}
	for _, p := range target.Posts {
		selection.Posts[p.Permalink] = *req.Enabled
	}
	deriveDatasetFlags(datasets, &selection)

	if err := h.store.PutDocument(c.Request.Context(), store.KeySelection, selection); err != nil {
		h.respondStoreError(c, err, "save selection")
		return
	}
	c.JSON(http.StatusOK, selection)
}

// PutMonthlyFollowers replaces the whole monthly delta map
func (h *Handlers) PutMonthlyFollowers(c *gin.Context) {
	monthly := map[string]models.MonthlyFollowerDelta{}
	if err := c.ShouldBindJSON(&monthly); err != nil {
		h.respondError(c, http.StatusBadRequest, "invalid monthly follower map")
		return
	}
	if err := h.store.PutDocument(c.Request.Context(), store.KeyMonthlyFollowers, monthly); err != nil {
		h.respondStoreError(c, err, "save monthly followers")
		return
	}
	c.JSON(http.StatusOK, dashboard.SuccessResponse{Success: true})
}

// PutBaseFollowers replaces the base follower counts
func (h *Handlers) PutBaseFollowers(c *gin.Context) {
	var base models.BaseFollowerData
	if err := c.ShouldBindJSON(&base); err != nil {
		h.respondError(c, http.StatusBadRequest, "invalid base follower data")
		return
	}
	if err := h.store.PutDocument(c.Request.Context(), store.KeyBaseFollowers, base); err != nil {
		h.respondStoreError(c, err, "save base followers")
		return
	}
	c.JSON(http.StatusOK, dashboard.SuccessResponse{Success: true})
}

// GetAnalysis returns the analysis note for one period storage key, empty
// when never saved
func (h *Handlers) GetAnalysis(c *gin.Context) {
	key := c.Param("key")
	var analysis models.AnalysisData
	err := h.store.GetDocument(c.Request.Context(), store.AnalysisKey(key), &analysis)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.respondStoreError(c, err, "load analysis")
		return
	}
	c.JSON(http.StatusOK, dashboard.AnalysisResponse{Key: key, Analysis: analysis})
}

// PutAnalysis saves an analysis note, last write wins
func (h *Handlers) PutAnalysis(c *gin.Context) {
	key := c.Param("key")
	var analysis models.AnalysisData
	if err := c.ShouldBindJSON(&analysis); err != nil {
		h.respondError(c, http.StatusBadRequest, "invalid analysis data")
		return
	}
	analysis.UpdatedAt = h.now()
	if err := h.store.PutDocument(c.Request.Context(), store.AnalysisKey(key), analysis); err != nil {
		h.respondStoreError(c, err, "save analysis")
		return
	}
	c.JSON(http.StatusOK, dashboard.AnalysisResponse{Key: key, Analysis: analysis})
}

// GetProfile returns the company profile, empty when never saved
func (h *Handlers) GetProfile(c *gin.Context) {
	var profile models.CompanyProfile
	err := h.store.GetDocument(c.Request.Context(), store.KeyCompanyProfile, &profile)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.respondStoreError(c, err, "load profile")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// PutProfile replaces the company profile
func (h *Handlers) PutProfile(c *gin.Context) {
	var profile models.CompanyProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		h.respondError(c, http.StatusBadRequest, "invalid profile")
		return
	}
	if err := h.store.PutDocument(c.Request.Context(), store.KeyCompanyProfile, profile); err != nil {
		h.respondStoreError(c, err, "save profile")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ExportBackup streams the full user data document
func (h *Handlers) ExportBackup(c *gin.Context) {
	ud, err := backup.Export(c.Request.Context(), h.store)
	if err != nil {
		h.respondStoreError(c, err, "export backup")
		return
	}
	c.JSON(http.StatusOK, ud)
}

// ImportBackup restores from a backup document, accepting both the
// current shape and the legacy flat-key shape
func (h *Handlers) ImportBackup(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBackupBytes))
	if err != nil {
		h.respondError(c, http.StatusBadRequest, "failed to read backup payload")
		return
	}

	ud, err := backup.Parse(raw)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	ud = backup.Sanitize(ud)

	if err := backup.Restore(c.Request.Context(), h.store, ud); err != nil {
		h.respondStoreError(c, err, "restore backup")
		return
	}

	posts := 0
	for _, ds := range ud.DataSets {
		posts += len(ds.Posts)
	}
	h.logger.WithFields(logging.Fields{
		"datasets": len(ud.DataSets),
		"posts":    posts,
		"analyses": len(ud.Analyses),
	}).Info("Backup restored")

	c.JSON(http.StatusOK, dashboard.SuccessResponse{Success: true, Data: gin.H{
		"dataSets": len(ud.DataSets),
		"posts":    posts,
	}})
}

// Preview resolves the og:image for a permalink, serving from the
// per-permalink cache unless refresh=true
func (h *Handlers) Preview(c *gin.Context) {
	permalink := c.Query("permalink")
	if permalink == "" {
		h.respondError(c, http.StatusBadRequest, "permalink is required")
		return
	}
	refresh := c.DefaultQuery("refresh", "false") == "true"

	cached := h.preview.Cached(permalink) && !refresh
	image, err := h.preview.ImageURL(c.Request.Context(), permalink, refresh)
	if err != nil {
		if errors.Is(err, preview.ErrNoImage) {
			h.respondError(c, http.StatusNotFound, err.Error())
			return
		}
		h.respondError(c, http.StatusBadGateway, "failed to fetch preview")
		return
	}

	c.JSON(http.StatusOK, dashboard.PreviewResponse{
		Permalink: permalink,
		ImageURL:  image,
		Cached:    cached,
	})
}
