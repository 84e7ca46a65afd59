package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/meowmeowtoast/yangyu-report/internal/ingest"
	"github.com/meowmeowtoast/yangyu-report/pkg/api/dashboard"
	"github.com/meowmeowtoast/yangyu-report/pkg/logging"
	"github.com/meowmeowtoast/yangyu-report/pkg/models"
)

// UploadDataSets accepts a multipart CSV upload and creates one dataset
// from the files that normalize successfully. Per-file failures are
// reported alongside the accepted files; the upload only fails outright
// when every file does.
func (h *Handlers) UploadDataSets(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		h.respondError(c, http.StatusBadRequest, "expected multipart form upload")
		return
	}
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		h.respondError(c, http.StatusBadRequest, "no files in upload")
		return
	}

	start := time.Now()
	files := make([]ingest.File, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			h.respondError(c, http.StatusBadRequest, "failed to read "+fh.Filename)
			return
		}
		headers, rows, err := ingest.ReadCSV(f)
		_ = f.Close()
		if err != nil {
			h.respondError(c, http.StatusBadRequest, "failed to parse "+fh.Filename)
			return
		}
		files = append(files, ingest.File{Name: fh.Filename, Headers: headers, Rows: rows})
	}

	batch := h.normalizer.ProcessFiles(files)
	h.recordIngest(batch, time.Since(start))

	response := dashboard.UploadResponse{}
	for _, fe := range batch.Errors {
		response.FileErrors = append(response.FileErrors, dashboard.FileError{
			FileName: fe.FileName,
			Error:    fe.Err.Error(),
		})
	}

	if len(batch.Results) == 0 {
		c.JSON(http.StatusBadRequest, response)
		return
	}

	ds := models.DataSet{
		ID:         uuid.New().String(),
		UploadedAt: h.now(),
		Posts:      []models.Post{},
	}
	for _, res := range batch.Results {
		ds.FileNames = append(ds.FileNames, res.FileName)
		ds.Posts = append(ds.Posts, res.Posts...)
	}
	ds.Name = strings.Join(ds.FileNames, ", ")

	// surface permalinks already present in other datasets; duplicates
	// are kept, never auto-resolved
	existing, err := h.store.ListDataSets(c.Request.Context())
	if err != nil {
		h.respondStoreError(c, err, "list datasets")
		return
	}
	known := map[string]struct{}{}
	for _, e := range existing {
		for _, p := range e.Posts {
			known[p.Permalink] = struct{}{}
		}
	}
	for _, p := range ds.Posts {
		if _, dup := known[p.Permalink]; dup {
			response.Duplicates = append(response.Duplicates, p.Permalink)
		}
	}

	if err := h.store.SaveDataSet(c.Request.Context(), ds); err != nil {
		h.respondStoreError(c, err, "save dataset")
		return
	}
	if err := h.syncSelection(c.Request.Context(), append(existing, ds)); err != nil {
		h.respondStoreError(c, err, "sync selection")
		return
	}

	h.logger.WithFields(logging.Fields{
		"dataset_id": ds.ID,
		"files":      len(ds.FileNames),
		"posts":      len(ds.Posts),
		"duplicates": len(response.Duplicates),
	}).Info("Dataset uploaded")

	info := datasetInfo(ds, true)
	response.DataSet = &info
	c.JSON(http.StatusOK, response)
}

// ListDataSets returns the dataset catalog without post bodies
func (h *Handlers) ListDataSets(c *gin.Context) {
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

	infos := make([]dashboard.DataSetInfo, 0, len(datasets))
	for _, ds := range datasets {
		enabled, ok := selection.DataSets[ds.ID]
		infos = append(infos, datasetInfo(ds, !ok || enabled))
	}
	c.JSON(http.StatusOK, infos)
}

// DeleteDataSet removes one dataset and its posts
func (h *Handlers) DeleteDataSet(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.DeleteDataSet(c.Request.Context(), id); err != nil {
		h.respondStoreError(c, err, "delete dataset")
		return
	}
	h.resyncAfterMutation(c)
}

// ClearDataSets removes every dataset
func (h *Handlers) ClearDataSets(c *gin.Context) {
	if err := h.store.ClearDataSets(c.Request.Context()); err != nil {
		h.respondStoreError(c, err, "clear datasets")
		return
	}
	h.resyncAfterMutation(c)
}

// DeletePostsInRange drops all posts publishing inside [start, end of
// end-day] and removes datasets emptied by the deletion
func (h *Handlers) DeletePostsInRange(c *gin.Context) {
	startDate, err := parseDate(c.Query("start"))
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	endDate, err := parseDate(c.Query("end"))
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, h.loc)
	end := time.Date(endDate.Year(), endDate.Month(), endDate.Day(), 23, 59, 59, int(999*time.Millisecond), h.loc)
	if end.Before(start) {
		h.respondError(c, http.StatusBadRequest, "end precedes start")
		return
	}

	if err := h.store.DeletePostsInRange(c.Request.Context(), start, end); err != nil {
		h.respondStoreError(c, err, "delete posts in range")
		return
	}
	h.resyncAfterMutation(c)
}

func (h *Handlers) resyncAfterMutation(c *gin.Context) {
	datasets, err := h.store.ListDataSets(c.Request.Context())
	if err != nil {
		h.respondStoreError(c, err, "list datasets")
		return
	}
	if err := h.syncSelection(c.Request.Context(), datasets); err != nil {
		h.respondStoreError(c, err, "sync selection")
		return
	}
	c.JSON(http.StatusOK, dashboard.SuccessResponse{Success: true})
}

func (h *Handlers) recordIngest(batch *ingest.BatchResult, elapsed time.Duration) {
	if h.metrics == nil {
		return
	}
	for _, res := range batch.Results {
		platform := string(res.Platform)
		h.metrics.IngestFiles.WithLabelValues(platform, "ok").Inc()
		h.metrics.IngestRows.WithLabelValues(platform, "kept").Add(float64(len(res.Posts)))
		h.metrics.IngestRows.WithLabelValues(platform, "dropped").Add(float64(res.Dropped))
		h.metrics.IngestDuration.WithLabelValues(platform).Observe(elapsed.Seconds())
	}
	for range batch.Errors {
		h.metrics.IngestFiles.WithLabelValues("unknown", "error").Inc()
	}
}

func datasetInfo(ds models.DataSet, enabled bool) dashboard.DataSetInfo {
	return dashboard.DataSetInfo{
		ID:         ds.ID,
		Name:       ds.Name,
		UploadedAt: ds.UploadedAt,
		FileNames:  ds.FileNames,
		PostCount:  len(ds.Posts),
		Enabled:    enabled,
	}
}
