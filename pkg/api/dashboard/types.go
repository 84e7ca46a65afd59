package dashboard

import (
	"time"

	"github.com/meowmeowtoast/yangyu-report/pkg/models"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// DataSetInfo is the list view of one dataset, without its posts
type DataSetInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	UploadedAt time.Time `json:"uploadedAt"`
	FileNames  []string  `json:"fileNames"`
	PostCount  int       `json:"postCount"`
	Enabled    bool      `json:"enabled"`
}

// FileError is a per-file ingest failure surfaced to the user
type FileError struct {
	FileName string `json:"fileName"`
	Error    string `json:"error"`
}

// UploadResponse reports the outcome of a multi-file CSV upload. Uploads
// succeed partially: failed files are listed, accepted files become the
// dataset. Duplicate permalinks already present in other datasets are
// surfaced, never auto-resolved.
type UploadResponse struct {
	DataSet    *DataSetInfo `json:"dataSet,omitempty"`
	FileErrors []FileError  `json:"fileErrors,omitempty"`
	Duplicates []string     `json:"duplicates,omitempty"`
}

// Period is the resolved analysis window echoed back on every analytics
// response
type Period struct {
	Start      *time.Time `json:"start,omitempty"`
	End        *time.Time `json:"end,omitempty"`
	Label      string     `json:"label"`
	StorageKey string     `json:"storageKey"`
}

// KPIDelta pairs a current-period value with its percent change against the
// previous period of equal duration
type KPIDelta struct {
	Current   float64  `json:"current"`
	Previous  float64  `json:"previous"`
	PctChange *float64 `json:"pctChange,omitempty"`
}

// OverviewResponse is the KPI headline view for one resolved window
type OverviewResponse struct {
	Period         Period           `json:"period"`
	Totals         models.KPITotals `json:"totals"`
	PostCount      KPIDelta         `json:"postCountDelta"`
	Reach          KPIDelta         `json:"reachDelta"`
	Impressions    KPIDelta         `json:"impressionsDelta"`
	Engagement     KPIDelta         `json:"engagementDelta"`
	EngagementRate KPIDelta         `json:"engagementRateDelta"`
}

// TrendResponse is the daily trend series for one resolved window
type TrendResponse struct {
	Period Period              `json:"period"`
	Trend  []models.TrendPoint `json:"trend"`
}

// HeatmapResponse is the 7x24 posting-time score grid
type HeatmapResponse struct {
	Period  Period         `json:"period"`
	Heatmap models.Heatmap `json:"heatmap"`
}

// FollowersResponse holds the reconciled follower growth rows
type FollowersResponse struct {
	Period Period                `json:"period"`
	Growth models.FollowerGrowth `json:"growth"`
}

// TopPostsResponse lists the highest-engagement posts in the window
type TopPostsResponse struct {
	Period Period           `json:"period"`
	Posts  []models.TopPost `json:"posts"`
}

// PostTypesResponse aggregates engagement per post type
type PostTypesResponse struct {
	Period Period                `json:"period"`
	Types  []models.PostTypeStat `json:"types"`
}

// PlatformShareResponse is the per-platform share of posts in the window
type PlatformShareResponse struct {
	Period Period                 `json:"period"`
	Share  []models.PlatformShare `json:"share"`
}

// PreviewResponse is the resolved preview image for one permalink
type PreviewResponse struct {
	Permalink string `json:"permalink"`
	ImageURL  string `json:"imageUrl"`
	Cached    bool   `json:"cached"`
}

// AnalysisResponse is one analysis note keyed by its period storage key
type AnalysisResponse struct {
	Key      string              `json:"key"`
	Analysis models.AnalysisData `json:"analysis"`
}
