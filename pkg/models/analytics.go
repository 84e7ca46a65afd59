package models

// KPITotals holds the headline sums for a filtered set of posts
type KPITotals struct {
	PostCount      int     `json:"postCount"`
	Reach          int     `json:"reach"`
	Impressions    int     `json:"impressions"`
	Engagement     int     `json:"engagement"`
	EngagementRate float64 `json:"engagementRate"`
}

// TrendPoint is one day of the daily trend series. Days with zero posts
// produce no point; the series is sparse.
type TrendPoint struct {
	Date           string  `json:"date"`
	PostCount      int     `json:"postCount"`
	Reach          int     `json:"reach"`
	Impressions    int     `json:"impressions"`
	Engagement     int     `json:"engagement"`
	EngagementRate float64 `json:"engagementRate"`
}

// Summary bundles totals and the daily trend for one resolved window
type Summary struct {
	Totals     KPITotals    `json:"totals"`
	DailyTrend []TrendPoint `json:"dailyTrend"`
}

// HeatmapCell is one (weekday, hour) bucket of the posting-time heatmap.
// Weekday 0 is Sunday; hour is the local hour of day.
type HeatmapCell struct {
	PostCount       int     `json:"postCount"`
	Engagement      int     `json:"engagement"`
	Reach           int     `json:"reach"`
	InteractionRate float64 `json:"interactionRate"`
	AvgReach        float64 `json:"avgReach"`
	Score           float64 `json:"score"`
}

// Heatmap is the full 7x24 score grid plus the global maximum score used
// for color-intensity normalization.
type Heatmap struct {
	Cells    [7][24]HeatmapCell `json:"cells"`
	MaxScore float64            `json:"maxScore"`
}

// GrowthResult is the reconciled follower movement for one platform over
// one period
type GrowthResult struct {
	Start  int     `json:"start"`
	Gained int     `json:"gained"`
	Lost   int     `json:"lost"`
	Net    int     `json:"net"`
	End    int     `json:"end"`
	Rate   float64 `json:"rate"`
}

// FollowerGrowth holds the per-platform rows plus the combined total row
type FollowerGrowth struct {
	Facebook  GrowthResult `json:"facebook"`
	Instagram GrowthResult `json:"instagram"`
	Total     GrowthResult `json:"total"`
}

// TopPost is one row of the top-posts-by-engagement table
type TopPost struct {
	Permalink  string  `json:"permalink"`
	Platform   string  `json:"platform"`
	Content    string  `json:"content"`
	PostType   string  `json:"postType"`
	Engagement int     `json:"engagement"`
	Reach      int     `json:"reach"`
	Rate       float64 `json:"rate"`
}

// PostTypeStat aggregates engagement per post type
type PostTypeStat struct {
	PostType   string `json:"postType"`
	PostCount  int    `json:"postCount"`
	Engagement int    `json:"engagement"`
}

// PlatformShare is the per-platform share of the filtered post set
type PlatformShare struct {
	Platform  string  `json:"platform"`
	PostCount int     `json:"postCount"`
	Percent   float64 `json:"percent"`
}
