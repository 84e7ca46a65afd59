package models

import "time"

// Platform identifies the source network of a post
type Platform string

const (
	PlatformFacebook  Platform = "Facebook"
	PlatformInstagram Platform = "Instagram"
	PlatformAll       Platform = "All"
)

// Post is one normalized social-media publication record. Immutable once
// created; the permalink doubles as its unique key across the whole system.
type Post struct {
	Platform        Platform  `json:"platform"`
	Content         string    `json:"content"`
	PublishTime     time.Time `json:"publishTime"`
	PostType        string    `json:"postType"`
	Permalink       string    `json:"permalink"`
	Likes           int       `json:"likes"`
	Comments        int       `json:"comments"`
	Shares          int       `json:"shares"`
	Saves           int       `json:"saves"`
	Reach           int       `json:"reach"`
	Impressions     int       `json:"impressions"`
	TotalEngagement int       `json:"totalEngagement"`
}

// DataSet is one upload batch of posts plus its source filenames.
// Immutable after creation except for wholesale deletion.
type DataSet struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	UploadedAt time.Time `json:"uploadedAt"`
	FileNames  []string  `json:"fileNames"`
	Posts      []Post    `json:"posts"`
}

// SelectionState is a sparse inclusion filter over all known posts. The
// permalink map is the source of truth; the dataset map is a derived
// convenience (true iff at least one of the dataset's posts is enabled).
type SelectionState struct {
	DataSets map[string]bool `json:"dataSets"`
	Posts    map[string]bool `json:"posts"`
}
