package ingest

// Header names from the Meta CSV exports. Exports are localized (zh-TW) and
// the column set drifts between export versions, so every metric carries an
// ordered list of candidate headers. The first candidate with a non-empty
// cell wins.

// Headers shared by both platforms
const (
	headerPublishTime = "發佈時間"
	headerReach       = "觸及人數"
	headerPostType    = "貼文類型"
	headerPermalink   = "永久連結"
)

// Headers used for platform detection
const (
	headerFBPageName    = "粉絲專頁名稱"
	headerFBAccountName = "帳號名稱"
	headerIGUsername    = "帳號用戶名稱"
	headerIGLikes       = "按讚數"
)

// defaultPostType is used when the export carries no post type column
const defaultPostType = "N/A"

// fieldAliases lists the candidate headers per metric, in priority order
type fieldAliases struct {
	Likes       []string
	Comments    []string
	Shares      []string
	Saves       []string
	Impressions []string
	Content     []string
}

var facebookAliases = fieldAliases{
	Likes:       []string{"心情數", "心情", "按讚數"},
	Comments:    []string{"留言", "留言數", "資料留言"},
	Shares:      []string{"分享"},
	Saves:       []string{"儲存次數"},
	Impressions: []string{"觀看次數", "瀏覽次數"},
	Content:     []string{"說明", "標題"},
}

var instagramAliases = fieldAliases{
	Likes:       []string{"按讚數"},
	Comments:    []string{"留言數"},
	Shares:      []string{"分享"},
	Saves:       []string{"儲存次數"},
	Impressions: []string{"瀏覽次數"},
	Content:     []string{"說明"},
}

// publishTimeLayouts are tried in order when parsing the publish time column.
// The exports have used both dashed and slashed date formats, with and
// without seconds.
var publishTimeLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006-01-02",
	"2006/01/02",
}
