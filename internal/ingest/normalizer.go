package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/meowmeowtoast/yangyu-report/pkg/models"
)

// ErrUnrecognizedSchema is returned when a file's header set matches neither
// the Facebook nor the Instagram export schema.
var ErrUnrecognizedSchema = errors.New("unrecognized CSV schema")

// File is one uploaded CSV, already decoded into a header row and data rows
type File struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// FileResult is the outcome of normalizing one recognized file
type FileResult struct {
	FileName string
	Platform models.Platform
	Posts    []models.Post
	Dropped  int
}

// FileError is a per-file failure inside a batch
type FileError struct {
	FileName string
	Err      error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.FileName, e.Err)
}

// BatchResult is the outcome of a multi-file upload. Failed files are
// collected in Errors; the batch succeeds partially.
type BatchResult struct {
	Results []*FileResult
	Errors  []FileError
}

// Normalizer maps raw CSV rows into canonical post records. Publish times
// without an explicit offset are interpreted in loc.
type Normalizer struct {
	loc *time.Location
}

// New creates a normalizer for the given reporting timezone
func New(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	return &Normalizer{loc: loc}
}

// DetectPlatform inspects the header set and reports which export schema it
// matches. Detection is header-based, never filename-based.
func DetectPlatform(headers []string) (models.Platform, bool) {
	set := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		set[strings.TrimSpace(h)] = struct{}{}
	}
	has := func(name string) bool {
		_, ok := set[name]
		return ok
	}

	if (has(headerFBPageName) || has(headerFBAccountName)) && has(headerPermalink) {
		return models.PlatformFacebook, true
	}
	if has(headerIGUsername) && has(headerIGLikes) {
		return models.PlatformInstagram, true
	}
	return "", false
}

// Normalize converts one file's rows into canonical posts. Rows with an
// unparseable publish time or a permalink that is not an http(s) URL are
// dropped. A recognized file that yields zero valid posts is an error.
func (n *Normalizer) Normalize(fileName string, headers []string, rows [][]string) (*FileResult, error) {
	if len(headers) == 0 {
		return nil, FileError{FileName: fileName, Err: errors.New("missing header row")}
	}

	platform, ok := DetectPlatform(headers)
	if !ok {
		return nil, FileError{FileName: fileName, Err: ErrUnrecognizedSchema}
	}

	aliases := facebookAliases
	if platform == models.PlatformInstagram {
		aliases = instagramAliases
	}

	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[strings.TrimSpace(h)] = i
	}

	result := &FileResult{FileName: fileName, Platform: platform}
	for _, row := range rows {
		cell := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		publishTime, ok := n.parsePublishTime(cell(headerPublishTime))
		if !ok {
			result.Dropped++
			continue
		}
		permalink := cell(headerPermalink)
		if !strings.HasPrefix(permalink, "http") {
			result.Dropped++
			continue
		}

		post := models.Post{
			Platform:    platform,
			PublishTime: publishTime,
			Permalink:   permalink,
			Content:     firstText(cell, aliases.Content),
			PostType:    defaultPostType,
			Likes:       firstCount(cell, aliases.Likes),
			Comments:    firstCount(cell, aliases.Comments),
			Shares:      firstCount(cell, aliases.Shares),
			Saves:       firstCount(cell, aliases.Saves),
			Impressions: firstCount(cell, aliases.Impressions),
			Reach:       parseCount(cell(headerReach)),
		}
		if v := cell(headerPostType); v != "" {
			post.PostType = v
		}
		post.TotalEngagement = post.Likes + post.Comments + post.Shares + post.Saves

		result.Posts = append(result.Posts, post)
	}

	if len(result.Posts) == 0 {
		return nil, FileError{FileName: fileName, Err: errors.New("no valid posts in file")}
	}
	return result, nil
}

// ProcessFiles normalizes a whole upload batch. Per-file errors are
// collected and the rest of the batch is accepted. Permalinks are unique
// within the batch output; repeats within the batch are dropped.
func (n *Normalizer) ProcessFiles(files []File) *BatchResult {
	batch := &BatchResult{}
	seen := make(map[string]struct{})

	for _, f := range files {
		res, err := n.Normalize(f.Name, f.Headers, f.Rows)
		if err != nil {
			var fe FileError
			if errors.As(err, &fe) {
				batch.Errors = append(batch.Errors, fe)
			} else {
				batch.Errors = append(batch.Errors, FileError{FileName: f.Name, Err: err})
			}
			continue
		}

		kept := res.Posts[:0]
		for _, p := range res.Posts {
			if _, dup := seen[p.Permalink]; dup {
				res.Dropped++
				continue
			}
			seen[p.Permalink] = struct{}{}
			kept = append(kept, p)
		}
		res.Posts = kept
		batch.Results = append(batch.Results, res)
	}
	return batch
}

// ReadCSV decodes one CSV stream into a header row and data rows. A UTF-8
// BOM on the first header is stripped; the Meta exports carry one.
func ReadCSV(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}

	headers := records[0]
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}
	return headers, records[1:], nil
}

func (n *Normalizer) parsePublishTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range publishTimeLayouts {
		if strings.Contains(layout, "Z07:00") {
			if t, err := time.Parse(layout, value); err == nil {
				return t, true
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, value, n.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// firstCount walks the alias chain and parses the first non-empty cell
func firstCount(cell func(string) string, candidates []string) int {
	for _, name := range candidates {
		if v := cell(name); v != "" {
			return parseCount(v)
		}
	}
	return 0
}

func firstText(cell func(string) string, candidates []string) string {
	for _, name := range candidates {
		if v := cell(name); v != "" {
			return v
		}
	}
	return ""
}

// parseCount parses a metric cell. Thousands separators are tolerated;
// unparseable or negative input counts as 0.
func parseCount(value string) int {
	cleaned := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if cleaned == "" {
		return 0
	}
	n := 0
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			if n == 0 {
				return 0
			}
			break
		}
		n = n*10 + int(r-'0')
	}
	return n
}
