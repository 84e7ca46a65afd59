package store

import (
	"context"
	"errors"
	"time"

	"github.com/meowmeowtoast/yangyu-report/pkg/models"
)

// ErrNotFound is returned when a dataset or document does not exist
var ErrNotFound = errors.New("not found")

// Document keys. Settings-like state (selection, follower data, profile,
// analysis notes) lives in a key-value document table with last-write-wins
// semantics; datasets and posts are relational.
const (
	KeySelection        = "selectionState"
	KeyMonthlyFollowers = "monthlyFollowers"
	KeyBaseFollowers    = "baseFollowers"
	KeyCompanyProfile   = "companyProfile"
	AnalysisKeyPrefix   = "analysis:"
)

// Store is the persistence boundary. Two backends exist: Postgres for the
// hosted deployment and a single-file SQLite database for local use.
type Store interface {
	SaveDataSet(ctx context.Context, ds models.DataSet) error
	ListDataSets(ctx context.Context) ([]models.DataSet, error)
	DeleteDataSet(ctx context.Context, id string) error
	ClearDataSets(ctx context.Context) error
	// DeletePostsInRange drops posts publishing inside [start, end] and
	// removes datasets emptied by the deletion.
	DeletePostsInRange(ctx context.Context, start, end time.Time) error

	GetDocument(ctx context.Context, key string, out interface{}) error
	PutDocument(ctx context.Context, key string, value interface{}) error
	ListDocumentKeys(ctx context.Context, prefix string) ([]string, error)
	DeleteDocuments(ctx context.Context, prefix string) error

	Ping(ctx context.Context) error
	Close() error
}

// AnalysisKey builds the document key for one period's analysis note
func AnalysisKey(storageKey string) string {
	return AnalysisKeyPrefix + storageKey
}
