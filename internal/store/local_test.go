package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meowmeowtoast/yangyu-report/internal/metrics"
	"github.com/meowmeowtoast/yangyu-report/pkg/logging"
	"github.com/meowmeowtoast/yangyu-report/pkg/models"
	"github.com/meowmeowtoast/yangyu-report/pkg/monitoring"
)

func newLocalStore(t *testing.T) *LocalStore {
	s, err := NewLocalStore(":memory:", nil, logging.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func marchDataSet(id string) models.DataSet {
	return models.DataSet{
		ID:         id,
		Name:       "march export",
		UploadedAt: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
		FileNames:  []string{"fb.csv", "ig.csv"},
		Posts: []models.Post{
			{
				Platform:        models.PlatformFacebook,
				Permalink:       "https://fb.com/p/" + id,
				PublishTime:     time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
				PostType:        "相片",
				Likes:           5,
				Reach:           100,
				TotalEngagement: 5,
			},
		},
	}
}

func TestLocalStore_SaveAndList(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveDataSet(ctx, marchDataSet("ds-1")))

	datasets, err := s.ListDataSets(ctx)
	require.NoError(t, err)
	require.Len(t, datasets, 1)

	ds := datasets[0]
	assert.Equal(t, "ds-1", ds.ID)
	assert.Equal(t, []string{"fb.csv", "ig.csv"}, ds.FileNames)
	require.Len(t, ds.Posts, 1)
	assert.Equal(t, "https://fb.com/p/ds-1", ds.Posts[0].Permalink)
	assert.True(t, ds.Posts[0].PublishTime.Equal(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)))
}

func TestLocalStore_DeleteDataSet(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveDataSet(ctx, marchDataSet("ds-1")))
	require.NoError(t, s.DeleteDataSet(ctx, "ds-1"))

	datasets, err := s.ListDataSets(ctx)
	require.NoError(t, err)
	assert.Empty(t, datasets)

	assert.True(t, errors.Is(s.DeleteDataSet(ctx, "ds-1"), ErrNotFound))
}

func TestLocalStore_ClearDataSets(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveDataSet(ctx, marchDataSet("ds-1")))
	require.NoError(t, s.SaveDataSet(ctx, marchDataSet("ds-2")))
	require.NoError(t, s.ClearDataSets(ctx))

	datasets, err := s.ListDataSets(ctx)
	require.NoError(t, err)
	assert.Empty(t, datasets)
}

func TestLocalStore_DeletePostsInRange(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()

	inRange := marchDataSet("ds-1")
	outOfRange := marchDataSet("ds-2")
	outOfRange.Posts[0].PublishTime = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveDataSet(ctx, inRange))
	require.NoError(t, s.SaveDataSet(ctx, outOfRange))

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)
	require.NoError(t, s.DeletePostsInRange(ctx, start, end))

	// ds-1 lost its only post and is removed with it
	datasets, err := s.ListDataSets(ctx)
	require.NoError(t, err)
	require.Len(t, datasets, 1)
	assert.Equal(t, "ds-2", datasets[0].ID)
}

func TestLocalStore_Documents(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()

	base := models.BaseFollowerData{FBBase: 100, IGBase: 50}
	require.NoError(t, s.PutDocument(ctx, KeyBaseFollowers, base))

	var got models.BaseFollowerData
	require.NoError(t, s.GetDocument(ctx, KeyBaseFollowers, &got))
	assert.Equal(t, base, got)

	// last write wins
	base.FBBase = 120
	require.NoError(t, s.PutDocument(ctx, KeyBaseFollowers, base))
	require.NoError(t, s.GetDocument(ctx, KeyBaseFollowers, &got))
	assert.Equal(t, 120, got.FBBase.Int())

	assert.True(t, errors.Is(s.GetDocument(ctx, "missing", &got), ErrNotFound))
}

func TestLocalStore_RecordsQueryMetrics(t *testing.T) {
	collector := monitoring.NewMetricsCollector("store-metrics-test", "test", "none")
	m := metrics.New(collector)

	s, err := NewLocalStore(":memory:", m, logging.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	require.NoError(t, s.SaveDataSet(ctx, marchDataSet("ds-1")))
	_, err = s.ListDataSets(ctx)
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.DBQueries.WithLabelValues("save_dataset", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DBQueries.WithLabelValues("list_datasets", "success")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.DBQueries.WithLabelValues("save_dataset", "error")))

	var missing models.BaseFollowerData
	require.Error(t, s.GetDocument(ctx, "missing", &missing))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DBQueries.WithLabelValues("get_document", "error")))

	require.NoError(t, s.Ping(ctx))
	assert.Greater(t, testutil.ToFloat64(m.DBConnections.WithLabelValues("sqlite")), float64(0))
}

func TestLocalStore_AnalysisKeys(t *testing.T) {
	s := newLocalStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutDocument(ctx, AnalysisKey("2024-02"), models.AnalysisData{Content: "feb"}))
	require.NoError(t, s.PutDocument(ctx, AnalysisKey("all-time"), models.AnalysisData{Content: "all"}))
	require.NoError(t, s.PutDocument(ctx, KeyCompanyProfile, models.CompanyProfile{Name: "acme"}))

	keys, err := s.ListDocumentKeys(ctx, AnalysisKeyPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{"analysis:2024-02", "analysis:all-time"}, keys)

	require.NoError(t, s.DeleteDocuments(ctx, AnalysisKeyPrefix))
	keys, err = s.ListDocumentKeys(ctx, AnalysisKeyPrefix)
	require.NoError(t, err)
	assert.Empty(t, keys)

	// profile untouched by prefix delete
	var profile models.CompanyProfile
	require.NoError(t, s.GetDocument(ctx, KeyCompanyProfile, &profile))
	assert.Equal(t, "acme", profile.Name)
}
