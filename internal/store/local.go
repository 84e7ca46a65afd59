package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/meowmeowtoast/yangyu-report/internal/metrics"
	"github.com/meowmeowtoast/yangyu-report/pkg/logging"
	"github.com/meowmeowtoast/yangyu-report/pkg/models"
)

// LocalStore keeps everything in a single-file SQLite database. It is the
// local-use counterpart of PostgresStore and implements the same interface.
type LocalStore struct {
	db      *gorm.DB
	metrics *metrics.Metrics
	logger  logging.Logger
}

type datasetModel struct {
	ID         string `gorm:"primaryKey"`
	Name       string
	UploadedAt time.Time
	FileNames  string // JSON-encoded []string
}

func (datasetModel) TableName() string { return "datasets" }

type postModel struct {
	ID              uint   `gorm:"primaryKey;autoIncrement"`
	DatasetID       string `gorm:"index"`
	Permalink       string `gorm:"index"`
	Platform        string
	Content         string
	PublishTime     time.Time `gorm:"index"`
	PostType        string
	Likes           int
	Comments        int
	Shares          int
	Saves           int
	Reach           int
	Impressions     int
	TotalEngagement int
}

func (postModel) TableName() string { return "posts" }

type documentModel struct {
	Key       string `gorm:"primaryKey"`
	Value     []byte
	UpdatedAt time.Time
}

func (documentModel) TableName() string { return "documents" }

// NewLocalStore opens (creating if needed) the SQLite database at path and
// migrates the schema. m may be nil.
func NewLocalStore(path string, m *metrics.Metrics, logger logging.Logger) (*LocalStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}
	if err := db.AutoMigrate(&datasetModel{}, &postModel{}, &documentModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate local database: %w", err)
	}

	logger.WithField("path", path).Info("Local database opened")
	return &LocalStore{db: db, metrics: m, logger: logger}, nil
}

func (s *LocalStore) observe(queryType string, start time.Time, err *error) {
	s.metrics.ObserveDBQuery(queryType, time.Since(start), *err)
}

func (s *LocalStore) SaveDataSet(ctx context.Context, ds models.DataSet) (err error) {
	defer s.observe("save_dataset", time.Now(), &err)

	dm, pms, err := toDatasetModel(ds)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(dm).Error; err != nil {
			return fmt.Errorf("failed to insert dataset: %w", err)
		}
		if len(pms) > 0 {
			if err := tx.Create(&pms).Error; err != nil {
				return fmt.Errorf("failed to insert posts: %w", err)
			}
		}
		return nil
	})
}

func (s *LocalStore) ListDataSets(ctx context.Context) (_ []models.DataSet, err error) {
	defer s.observe("list_datasets", time.Now(), &err)

	var dms []datasetModel
	if err := s.db.WithContext(ctx).Order("uploaded_at").Find(&dms).Error; err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}

	var pms []postModel
	if err := s.db.WithContext(ctx).Order("publish_time").Find(&pms).Error; err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	byDataset := make(map[string][]models.Post)
	for _, pm := range pms {
		byDataset[pm.DatasetID] = append(byDataset[pm.DatasetID], fromPostModel(pm))
	}

	datasets := make([]models.DataSet, 0, len(dms))
	for _, dm := range dms {
		ds, err := fromDatasetModel(dm)
		if err != nil {
			return nil, err
		}
		ds.Posts = byDataset[dm.ID]
		if ds.Posts == nil {
			ds.Posts = []models.Post{}
		}
		datasets = append(datasets, ds)
	}
	return datasets, nil
}

func (s *LocalStore) DeleteDataSet(ctx context.Context, id string) (err error) {
	defer s.observe("delete_dataset", time.Now(), &err)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&datasetModel{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete dataset: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Delete(&postModel{}, "dataset_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete dataset posts: %w", err)
		}
		return nil
	})
}

func (s *LocalStore) ClearDataSets(ctx context.Context) (err error) {
	defer s.observe("clear_datasets", time.Now(), &err)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&postModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear posts: %w", err)
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&datasetModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear datasets: %w", err)
		}
		return nil
	})
}

func (s *LocalStore) DeletePostsInRange(ctx context.Context, start, end time.Time) (err error) {
	defer s.observe("delete_posts_in_range", time.Now(), &err)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&postModel{}, "publish_time >= ? AND publish_time <= ?", start, end).Error; err != nil {
			return fmt.Errorf("failed to delete posts in range: %w", err)
		}
		if err := tx.Delete(&datasetModel{},
			"NOT EXISTS (SELECT 1 FROM posts WHERE posts.dataset_id = datasets.id)").Error; err != nil {
			return fmt.Errorf("failed to delete emptied datasets: %w", err)
		}
		return nil
	})
}

func (s *LocalStore) GetDocument(ctx context.Context, key string, out interface{}) (err error) {
	defer s.observe("get_document", time.Now(), &err)

	var dm documentModel
	err = s.db.WithContext(ctx).First(&dm, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get document %s: %w", key, err)
	}
	return json.Unmarshal(dm.Value, out)
}

func (s *LocalStore) PutDocument(ctx context.Context, key string, value interface{}) (err error) {
	defer s.observe("put_document", time.Now(), &err)

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", key, err)
	}
	dm := documentModel{Key: key, Value: raw, UpdatedAt: time.Now()}
	if err := s.db.WithContext(ctx).Save(&dm).Error; err != nil {
		return fmt.Errorf("failed to put document %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) ListDocumentKeys(ctx context.Context, prefix string) (_ []string, err error) {
	defer s.observe("list_document_keys", time.Now(), &err)

	keys := []string{}
	err = s.db.WithContext(ctx).Model(&documentModel{}).
		Where("key LIKE ?", prefix+"%").Order("key").Pluck("key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list document keys: %w", err)
	}
	return keys, nil
}

func (s *LocalStore) DeleteDocuments(ctx context.Context, prefix string) (err error) {
	defer s.observe("delete_documents", time.Now(), &err)

	if err = s.db.WithContext(ctx).Delete(&documentModel{}, "key LIKE ?", prefix+"%").Error; err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}

func (s *LocalStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return err
	}
	s.metrics.SetDBConnections("sqlite", sqlDB.Stats().OpenConnections)
	return nil
}

func (s *LocalStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toDatasetModel(ds models.DataSet) (*datasetModel, []postModel, error) {
	fileNames, err := json.Marshal(ds.FileNames)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal file names: %w", err)
	}
	dm := &datasetModel{
		ID:         ds.ID,
		Name:       ds.Name,
		UploadedAt: ds.UploadedAt,
		FileNames:  string(fileNames),
	}
	pms := make([]postModel, 0, len(ds.Posts))
	for _, p := range ds.Posts {
		pms = append(pms, postModel{
			DatasetID:       ds.ID,
			Permalink:       p.Permalink,
			Platform:        string(p.Platform),
			Content:         p.Content,
			PublishTime:     p.PublishTime,
			PostType:        p.PostType,
			Likes:           p.Likes,
			Comments:        p.Comments,
			Shares:          p.Shares,
			Saves:           p.Saves,
			Reach:           p.Reach,
			Impressions:     p.Impressions,
			TotalEngagement: p.TotalEngagement,
		})
	}
	return dm, pms, nil
}

func fromDatasetModel(dm datasetModel) (models.DataSet, error) {
	ds := models.DataSet{
		ID:         dm.ID,
		Name:       dm.Name,
		UploadedAt: dm.UploadedAt,
		FileNames:  []string{},
	}
	if dm.FileNames != "" {
		if err := json.Unmarshal([]byte(dm.FileNames), &ds.FileNames); err != nil {
			return ds, fmt.Errorf("failed to unmarshal file names: %w", err)
		}
	}
	return ds, nil
}

func fromPostModel(pm postModel) models.Post {
	return models.Post{
		Platform:        models.Platform(pm.Platform),
		Content:         pm.Content,
		PublishTime:     pm.PublishTime,
		PostType:        pm.PostType,
		Permalink:       pm.Permalink,
		Likes:           pm.Likes,
		Comments:        pm.Comments,
		Shares:          pm.Shares,
		Saves:           pm.Saves,
		Reach:           pm.Reach,
		Impressions:     pm.Impressions,
		TotalEngagement: pm.TotalEngagement,
	}
}
