package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/meowmeowtoast/yangyu-report/internal/metrics"
	"github.com/meowmeowtoast/yangyu-report/pkg/database"
	"github.com/meowmeowtoast/yangyu-report/pkg/logging"
	"github.com/meowmeowtoast/yangyu-report/pkg/models"
)

// PostgresStore persists datasets relationally and settings documents in a
// jsonb key-value table.
type PostgresStore struct {
	db      database.PostgresConn
	metrics *metrics.Metrics
	logger  logging.Logger
}

// NewPostgresStore wraps an existing database connection. m may be nil.
func NewPostgresStore(db database.PostgresConn, m *metrics.Metrics, logger logging.Logger) *PostgresStore {
	return &PostgresStore{db: db, metrics: m, logger: logger}
}

func (s *PostgresStore) observe(queryType string, start time.Time, err *error) {
	s.metrics.ObserveDBQuery(queryType, time.Since(start), *err)
}

// EnsureSchema creates the tables if they do not exist yet
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS datasets (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			uploaded_at TIMESTAMPTZ NOT NULL,
			file_names TEXT[] NOT NULL DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS posts (
			dataset_id UUID NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
			permalink TEXT NOT NULL,
			platform TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			publish_time TIMESTAMPTZ NOT NULL,
			post_type TEXT NOT NULL DEFAULT 'N/A',
			likes INT NOT NULL DEFAULT 0,
			comments INT NOT NULL DEFAULT 0,
			shares INT NOT NULL DEFAULT 0,
			saves INT NOT NULL DEFAULT 0,
			reach INT NOT NULL DEFAULT 0,
			impressions INT NOT NULL DEFAULT 0,
			total_engagement INT NOT NULL DEFAULT 0,
			PRIMARY KEY (dataset_id, permalink)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_publish_time ON posts (publish_time)`,
		`CREATE TABLE IF NOT EXISTS documents (
			key TEXT PRIMARY KEY,
			value JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveDataSet(ctx context.Context, ds models.DataSet) (err error) {
	defer s.observe("save_dataset", time.Now(), &err)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO datasets (id, name, uploaded_at, file_names) VALUES ($1, $2, $3, $4)`,
		ds.ID, ds.Name, ds.UploadedAt, pq.Array(ds.FileNames))
	if err != nil {
		return fmt.Errorf("failed to insert dataset: %w", err)
	}

	for _, p := range ds.Posts {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO posts (dataset_id, permalink, platform, content, publish_time, post_type,
				likes, comments, shares, saves, reach, impressions, total_engagement)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			ds.ID, p.Permalink, p.Platform, p.Content, p.PublishTime, p.PostType,
			p.Likes, p.Comments, p.Shares, p.Saves, p.Reach, p.Impressions, p.TotalEngagement)
		if err != nil {
			return fmt.Errorf("failed to insert post %s: %w", p.Permalink, err)
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) ListDataSets(ctx context.Context) (_ []models.DataSet, err error) {
	defer s.observe("list_datasets", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, uploaded_at, file_names FROM datasets ORDER BY uploaded_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer rows.Close()

	datasets := []models.DataSet{}
	index := map[string]int{}
	for rows.Next() {
		var ds models.DataSet
		if err := rows.Scan(&ds.ID, &ds.Name, &ds.UploadedAt, pq.Array(&ds.FileNames)); err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		ds.Posts = []models.Post{}
		index[ds.ID] = len(datasets)
		datasets = append(datasets, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	postRows, err := s.db.QueryContext(ctx,
		`SELECT dataset_id, permalink, platform, content, publish_time, post_type,
			likes, comments, shares, saves, reach, impressions, total_engagement
		 FROM posts ORDER BY publish_time`)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer postRows.Close()

	for postRows.Next() {
		var datasetID string
		var p models.Post
		if err := postRows.Scan(&datasetID, &p.Permalink, &p.Platform, &p.Content, &p.PublishTime,
			&p.PostType, &p.Likes, &p.Comments, &p.Shares, &p.Saves, &p.Reach, &p.Impressions,
			&p.TotalEngagement); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		if i, ok := index[datasetID]; ok {
			datasets[i].Posts = append(datasets[i].Posts, p)
		}
	}
	return datasets, postRows.Err()
}

func (s *PostgresStore) DeleteDataSet(ctx context.Context, id string) (err error) {
	defer s.observe("delete_dataset", time.Now(), &err)

	res, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ClearDataSets(ctx context.Context) (err error) {
	defer s.observe("clear_datasets", time.Now(), &err)

	if _, err = s.db.ExecContext(ctx, `DELETE FROM datasets`); err != nil {
		return fmt.Errorf("failed to clear datasets: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeletePostsInRange(ctx context.Context, start, end time.Time) (err error) {
	defer s.observe("delete_posts_in_range", time.Now(), &err)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM posts WHERE publish_time >= $1 AND publish_time <= $2`, start, end); err != nil {
		return fmt.Errorf("failed to delete posts in range: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM datasets WHERE NOT EXISTS (SELECT 1 FROM posts WHERE posts.dataset_id = datasets.id)`); err != nil {
		return fmt.Errorf("failed to delete emptied datasets: %w", err)
	}
	return tx.Commit()
}

func (s *PostgresStore) GetDocument(ctx context.Context, key string, out interface{}) (err error) {
	defer s.observe("get_document", time.Now(), &err)

	var raw []byte
	err = s.db.QueryRowContext(ctx, `SELECT value FROM documents WHERE key = $1`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get document %s: %w", key, err)
	}
	return json.Unmarshal(raw, out)
}

func (s *PostgresStore) PutDocument(ctx context.Context, key string, value interface{}) (err error) {
	defer s.observe("put_document", time.Now(), &err)

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (key, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, raw)
	if err != nil {
		return fmt.Errorf("failed to put document %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) ListDocumentKeys(ctx context.Context, prefix string) (_ []string, err error) {
	defer s.observe("list_document_keys", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM documents WHERE key LIKE $1 || '%' ORDER BY key`, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list document keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) DeleteDocuments(ctx context.Context, prefix string) (err error) {
	defer s.observe("delete_documents", time.Now(), &err)

	if _, err = s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE key LIKE $1 || '%'`, prefix); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return err
	}
	s.metrics.SetDBConnections("postgres", s.db.Stats().OpenConnections)
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
