package store

import (
	"context"
	"fmt"

	"github.com/meowmeowtoast/yangyu-report/internal/metrics"
	"github.com/meowmeowtoast/yangyu-report/pkg/config"
	"github.com/meowmeowtoast/yangyu-report/pkg/database"
	"github.com/meowmeowtoast/yangyu-report/pkg/logging"
)

// Driver names accepted in STORE_DRIVER
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// NewFromEnv selects and opens the persistence backend from the
// environment. SQLite is the default so the service runs with zero
// configuration.
func NewFromEnv(m *metrics.Metrics, logger logging.Logger) (Store, error) {
	driver := config.GetEnv("STORE_DRIVER", DriverSQLite)

	switch driver {
	case DriverPostgres:
		cfg := database.DefaultConfig()
		cfg.URL = config.RequireEnv("DATABASE_URL")
		db, err := database.Connect(cfg, logger)
		if err != nil {
			return nil, err
		}
		s := NewPostgresStore(db, m, logger)
		if err := s.EnsureSchema(context.Background()); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.WithField("driver", driver).Info("Store initialized")
		return s, nil

	case DriverSQLite:
		path := config.GetEnv("SQLITE_PATH", "dashboard.db")
		s, err := NewLocalStore(path, m, logger)
		if err != nil {
			return nil, err
		}
		logger.WithField("driver", driver).Info("Store initialized")
		return s, nil

	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", driver)
	}
}
