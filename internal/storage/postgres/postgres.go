// Package postgres implements route persistence on GORM/PostgreSQL.
// It wraps the shared GORM backend via composition and owns the
// connection, including the standalone connect path when no DB is
// injected.
package postgres

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/routekit/editor/v2/internal/database"
	"github.com/routekit/editor/v2/internal/logging"
	gormstorage "github.com/routekit/editor/v2/internal/storage/gorm"
)

// Dependencies holds all dependencies for the PostgreSQL storage backend.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
}

// Backend wraps the GORM backend for PostgreSQL-specific behavior.
type Backend struct {
	*gormstorage.Backend
	deps Dependencies
}

// New creates a new PostgreSQL storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		deps: deps,
	}
}

// Init connects to PostgreSQL if no DB was injected via Dependencies,
// then initializes the embedded GORM backend.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.GetPostgresDBStandalone()
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.deps.DB = db
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:         b.deps.DB,
		LogManager: b.deps.LogManager,
	})
	return b.Backend.Init()
}

// Close stops the embedded GORM backend. Safe to call before Init.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	return b.Backend.Close()
}
