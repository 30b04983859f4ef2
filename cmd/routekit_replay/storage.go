package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/routekit/editor/v2/internal/api"
	"github.com/routekit/editor/v2/internal/config"
	"github.com/routekit/editor/v2/internal/database"
	"github.com/routekit/editor/v2/internal/model"
	"github.com/routekit/editor/v2/internal/storage"
)

// initStorage builds the configured backend and hands it to the editor.
func initStorage() error {
	cfg := config.GetStorageConfig()

	backend, err := storage.NewBackend(cfg, SlogManager)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize %s storage: %w", cfg.Type, err)
	}

	storageBackend = backend
	editorService.SetBackend(backend)
	Logger.Info("Storage backend initialized", "type", cfg.Type)
	return nil
}

// backendDatabase returns the gorm handle of a database-backed storage
// backend, or nil for backends without one.
func backendDatabase() *gorm.DB {
	type dbProvider interface{ DB() *gorm.DB }
	if p, ok := storageBackend.(dbProvider); ok {
		return p.DB()
	}
	return nil
}

// validateHypertables sets up TimescaleDB hypertables for the
// performance samples when the backend is Postgres.
func validateHypertables() {
	db := backendDatabase()
	if db == nil || db.Dialector.Name() != "postgres" {
		return
	}

	err := monitorService.ValidateHypertables(map[string][]string{
		"session_performances": {"route_name"},
	})
	if err != nil {
		Logger.Warn("TimescaleDB hypertable setup failed", "error", err)
	}
}

// setupDatabase connects with the standalone manager and migrates the
// schema, creating the default settings row on first run.
func setupDatabase() error {
	m := database.NewManager(ZeroLogger)
	if err := m.Connect(); err != nil {
		return err
	}
	return m.Setup()
}

// recoverBackups copies the rows of every SQLite dump next to the
// configured database file into Postgres. Migrated files are renamed
// so a re-run does not duplicate data.
func recoverBackups() error {
	backupDir := filepath.Dir(config.GetStorageConfig().SQLite.Path)

	sqlitePaths, err := database.GetBackupDBPaths(backupDir)
	if err != nil {
		return fmt.Errorf("error getting backup database paths: %v", err)
	}
	if len(sqlitePaths) == 0 {
		Logger.Info("No backup databases found", "dir", backupDir)
		return nil
	}

	postgresDB, err := database.GetPostgresDBStandalone()
	if err != nil {
		return fmt.Errorf("error getting postgres database: %v", err)
	}

	successful := make([]string, 0)

	for _, sqlitePath := range sqlitePaths {
		sqliteDB, err := database.GetSqliteDBStandalone(sqlitePath)
		if err != nil {
			return fmt.Errorf("error getting sqlite database: %v", err)
		}

		// transaction for Postgres so we can rollback on errors
		tx := postgresDB.Begin()

		if err = migrateTable(sqliteDB, tx, model.EditorInfo{}, "editor_infos"); err != nil {
			tx.Rollback()
			return fmt.Errorf("error migrating editor_infos: %v", err)
		}
		if err = migrateTable(sqliteDB, tx, model.RouteRecord{}, "routes"); err != nil {
			tx.Rollback()
			return fmt.Errorf("error migrating routes: %v", err)
		}
		if err = migrateTable(sqliteDB, tx, model.RoutePointRecord{}, "route_points"); err != nil {
			tx.Rollback()
			return fmt.Errorf("error migrating route_points: %v", err)
		}
		if err = migrateTable(sqliteDB, tx, model.SessionPerformance{}, "session_performances"); err != nil {
			tx.Rollback()
			return fmt.Errorf("error migrating session_performances: %v", err)
		}

		tx.Commit()

		sqlConn, err := sqliteDB.DB()
		if err != nil {
			Logger.Error("Error getting sqlite connection", "error", err)
			continue
		}
		if err := sqlConn.Close(); err != nil {
			Logger.Error("Error closing sqlite connection", "error", err)
		}
		if err := os.Rename(sqlitePath, sqlitePath+".migrated"); err != nil {
			Logger.Error("Error renaming sqlite file", "error", err)
		}
		successful = append(successful, sqlitePath)
	}

	Logger.Info("Recovered backups, delete the .migrated files to avoid data duplication",
		"count", len(successful),
		"paths", successful)

	return nil
}

// migrateTable copies all rows of one table between databases,
// dropping primary keys so the target assigns its own.
func migrateTable[M any](src *gorm.DB, dst *gorm.DB, mdl M, tableName string) error {
	var data = &map[string]any{}
	src.Model(&mdl).
		Assign("id", gorm.Expr("NULL")).
		Find(data)
	Logger.Info("Found records", "count", len(*data), "table", tableName)

	if len(*data) == 0 {
		return nil
	}

	Logger.Info("Inserting records", "count", len(*data), "table", tableName)

	dst.Model(&mdl).Clauses(clause.OnConflict{DoNothing: true}).Create(data)
	if dst.Error != nil {
		Logger.Error("Error migrating table", "error", dst.Error, "table", tableName)
		return dst.Error
	}

	return nil
}

// uploadExport posts the exported GeoJSON file to the route archive.
func uploadExport() error {
	up, ok := storageBackend.(storage.Uploadable)
	if !ok {
		return fmt.Errorf("%s storage does not produce export files", config.GetStorageConfig().Type)
	}

	path := up.GetExportedFilePath()
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no export at %s, run a replay that commits a route first", path)
	}

	client := api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"))
	if err := client.Healthcheck(); err != nil {
		return fmt.Errorf("route archive is not reachable: %w", err)
	}
	if err := client.Upload(path, up.GetExportMetadata()); err != nil {
		return err
	}

	Logger.Info("Uploaded export", "path", path)
	return nil
}
