// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/routekit/editor/v2/internal/config"
	"github.com/routekit/editor/v2/internal/logging"
	"github.com/routekit/editor/v2/internal/storage/memory"
	"github.com/routekit/editor/v2/internal/storage/postgres"
	sqlitestorage "github.com/routekit/editor/v2/internal/storage/sqlite"
	"github.com/routekit/editor/v2/internal/storage/websocket"
)

// NewBackend creates a storage backend based on configuration.
// The returned backend is not connected until Init is called.
func NewBackend(cfg config.StorageConfig, logManager *logging.SlogManager) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(postgres.Dependencies{LogManager: logManager}), nil
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			DumpPath:     cfg.SQLite.Path,
			DumpInterval: cfg.SQLite.DumpInterval,
		}, logManager)
	case "websocket":
		return websocket.New(websocket.Config{
			URL:     cfg.Websocket.URL,
			Secret:  cfg.Websocket.APIKey,
			Timeout: cfg.Websocket.Timeout,
		}, logManager), nil
	case "memory":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
