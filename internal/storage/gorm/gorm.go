// Package gormstorage implements route persistence on a GORM database
// handle with a background writer goroutine for performance samples.
// The postgres and sqlite backends build on it and own the connection.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/routekit/editor/v2/internal/logging"
	"github.com/routekit/editor/v2/internal/model"
	"github.com/routekit/editor/v2/internal/model/convert"
	"github.com/routekit/editor/v2/internal/queue"
	"github.com/routekit/editor/v2/pkg/core"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
}

// Backend implements route persistence using GORM with queue-based
// batch writes for performance samples.
type Backend struct {
	deps      Dependencies
	perfQueue *queue.Queue[model.SessionPerformance]
	stopChan  chan struct{}

	mu                  sync.Mutex
	lastDBWriteDuration time.Duration
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		deps: deps,
	}
}

// Init creates the internal queue, runs schema migration, and starts
// the DB writer goroutine. The wrapping backend must have injected a
// live connection via Dependencies.
func (b *Backend) Init() error {
	b.perfQueue = queue.New[model.SessionPerformance]()
	b.stopChan = make(chan struct{})

	if b.deps.DB == nil {
		return fmt.Errorf("no database handle provided")
	}

	if err := b.setupDB(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.startDBWriter()
	return nil
}

// setupDB migrates tables and creates the default instance info row if
// it doesn't exist.
func (b *Backend) setupDB() error {
	db := b.deps.DB
	log := b.deps.LogManager

	if !db.Migrator().HasTable(&model.EditorInfo{}) {
		if err := db.AutoMigrate(&model.EditorInfo{}); err != nil {
			log.WriteLog("setupDB", fmt.Sprintf("Failed to create editor_infos table: %s", err), "ERROR")
			return fmt.Errorf("failed to auto-migrate EditorInfo: %w", err)
		}
		if err := db.Create(&model.EditorInfo{
			InstanceName:        "RouteKit",
			InstanceDescription: "Self-hosted route editor",
			InstanceWebsite:     "https://routekit.dev",
		}).Error; err != nil {
			return fmt.Errorf("failed to create editor_infos entry: %w", err)
		}
	}

	if db.Name() == "postgres" {
		if err := db.Exec(`CREATE Extension IF NOT EXISTS postgis;`).Error; err != nil {
			return fmt.Errorf("failed to create PostGIS Extension: %w", err)
		}
		log.WriteLog("setupDB", "PostGIS Extension created", "INFO")
	}

	log.WriteLog("setupDB", "Migrating schema", "INFO")
	models := model.DatabaseModels
	if db.Name() == "sqlite" {
		models = model.DatabaseModelsSQLite
	}
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.WriteLog("setupDB", "Database setup complete", "INFO")
	return nil
}

// Close stops the DB writer goroutine.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
	}
	return nil
}

// SaveRoute writes a route synchronously (not queued) because commits
// are low-volume and the caller needs the assigned ID immediately.
// A nonzero meta.ID replaces the stored vertex rows wholesale; the
// incoming point slice is authoritative.
func (b *Backend) SaveRoute(meta *core.RouteMeta, points []core.GeoPoint) error {
	rec := convert.CoreToRouteRecord(*meta, points, routeStart(points))

	start := time.Now()
	tx := b.deps.DB.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	if rec.ID != 0 {
		if err := tx.Where("route_id = ?", rec.ID).Delete(&model.RoutePointRecord{}).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to clear route points: %w", err)
		}
	}
	if err := tx.Save(&rec).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to save route: %w", err)
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit route: %w", err)
	}

	meta.ID = rec.ID

	b.mu.Lock()
	b.lastDBWriteDuration = time.Since(start)
	b.mu.Unlock()
	return nil
}

// LoadRoute returns a stored route with its points in route order.
func (b *Backend) LoadRoute(id uint) (core.RouteMeta, []core.GeoPoint, error) {
	rec := model.RouteRecord{}
	rec.ID = id
	if err := rec.Get(b.deps.DB); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return core.RouteMeta{}, nil, core.ErrRouteNotFound
		}
		return core.RouteMeta{}, nil, fmt.Errorf("failed to load route %d: %w", id, err)
	}
	return convert.RouteRecordToMeta(rec), convert.RouteRecordToPoints(rec), nil
}

// ListRoutes returns metadata for all stored routes ordered by ID.
func (b *Backend) ListRoutes() ([]core.RouteMeta, error) {
	var recs []model.RouteRecord
	if err := b.deps.DB.Order("id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	metas := make([]core.RouteMeta, 0, len(recs))
	for _, rec := range recs {
		metas = append(metas, convert.RouteRecordToMeta(rec))
	}
	return metas, nil
}

// DeleteRoute soft-deletes the route row. Vertex rows stay behind the
// foreign key until a hard prune.
func (b *Backend) DeleteRoute(id uint) error {
	res := b.deps.DB.Delete(&model.RouteRecord{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete route %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return core.ErrRouteNotFound
	}
	return nil
}

// RecordPerformance queues an engine performance sample for the next
// batch write.
func (b *Backend) RecordPerformance(s model.SessionPerformance) {
	b.perfQueue.Push(s)
}

// GetLastDBWriteDuration returns how long the most recent DB write took.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastDBWriteDuration
}

// DB exposes the underlying handle for database-specific setup such as
// hypertable creation.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// routeStart derives the session start from the first stamped point,
// falling back to the wall clock. UTC keeps stored sessions comparable
// across hosts.
func routeStart(points []core.GeoPoint) time.Time {
	for _, p := range points {
		if p.Timestamp != 0 {
			return time.UnixMilli(p.Timestamp).UTC()
		}
	}
	return time.Now().UTC()
}

// writePerformance drains the sample queue into the database in one
// transaction. Failed batches go back on the queue for the next cycle.
func (b *Backend) writePerformance() {
	if b.perfQueue.Empty() {
		return
	}

	start := time.Now()
	tx := b.deps.DB.Begin()
	items := b.perfQueue.GetAndEmpty()
	if err := tx.Create(&items).Error; err != nil {
		b.deps.LogManager.WriteLog(":DB:WRITER:", fmt.Sprintf("Error creating performance samples: %v", err), "ERROR")
		tx.Rollback()
		b.perfQueue.Push(items...)
		return
	}
	tx.Commit()

	b.mu.Lock()
	b.lastDBWriteDuration = time.Since(start)
	b.mu.Unlock()
}

// startDBWriter starts the background goroutine that periodically
// drains the sample queue into the DB.
func (b *Backend) startDBWriter() {
	go func() {
		for {
			select {
			case <-b.stopChan:
				return
			default:
			}

			b.writePerformance()
			time.Sleep(2 * time.Second)
		}
	}()
}
