// internal/storage/storage.go
package storage

import "github.com/routekit/editor/v2/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Route persistence. SaveRoute assigns the stored ID to the passed
	// meta; points arrive in route order and are persisted verbatim.
	// LoadRoute and DeleteRoute return core.ErrRouteNotFound when no
	// stored route carries the requested ID.
	SaveRoute(meta *core.RouteMeta, points []core.GeoPoint) error
	LoadRoute(id uint) (core.RouteMeta, []core.GeoPoint, error)
	ListRoutes() ([]core.RouteMeta, error)
	DeleteRoute(id uint) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to the route archive frontend.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}
