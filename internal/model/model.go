package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&EditorInfo{},
	&RouteRecord{},
	&RoutePointRecord{},
	&SessionPerformance{},
}

var DatabaseModelsSQLite = []interface{}{
	&EditorInfo{},
	&RouteRecord{},
	&RoutePointRecord{},
	&SessionPerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// EditorInfo contains identity information about the installation
type EditorInfo struct {
	gorm.Model
	InstanceName        string `json:"instanceName" gorm:"size:127"`
	InstanceDescription string `json:"instanceDescription" gorm:"size:255"`
	InstanceWebsite     string `json:"instanceURL" gorm:"size:255"`
}

func (*EditorInfo) TableName() string {
	return "editor_infos"
}

// SessionPerformance is the model for engine performance samples
type SessionPerformance struct {
	Time                time.Time    `json:"time" gorm:"type:timestamptz;index:idx_time"`
	RouteName           string       `json:"routeName" gorm:"size:200"`
	EditCounts          EditCounts   `json:"editCounts" gorm:"embedded;embeddedPrefix:edits_"`
	QueueLengths        QueueLengths `json:"queueLengths" gorm:"embedded;embeddedPrefix:queue_"`
	RoutePoints         uint16       `json:"routePoints"`
	UndoDepth           uint8        `json:"undoDepth"`
	LastWriteDurationMs float32      `json:"lastWriteDurationMs"`
}

func (*SessionPerformance) TableName() string {
	return "session_performances"
}

// EditCounts is the model for per-session edit operation counters
type EditCounts struct {
	Adds       uint32 `json:"adds"`
	Inserts    uint32 `json:"inserts"`
	Moves      uint32 `json:"moves"`
	Deletes    uint32 `json:"deletes"`
	RoundTrips uint32 `json:"roundTrips"`
	Undos      uint32 `json:"undos"`
}

// QueueLengths is the model for outbound buffer lengths
type QueueLengths struct {
	Envelopes      uint16 `json:"envelopes"`      // outbound streaming envelopes not yet consumed
	StoragePending uint16 `json:"storagePending"` // storage writes queued behind a dead connection
}

////////////////////////
// ROUTE MODELS
////////////////////////

// RouteRecord is the main model for a committed route
type RouteRecord struct {
	gorm.Model
	Name          string    `json:"name" gorm:"size:200"`
	Description   string    `json:"description" gorm:"size:2000"`
	Tag           string    `json:"tag" gorm:"size:127"`
	StartedAt     time.Time `json:"startedAt" gorm:"type:timestamptz;index:idx_route_started_at"` // when the editing session began
	EngineVersion string    `json:"engineVersion" gorm:"size:64;default:2.0.0"`

	DistanceM  float64 `json:"distanceM"` // total length in meters
	PointCount int     `json:"pointCount"`

	Polyline string          `json:"polyline"`                              // encoded polyline, 1e-5 precision
	Line     geom.LineString `json:"-"`                                     // lng/lat linestring for spatial queries
	Bounds   datatypes.JSON  `json:"bounds" gorm:"type:jsonb;default:'[]'"` // [minLat, minLng, maxLat, maxLng]

	Points []RoutePointRecord `json:"points"`
}

func (*RouteRecord) TableName() string {
	return "routes"
}

// Get loads the record by primary key with its points in route order.
func (r *RouteRecord) Get(db *gorm.DB) (err error) {
	err = db.Preload("Points", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq ASC")
	}).First(r, r.ID).Error
	return err
}

// RoutePointRecord is one vertex of a committed route
// References RouteRecord by RouteID
type RoutePointRecord struct {
	ID      uint        `json:"id" gorm:"primarykey;autoIncrement;"`
	RouteID uint        `json:"routeId" gorm:"index:idx_routepoint_route_id"`
	Route   RouteRecord `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RouteID;"`
	Seq     int         `json:"seq" gorm:"index:idx_routepoint_seq"`
	Time    time.Time   `json:"time" gorm:"type:timestamptz;"` // when the point was placed or last moved

	Position    geom.Point `json:"position"`    // lng/lat point
	Accuracy    float32    `json:"accuracy"`    // reported GPS accuracy in meters, 0 for hand-placed points
	CumulativeM float64    `json:"cumulativeM"` // distance from the route start along the line
}

func (*RoutePointRecord) TableName() string {
	return "route_points"
}
