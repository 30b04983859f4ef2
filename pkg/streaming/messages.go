package streaming

import (
	"encoding/json"

	"github.com/routekit/editor/v2/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeRouteLoaded   = "route_loaded"
	TypeRouteReplaced = "route_replaced"
	TypePointAdded    = "point_added"
	TypePointInserted = "point_inserted"
	TypePointMoved    = "point_moved"
	TypePointDeleted  = "point_deleted"
	TypeModeChanged   = "mode_changed"
	TypePanToggled    = "pan_toggled"
	TypeMarkerStyle   = "marker_style"
	TypeLabelsUpdated = "labels_updated"
	TypeCommitResult  = "commit_result"
	TypeAnimFrame     = "anim_frame"
	TypeAnimDone      = "anim_done"
	TypeInputError    = "input_error"
	TypeSaveRoute     = "save_route"
	TypeLoadRoute     = "load_route"
	TypeRouteData     = "route_data"
	TypeDeleteRoute   = "delete_route"
	TypeSessionStart  = "session_start"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// PointPayload describes a single point edit. ID is the stable marker
// ID, Index the point's position in the route at the time of the edit.
type PointPayload struct {
	ID    uint          `json:"id"`
	Index int           `json:"index"`
	Point core.GeoPoint `json:"point"`
}

// PointDeletedPayload identifies a removed point.
type PointDeletedPayload struct {
	ID    uint `json:"id"`
	Index int  `json:"index"`
}

// RoutePayload carries a full route, sent on load and on wholesale
// replacements (undo, round trip).
type RoutePayload struct {
	Meta      core.RouteMeta  `json:"meta"`
	IDs       []uint          `json:"ids"`
	Points    []core.GeoPoint `json:"points"`
	DistanceM float64         `json:"distanceM"`
}

// ModePayload announces the active editing mode.
type ModePayload struct {
	Mode string `json:"mode"`
}

// PanPayload announces whether map panning is enabled.
type PanPayload struct {
	Enabled bool `json:"enabled"`
}

// MarkerStylePayload restyles a rendered marker, e.g. while a press is
// armed for deletion.
type MarkerStylePayload struct {
	ID    uint   `json:"id"`
	Style string `json:"style"`
}

// LabelPlacement positions one point's numbered pin and its distance
// label. Coordinates are absolute; the engine resolves offsets before
// emitting.
type LabelPlacement struct {
	Index    int     `json:"index"`
	PinLat   float64 `json:"pinLat"`
	PinLng   float64 `json:"pinLng"`
	LabelLat float64 `json:"labelLat"`
	LabelLng float64 `json:"labelLng"`
	Text     string  `json:"text"`
}

// LabelsUpdatedPayload carries a full badge layout for the current
// zoom.
type LabelsUpdatedPayload struct {
	Zoom       float64          `json:"zoom"`
	Placements []LabelPlacement `json:"placements"`
}

// CommitResultPayload reports the outcome of a route commit.
type CommitResultPayload struct {
	RouteID   uint    `json:"routeId"`
	Name      string  `json:"name"`
	Points    int     `json:"points"`
	DistanceM float64 `json:"distanceM"`
	Error     string  `json:"error,omitempty"`
}

// AnimFramePayload is one playback frame.
type AnimFramePayload struct {
	Style         string  `json:"style"`
	Frame         int     `json:"frame"`
	Total         int     `json:"total"`
	VisiblePoints int     `json:"visiblePoints"`
	Opacity       float64 `json:"opacity"`
	Width         float64 `json:"width"`
}

// AnimDonePayload marks the end of a playback run.
type AnimDonePayload struct {
	Style string `json:"style"`
}

// InputErrorPayload surfaces a recoverable user-input problem.
type InputErrorPayload struct {
	Reason string `json:"reason"`
}

// SaveRoutePayload persists a route over the wire.
type SaveRoutePayload struct {
	Meta     core.RouteMeta  `json:"meta"`
	Points   []core.GeoPoint `json:"points"`
	Polyline string          `json:"polyline"`
}

// LoadRoutePayload requests a stored route.
type LoadRoutePayload struct {
	RouteID uint `json:"routeId"`
}

// DeleteRoutePayload removes a stored route.
type DeleteRoutePayload struct {
	RouteID uint `json:"routeId"`
}

// SessionStartPayload opens an editing session on the remote store. The
// server acks it before any route traffic is accepted, and the client
// replays it after every reconnect.
type SessionStartPayload struct {
	EngineVersion string `json:"engineVersion"`
	StartedAt     int64  `json:"startedAt"`
}

// NewEnvelope marshals payload into an Envelope of the given type.
func NewEnvelope(msgType string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: msgType, Payload: raw}, nil
}
