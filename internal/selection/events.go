package selection

import "github.com/vanshika/mapnav/backend/internal/routing"

// NoVertex is the VertexID of events that are not about a single point.
const NoVertex int64 = -1

// EventKind names a selection transition outcome for the notification layer.
type EventKind string

const (
	EventStartSelected   EventKind = "start_selected"
	EventEndSelected     EventKind = "end_selected"
	EventStartDeselected EventKind = "start_deselected"
	EventEndDeselected   EventKind = "end_deselected"
	EventPathFound       EventKind = "path_found"
	EventPathCleared     EventKind = "path_cleared"
	EventNoRoute         EventKind = "no_route"
	EventReset           EventKind = "reset"
)

// Event is emitted by a transition. StartID and EndID are the endpoints after
// the transition; VertexID is the point that triggered it.
type Event struct {
	Kind     EventKind
	VertexID int64
	StartID  int64
	HasStart bool
	EndID    int64
	HasEnd   bool
	// Path is set on EventPathFound.
	Path *routing.PathResult
	// Err is set on EventNoRoute and explains why no route exists.
	Err error
}
