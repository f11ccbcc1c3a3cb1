package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vanshika/mapnav/backend/internal/dataset"
	"github.com/vanshika/mapnav/backend/internal/routing"
	"github.com/vanshika/mapnav/backend/internal/selection"
	"github.com/vanshika/mapnav/backend/internal/service"
)

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger   *slog.Logger
	maps     *service.MapService
	sessions *service.SessionManager
	validate *validator.Validate
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, maps *service.MapService, sessions *service.SessionManager) *APIHandlers {
	return &APIHandlers{
		logger:   logger,
		maps:     maps,
		sessions: sessions,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *APIHandlers) listVertices(w http.ResponseWriter, r *http.Request) {
	floor, err := parseFloor(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	vertices, err := h.maps.Vertices(floor)
	if err != nil {
		h.writeServiceError(w, err, "failed to list vertices")
		return
	}
	out := make([]dataset.VertexRecord, 0, len(vertices))
	for _, v := range vertices {
		out = append(out, dataset.VertexFromDomain(v))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *APIHandlers) listEdges(w http.ResponseWriter, r *http.Request) {
	floor, err := parseFloor(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	edges, err := h.maps.Edges(floor)
	if err != nil {
		h.writeServiceError(w, err, "failed to list edges")
		return
	}
	out := make([]dataset.EdgeRecord, 0, len(edges))
	for _, e := range edges {
		out = append(out, dataset.EdgeFromDomain(e))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *APIHandlers) listMapImages(w http.ResponseWriter, r *http.Request) {
	floor, err := parseFloor(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	images, err := h.maps.MapImages(floor)
	if err != nil {
		h.writeServiceError(w, err, "failed to list map images")
		return
	}
	out := make([]dataset.MapImageRecord, 0, len(images))
	for _, img := range images {
		out = append(out, dataset.MapImageFromDomain(img))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *APIHandlers) findPath(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	startID, err := parseID(query.Get("startID"), "startID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	endID, err := parseID(query.Get("endID"), "endID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	route, err := h.maps.FindRoute(r.Context(), startID, endID)
	switch {
	case err == nil:
	case errors.Is(err, routing.ErrNoPath):
		respondJSON(w, http.StatusOK, pathResponse{
			Found:     false,
			StartID:   startID,
			EndID:     endID,
			Version:   route.Version,
			VertexIDs: []int64{},
			Vertices:  []dataset.VertexRecord{},
			Edges:     []dataset.EdgeRecord{},
		})
		return
	default:
		h.writeServiceError(w, err, "failed to compute path")
		return
	}

	resp := newPathResponse(route.PathResult)
	resp.Version = route.Version
	resp.Vertices = make([]dataset.VertexRecord, 0, len(route.Vertices))
	for _, v := range route.Vertices {
		resp.Vertices = append(resp.Vertices, dataset.VertexFromDomain(v))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) createSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Create(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "failed to create session")
		return
	}
	respondJSON(w, http.StatusCreated, sessionResponse{Session: newSessionView(view), Events: []eventResponse{}})
}

func (h *APIHandlers) getSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err, "failed to fetch session")
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{Session: newSessionView(view), Events: []eventResponse{}})
}

func (h *APIHandlers) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, err, "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandlers) selectVertex(w http.ResponseWriter, r *http.Request) {
	var payload selectRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		writeError(w, http.StatusBadRequest, "vertexId is required and must be non-negative")
		return
	}

	id := r.PathValue("id")
	view, events, err := h.sessions.Select(r.Context(), id, *payload.VertexID)
	if err != nil {
		h.writeServiceError(w, err, "failed to apply selection")
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{Session: newSessionView(view), Events: newEvents(events)})
}

func (h *APIHandlers) resetSession(w http.ResponseWriter, r *http.Request) {
	view, events, err := h.sessions.Reset(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err, "failed to reset session")
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{Session: newSessionView(view), Events: newEvents(events)})
}

func (h *APIHandlers) reload(w http.ResponseWriter, r *http.Request) {
	snap, err := h.maps.Reload(r.Context())
	if err != nil {
		if errors.Is(err, routing.ErrMalformedGraph) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.writeServiceError(w, err, "failed to reload dataset")
		return
	}
	respondJSON(w, http.StatusOK, reloadResponse{
		Version:   snap.Version,
		LoadedAt:  snap.LoadedAt.UTC().Format(time.RFC3339),
		Vertices:  snap.Graph.Len(),
		Edges:     snap.Graph.EdgeCount(),
		MapImages: len(snap.MapImages),
	})
}

// writeServiceError maps domain errors onto HTTP statuses. Unexpected
// failures are logged and reported with msg only.
func (h *APIHandlers) writeServiceError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, routing.ErrUnknownVertex):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrTooManySessions):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, routing.ErrMalformedGraph):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, msg)
	}
}

// --- Request & Response DTOs ---

type selectRequest struct {
	VertexID *int64 `json:"vertexId" validate:"required,gte=0"`
}

type pathResponse struct {
	Found         bool                   `json:"found"`
	StartID       int64                  `json:"startId"`
	EndID         int64                  `json:"endId"`
	TotalDistance float64                `json:"totalDistance"`
	Hops          int                    `json:"hops"`
	Version       uint64                 `json:"version,omitempty"`
	VertexIDs     []int64                `json:"vertexIds"`
	Vertices      []dataset.VertexRecord `json:"vertices,omitempty"`
	Edges         []dataset.EdgeRecord   `json:"edges"`
}

type sessionView struct {
	ID        string        `json:"id"`
	State     string        `json:"state"`
	StartID   *int64        `json:"startId,omitempty"`
	EndID     *int64        `json:"endId,omitempty"`
	Path      *pathResponse `json:"path,omitempty"`
	NoRoute   bool          `json:"noRoute"`
	Version   uint64        `json:"version"`
	CreatedAt string        `json:"createdAt"`
	LastSeen  string        `json:"lastSeen"`
}

type eventResponse struct {
	Kind     string        `json:"kind"`
	VertexID *int64        `json:"vertexId,omitempty"`
	StartID  *int64        `json:"startId,omitempty"`
	EndID    *int64        `json:"endId,omitempty"`
	Path     *pathResponse `json:"path,omitempty"`
	Reason   string        `json:"reason,omitempty"`
}

type sessionResponse struct {
	Session sessionView     `json:"session"`
	Events  []eventResponse `json:"events"`
}

type reloadResponse struct {
	Version   uint64 `json:"version"`
	LoadedAt  string `json:"loadedAt"`
	Vertices  int    `json:"vertices"`
	Edges     int    `json:"edges"`
	MapImages int    `json:"mapImages"`
}

// --- Helpers ---

func newPathResponse(res routing.PathResult) pathResponse {
	resp := pathResponse{
		Found:         true,
		StartID:       res.SourceID,
		EndID:         res.TargetID,
		TotalDistance: res.TotalDistance,
		Hops:          res.Hops(),
		VertexIDs:     append([]int64{}, res.VertexIDs...),
		Edges:         make([]dataset.EdgeRecord, 0, len(res.Edges)),
	}
	for _, e := range res.Edges {
		resp.Edges = append(resp.Edges, dataset.EdgeFromDomain(e))
	}
	return resp
}

func newSessionView(view service.SessionView) sessionView {
	sel := view.Selection
	out := sessionView{
		ID:        view.ID,
		State:     sel.State.String(),
		StartID:   optionalID(sel.StartID, sel.HasStart),
		EndID:     optionalID(sel.EndID, sel.HasEnd),
		NoRoute:   sel.NoRoute,
		Version:   view.Version,
		CreatedAt: formatTime(view.CreatedAt),
		LastSeen:  formatTime(view.LastSeen),
	}
	if sel.Path != nil {
		p := newPathResponse(*sel.Path)
		out.Path = &p
	}
	return out
}

func newEvents(events []selection.Event) []eventResponse {
	out := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		item := eventResponse{
			Kind:     string(ev.Kind),
			VertexID: optionalID(ev.VertexID, ev.VertexID != selection.NoVertex),
			StartID:  optionalID(ev.StartID, ev.HasStart),
			EndID:    optionalID(ev.EndID, ev.HasEnd),
		}
		if ev.Path != nil {
			p := newPathResponse(*ev.Path)
			item.Path = &p
		}
		if ev.Err != nil {
			item.Reason = ev.Err.Error()
		}
		out = append(out, item)
	}
	return out
}

func optionalID(id int64, ok bool) *int64 {
	if !ok {
		return nil
	}
	return &id
}

func parseID(value, name string) (int64, error) {
	if value == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func parseFloor(r *http.Request) (*int, error) {
	value := r.URL.Query().Get("floor")
	if value == "" {
		return nil, nil
	}
	floor, err := strconv.Atoi(value)
	if err != nil {
		return nil, errors.New("invalid floor")
	}
	return &floor, nil
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}
