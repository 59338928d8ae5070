package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/controller"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/coords"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/preset"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/region"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/service"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/session"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/store"
	"github.com/B2Gdevs/magicborn-opensource-sub000/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.EditorService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil, which disables /ws.
func NewServer(editorService service.EditorService, hub *websocket.Hub) *Server {
	s := &Server{
		service: editorService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api", s.handleHealth).Methods("GET")
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/schema", s.handleListSchemas).Methods("GET")
	api.HandleFunc("/schema/{name}", s.handleGetSchema).Methods("GET")

	// Presets
	api.HandleFunc("/presets", s.handleListPresets).Methods("GET")
	api.HandleFunc("/presets/{name}", s.handleGetPreset).Methods("GET")

	// Maps
	api.HandleFunc("/maps", s.handleListMaps).Methods("GET")
	api.HandleFunc("/maps", s.handleCreateMap).Methods("POST")
	api.HandleFunc("/maps/{id}", s.handleGetMap).Methods("GET")
	api.HandleFunc("/maps/{id}", s.handleRenameMap).Methods("PATCH")
	api.HandleFunc("/maps/{id}", s.handleDeleteMap).Methods("DELETE")

	// Map analysis
	api.HandleFunc("/maps/{id}/completion", s.handleCompletion).Methods("GET")
	api.HandleFunc("/maps/{id}/zones", s.handleZoneCoverage).Methods("GET")
	api.HandleFunc("/maps/{id}/convert", s.handleConvert).Methods("GET")
	api.HandleFunc("/maps/{id}/cells/{x:-?[0-9]+}/{y:-?[0-9]+}", s.handleDescribeCell).Methods("GET")
	api.HandleFunc("/maps/{id}/overlay", s.handleOverlay).Methods("GET")
	api.HandleFunc("/maps/{id}/preview.png", s.handlePreview).Methods("GET")

	// Regions
	api.HandleFunc("/maps/{id}/regions", s.handleListRegions).Methods("GET")
	api.HandleFunc("/maps/{id}/regions", s.handleCreateRegion).Methods("POST")
	api.HandleFunc("/regions/{id}", s.handleGetRegion).Methods("GET")
	api.HandleFunc("/regions/{id}", s.handleUpdateRegion).Methods("PATCH")
	api.HandleFunc("/regions/{id}", s.handleDeleteRegion).Methods("DELETE")
	api.HandleFunc("/regions/{id}/cells", s.handleAddCells).Methods("POST")
	api.HandleFunc("/regions/{id}/cells", s.handleRemoveCells).Methods("DELETE")

	// Placements
	api.HandleFunc("/maps/{id}/placements", s.handleListPlacements).Methods("GET")
	api.HandleFunc("/maps/{id}/placements", s.handleCreatePlacement).Methods("POST")
	api.HandleFunc("/placements/{id}", s.handleDeletePlacement).Methods("DELETE")

	// Editing sessions
	api.HandleFunc("/sessions", s.handleOpenSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleCloseSession).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/events", s.handleDispatch).Methods("POST")
	api.HandleFunc("/sessions/{id}/selection", s.handleSelection).Methods("GET")
	api.HandleFunc("/sessions/{id}/grid", s.handleGrid).Methods("GET")
	api.HandleFunc("/sessions/{id}/regions", s.handleRegionFromSelection).Methods("POST")
	api.HandleFunc("/sessions/{id}/world-region", s.handleWorldRegion).Methods("POST")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error": message,
		"code":  status,
	})
}

// respondServiceError maps a service error onto its HTTP status
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrPersistence):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrMapNotFound),
		errors.Is(err, region.ErrRegionNotFound),
		errors.Is(err, region.ErrMapNotRegistered),
		errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, preset.ErrPresetNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionAlreadyExists),
		errors.Is(err, store.ErrExists):
		return http.StatusConflict
	case errors.Is(err, coords.ErrConfiguration),
		errors.Is(err, region.ErrValidation),
		errors.Is(err, preset.ErrInvalidPreset),
		errors.Is(err, controller.ErrInvalidAction),
		errors.Is(err, session.ErrInvalidSessionID),
		errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrEmptySelection),
		errors.Is(err, service.ErrBaseRegionProtected),
		errors.Is(err, store.ErrInvalidID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// Preset Handlers

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := s.service.ListPresets(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, presets)
}

func (s *Server) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	p, err := s.service.GetPreset(r.Context(), name)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// Map Handlers

func (s *Server) handleListMaps(w http.ResponseWriter, r *http.Request) {
	maps, err := s.service.ListMaps(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	// Optional filter for nested maps
	if parent, ok := r.URL.Query()["parent"]; ok {
		filtered := make([]*service.MapInfo, 0, len(maps))
		for _, m := range maps {
			if m.ParentMapID == parent[0] {
				filtered = append(filtered, m)
			}
		}
		maps = filtered
	}

	respondJSON(w, http.StatusOK, maps)
}

func (s *Server) handleCreateMap(w http.ResponseWriter, r *http.Request) {
	var req service.CreateMapRequest
	if !decodeBody(w, r, &req) {
		return
	}

	m, err := s.service.CreateMap(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[MAP] created id=%s name=%q cells=%dx%d parent=%s", m.ID, m.Name, m.CellsX, m.CellsY, m.ParentMapID)
	respondJSON(w, http.StatusCreated, m)
}

func (s *Server) handleGetMap(w http.ResponseWriter, r *http.Request) {
	m, err := s.service.GetMap(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (s *Server) handleRenameMap(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	m, err := s.service.RenameMap(r.Context(), mux.Vars(r)["id"], req.Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteMap(w http.ResponseWriter, r *http.Request) {
	mapID := mux.Vars(r)["id"]

	if err := s.service.DeleteMap(r.Context(), mapID); err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[MAP] deleted id=%s", mapID)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Map deleted successfully",
	})
}

// Analysis Handlers

func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	benchmark := 0
	if v := r.URL.Query().Get("benchmark"); v != "" {
		b, err := strconv.Atoi(v)
		if err != nil || b < 0 {
			respondError(w, http.StatusBadRequest, "benchmark must be a non-negative integer")
			return
		}
		benchmark = b
	}

	result, err := s.service.Completion(r.Context(), mux.Vars(r)["id"], benchmark)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleZoneCoverage(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.ZoneCoverage(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	x, errX := strconv.ParseFloat(query.Get("x"), 64)
	y, errY := strconv.ParseFloat(query.Get("y"), 64)
	if errX != nil || errY != nil {
		respondError(w, http.StatusBadRequest, "x and y query parameters must be numbers")
		return
	}

	conv, err := s.service.Convert(r.Context(), mux.Vars(r)["id"], coords.Pixel{X: x, Y: y})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, conv)
}

func (s *Server) handleDescribeCell(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	// The route pattern guarantees integers
	x, _ := strconv.Atoi(vars["x"])
	y, _ := strconv.Atoi(vars["y"])

	info, err := s.service.DescribeCell(r.Context(), vars["id"], coords.Cell{X: x, Y: y})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	layers, err := s.service.Overlay(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, layers)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	width := 0
	if v := r.URL.Query().Get("width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "width must be a non-negative integer")
			return
		}
		width = n
	}

	// Render fully before writing so failures still get a JSON error
	var buf bytes.Buffer
	if err := s.service.Preview(r.Context(), mux.Vars(r)["id"], width, &buf); err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Region Handlers

func (s *Server) handleListRegions(w http.ResponseWriter, r *http.Request) {
	includeBase, _ := strconv.ParseBool(r.URL.Query().Get("include_base"))

	regions, err := s.service.ListRegions(r.Context(), mux.Vars(r)["id"], includeBase)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, regions)
}

func (s *Server) handleCreateRegion(w http.ResponseWriter, r *http.Request) {
	var req service.CreateRegionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.MapID = mux.Vars(r)["id"]

	reg, err := s.service.CreateRegion(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[REGION] created map=%s id=%s name=%q cells=%d", reg.MapID, reg.ID, reg.Name, len(reg.Cells))
	respondJSON(w, http.StatusCreated, reg)
}

func (s *Server) handleGetRegion(w http.ResponseWriter, r *http.Request) {
	reg, err := s.service.GetRegion(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reg)
}

func (s *Server) handleUpdateRegion(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateRegionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	reg, err := s.service.UpdateRegion(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[REGION] updated map=%s id=%s name=%q", reg.MapID, reg.ID, reg.Name)
	respondJSON(w, http.StatusOK, reg)
}

func (s *Server) handleDeleteRegion(w http.ResponseWriter, r *http.Request) {
	regionID := mux.Vars(r)["id"]

	if err := s.service.DeleteRegion(r.Context(), regionID); err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[REGION] deleted id=%s", regionID)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Region deleted successfully",
	})
}

type cellsRequest struct {
	Cells []coords.Cell `json:"cells"`
}

func (s *Server) handleAddCells(w http.ResponseWriter, r *http.Request) {
	var req cellsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	reg, err := s.service.AddCells(r.Context(), mux.Vars(r)["id"], req.Cells)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[REGION] cells+ id=%s added=%d total=%d", reg.ID, len(req.Cells), len(reg.Cells))
	respondJSON(w, http.StatusOK, reg)
}

func (s *Server) handleRemoveCells(w http.ResponseWriter, r *http.Request) {
	var req cellsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	reg, err := s.service.RemoveCells(r.Context(), mux.Vars(r)["id"], req.Cells)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[REGION] cells- id=%s removed=%d total=%d", reg.ID, len(req.Cells), len(reg.Cells))
	respondJSON(w, http.StatusOK, reg)
}

// Placement Handlers

func (s *Server) handleListPlacements(w http.ResponseWriter, r *http.Request) {
	placements, err := s.service.ListPlacements(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, placements)
}

func (s *Server) handleCreatePlacement(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePlacementRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.MapID = mux.Vars(r)["id"]

	p, err := s.service.CreatePlacement(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[PLACEMENT] created map=%s id=%s kind=%s at=(%.1f,%.1f)", p.MapID, p.ID, p.Kind, p.X, p.Y)
	respondJSON(w, http.StatusCreated, p)
}

func (s *Server) handleDeletePlacement(w http.ResponseWriter, r *http.Request) {
	placementID := mux.Vars(r)["id"]

	if err := s.service.DeletePlacement(r.Context(), placementID); err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[PLACEMENT] deleted id=%s", placementID)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Placement deleted successfully",
	})
}

// Session Handlers

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req service.OpenSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	info, err := s.service.OpenSession(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[SESSION] opened id=%s map=%s mode=%s", info.ID, info.MapID, info.State.Mode)
	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if mapID := r.URL.Query().Get("map"); mapID != "" {
		filtered := make([]*service.SessionInfo, 0, len(sessions))
		for _, sess := range sessions {
			if sess.MapID == mapID {
				filtered = append(filtered, sess)
			}
		}
		sessions = filtered
	}

	respondJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.CloseSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[SESSION] closed id=%s", sessionID)
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Session closed successfully",
	})
}

// handleDispatch applies one action, or a JSON array of actions in order
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var raw json.RawMessage
	if !decodeBody(w, r, &raw) {
		return
	}

	var actions []controller.Action
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &actions); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	} else {
		var a controller.Action
		if err := json.Unmarshal(trimmed, &a); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		actions = append(actions, a)
	}
	if len(actions) == 0 {
		respondError(w, http.StatusBadRequest, "at least one action is required")
		return
	}

	var state *controller.State
	for i, a := range actions {
		st, err := s.service.Dispatch(r.Context(), sessionID, a)
		if err != nil {
			respondError(w, statusFor(err), fmt.Sprintf("action %d (%s): %v", i, a.Type, err))
			return
		}
		state = st
	}

	log.Printf("[EVENT] session=%s actions=%d last=%s mode=%s selected=%d version=%d",
		sessionID, len(actions), actions[len(actions)-1].Type, state.Mode, state.Selection.Count, state.Version)
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	sel, err := s.service.Selection(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sel)
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.Grid(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleRegionFromSelection(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req service.SelectionRegionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	reg, err := s.service.CreateRegionFromSelection(r.Context(), sessionID, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[REGION] from-selection session=%s id=%s cells=%d", sessionID, reg.ID, len(reg.Cells))
	respondJSON(w, http.StatusCreated, reg)
}

func (s *Server) handleWorldRegion(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req service.WorldRegionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.service.CreateWorldRegion(r.Context(), sessionID, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("[REGION] world session=%s id=%s nested=%s image=%dx%d",
		sessionID, result.Region.ID, result.Map.ID, result.Map.Config.ImageWidth, result.Map.Config.ImageHeight)
	respondJSON(w, http.StatusCreated, result)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "WebSocket not available", http.StatusServiceUnavailable)
		return
	}

	query := r.URL.Query()
	if mapID := query.Get("map"); mapID != "" {
		if _, err := s.service.GetMap(r.Context(), mapID); err != nil {
			http.Error(w, "Invalid map", http.StatusNotFound)
			return
		}
		s.hub.ServeMap(w, r, mapID)
		return
	}

	sessionID := query.Get("session")
	if sessionID == "" {
		http.Error(w, "session or map parameter required", http.StatusBadRequest)
		return
	}

	info, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeSession(w, r, info.ID)
	// Initial snapshot so the client does not wait for the next input
	s.hub.BroadcastState(info.ID, info.State)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
