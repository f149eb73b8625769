package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/wricardo/carcacity/game/config"
	"github.com/wricardo/carcacity/game/engine"
	"github.com/wricardo/carcacity/game/service"
	"github.com/wricardo/carcacity/transport/websocket"
	"golang.org/x/time/rate"
)

// Server represents the REST API server
type Server struct {
	service    service.GameService
	hub        *websocket.Hub
	router     *mux.Router
	corsOrigin string

	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
	limMu    sync.Mutex
	proxies  []*net.IPNet
}

// Option customises the server.
type Option func(*Server)

// WithRateLimit allows n requests per window from each client IP. n <= 0
// disables limiting.
func WithRateLimit(n int, window time.Duration) Option {
	return func(s *Server) {
		if n <= 0 || window <= 0 {
			s.limit = rate.Inf
			return
		}
		s.limit = rate.Every(window / time.Duration(n))
		s.burst = n
	}
}

// WithCORSOrigin sets Access-Control-Allow-Origin on every response.
func WithCORSOrigin(origin string) Option {
	return func(s *Server) { s.corsOrigin = origin }
}

// WithTrustedProxies lets requests arriving from these networks name the
// client through X-Forwarded-For. Without it the header is ignored.
func WithTrustedProxies(proxies ...*net.IPNet) Option {
	return func(s *Server) { s.proxies = append(s.proxies, proxies...) }
}

// NewServer creates a new API server
func NewServer(gameService service.GameService, hub *websocket.Hub, opts ...Option) *Server {
	s := &Server{
		service:    gameService,
		hub:        hub,
		router:     mux.NewRouter(),
		corsOrigin: "*",
		limit:      rate.Inf,
		limiters:   make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.rateLimit)

	// Lobby management
	api.HandleFunc("/lobbies", s.handleCreateLobby).Methods("POST", "OPTIONS")
	api.HandleFunc("/lobbies", s.handleListLobbies).Methods("GET", "OPTIONS")
	api.HandleFunc("/lobbies/{id}", s.handleGetLobby).Methods("GET", "OPTIONS")
	api.HandleFunc("/lobbies/{id}", s.handleDeleteLobby).Methods("DELETE", "OPTIONS")

	// Presence
	api.HandleFunc("/lobbies/{id}/players", s.handleJoin).Methods("POST", "OPTIONS")
	api.HandleFunc("/lobbies/{id}/players/{clientId}", s.handleLeave).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/lobbies/{id}/players/{clientId}/disconnect", s.handleDisconnect).Methods("POST", "OPTIONS")
	api.HandleFunc("/lobbies/{id}/robots", s.handleAddRobot).Methods("POST", "OPTIONS")
	api.HandleFunc("/lobbies/{id}/robotify", s.handleRobotify).Methods("POST", "OPTIONS")

	// Game operations
	api.HandleFunc("/lobbies/{id}/state", s.handleGetGameState).Methods("GET", "OPTIONS")
	api.HandleFunc("/lobbies/{id}/turn", s.handleCurrentTurn).Methods("GET", "OPTIONS")
	api.HandleFunc("/lobbies/{id}/start", s.handleStart).Methods("POST", "OPTIONS")
	api.HandleFunc("/lobbies/{id}/place", s.handlePlace).Methods("POST", "OPTIONS")
	api.HandleFunc("/lobbies/{id}/reset", s.handleReset).Methods("POST", "OPTIONS")
	api.HandleFunc("/lobbies/{id}/end", s.handleEnd).Methods("POST", "OPTIONS")
	api.HandleFunc("/lobbies/{id}/size", s.handleSetBoardSize).Methods("PUT", "OPTIONS")

	// Tile catalogs
	api.HandleFunc("/catalogs", s.handleListCatalogs).Methods("GET", "OPTIONS")
	api.HandleFunc("/catalogs", s.handleCreateCatalog).Methods("POST", "OPTIONS")
	api.HandleFunc("/catalogs/{name}", s.handleGetCatalog).Methods("GET", "OPTIONS")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.Use(mux.CORSMethodMiddleware(s.router))
	s.router.Use(s.cors)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// cors adds the origin header and answers preflight requests
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimit enforces the per-IP request budget
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limit != rate.Inf && !s.limiter(s.clientIP(r)).Allow() {
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) limiter(ip string) *rate.Limiter {
	s.limMu.Lock()
	defer s.limMu.Unlock()
	l, ok := s.limiters[ip]
	if !ok {
		l = rate.NewLimiter(s.limit, s.burst)
		s.limiters[ip] = l
	}
	return l
}

// clientIP returns the peer address, or when the peer is a trusted proxy the
// rightmost X-Forwarded-For entry that is not itself a trusted proxy.
func (s *Server) clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	if !s.trusted(ip) {
		return ip
	}

	var hops []string
	for _, header := range r.Header.Values("X-Forwarded-For") {
		for _, hop := range strings.Split(header, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				hops = append(hops, hop)
			}
		}
	}
	for i := len(hops) - 1; i >= 0; i-- {
		if !s.trusted(hops[i]) {
			return hops[i]
		}
	}
	if len(hops) > 0 {
		return hops[0]
	}
	return ip
}

func (s *Server) trusted(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range s.proxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service and engine errors onto status codes
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrLobbyNotFound),
		errors.Is(err, service.ErrCatalogNotFound),
		errors.Is(err, config.ErrConfigNotFound),
		errors.Is(err, engine.ErrPlayerNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrLobbyFull),
		errors.Is(err, engine.ErrGameInProgress),
		errors.Is(err, engine.ErrPlayerExists),
		errors.Is(err, engine.ErrNoPlayers):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrInvalidBoardSize),
		errors.Is(err, config.ErrInvalidConfig):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeOptional decodes a JSON body when one is present
func decodeOptional(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}

// Lobby Handlers

func (s *Server) handleCreateLobby(w http.ResponseWriter, r *http.Request) {
	var req service.CreateLobbyRequest
	if err := decodeOptional(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	lobby, err := s.service.CreateLobby(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, lobby)
}

func (s *Server) handleListLobbies(w http.ResponseWriter, r *http.Request) {
	lobbies, err := s.service.ListLobbies(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort") // "created", "accessed" (default)
	order := query.Get("order") // "asc", "desc" (default)
	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.SliceStable(lobbies, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = lobbies[i].CreatedAt, lobbies[j].CreatedAt
		} else {
			ti, tj = lobbies[i].LastAccessedAt, lobbies[j].LastAccessedAt
		}
		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(lobbies)
	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 && l < len(lobbies) {
		lobbies = lobbies[:l]
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(lobbies),
		"total":   total,
		"lobbies": lobbies,
		"sort":    sortBy,
		"order":   order,
	})
}

func (s *Server) handleGetLobby(w http.ResponseWriter, r *http.Request) {
	lobby, err := s.service.GetLobby(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, lobby)
}

func (s *Server) handleDeleteLobby(w http.ResponseWriter, r *http.Request) {
	lobbyID := mux.Vars(r)["id"]

	if err := s.service.DeleteLobby(r.Context(), lobbyID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Lobby %s deleted", lobbyID),
	})
}

// Presence Handlers

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID string `json:"client_id"`
		Name     string `json:"name"`
	}
	if err := decodeOptional(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.Join(r.Context(), mux.Vars(r)["id"], req.ClientID, req.Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := s.service.Leave(r.Context(), vars["id"], vars["clientId"]); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("%s left lobby %s", vars["clientId"], vars["id"]),
	})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := s.service.Disconnect(r.Context(), vars["id"], vars["clientId"]); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("%s disconnected from lobby %s", vars["clientId"], vars["id"]),
	})
}

func (s *Server) handleAddRobot(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Difficulty int `json:"difficulty"`
	}{Difficulty: engine.MaxDifficulty}
	if err := decodeOptional(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Difficulty < 0 || req.Difficulty > engine.MaxDifficulty {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("difficulty must be between 0 and %d", engine.MaxDifficulty))
		return
	}

	robot, err := s.service.AddRobot(r.Context(), mux.Vars(r)["id"], req.Difficulty)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, robot)
}

func (s *Server) handleRobotify(w http.ResponseWriter, r *http.Request) {
	lobbyID := mux.Vars(r)["id"]

	if err := s.service.Robotify(r.Context(), lobbyID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Robots took over lobby %s", lobbyID),
	})
}

// Game Operation Handlers

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetGameState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleCurrentTurn(w http.ResponseWriter, r *http.Request) {
	turn, err := s.service.CurrentTurn(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, turn)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.Start(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	lobbyID := mux.Vars(r)["id"]

	var req service.PlaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.PlaceTile(r.Context(), lobbyID, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	status := "REJECTED"
	if result.Accepted {
		status = "OK"
	}
	log.Printf("[PLACE] lobby=%s player=%s index=%d (%d,%d) status=%s",
		lobbyID, req.PlayerID, req.Index, req.Row, req.Col, status)

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.Reset(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Game reset successfully",
		"state":   state,
	})
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.End(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Game ended",
		"state":   state,
	})
}

func (s *Server) handleSetBoardSize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Size int `json:"size"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	state, err := s.service.SetBoardSize(r.Context(), mux.Vars(r)["id"], req.Size)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

// Catalog Handlers

func (s *Server) handleListCatalogs(w http.ResponseWriter, r *http.Request) {
	catalogs, err := s.service.ListCatalogs(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, catalogs)
}

func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	catalog, err := s.service.LoadCatalog(r.Context(), name)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, catalog)
}

func (s *Server) handleCreateCatalog(w http.ResponseWriter, r *http.Request) {
	var catalog engine.TileCatalog
	if err := json.NewDecoder(r.Body).Decode(&catalog); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if catalog.Name == "" {
		respondError(w, http.StatusBadRequest, "Catalog name is required")
		return
	}
	if err := engine.ValidateCatalog(&catalog); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.service.SaveCatalog(r.Context(), catalog.Name, &catalog); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":    "Catalog saved successfully",
		"catalog_id": catalog.Name,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	lobbyID := r.URL.Query().Get("lobby")
	if lobbyID == "" {
		http.Error(w, "lobby parameter required", http.StatusBadRequest)
		return
	}

	if _, err := s.service.GetLobby(r.Context(), lobbyID); err != nil {
		http.Error(w, "Invalid lobby", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, lobbyID, r.URL.Query().Get("client"))
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
