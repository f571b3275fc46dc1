package web

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/openvault/rebalancer/internal/logger"
	"github.com/openvault/rebalancer/internal/pool"
	"github.com/openvault/rebalancer/internal/state"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer exposes the pool's observable state over HTTP.
type WebServer struct {
	router    *mux.Router
	port      string
	pool      *pool.Pool
	dbEnabled bool
}

// NewWebServer creates a new web server instance serving the given pool.
// dbEnabled controls whether the persisted swap history endpoint is on.
func NewWebServer(port string, p *pool.Pool, dbEnabled bool) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router:    mux.NewRouter(),
		port:      port,
		pool:      p,
		dbEnabled: dbEnabled,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/pool/summary", ws.handleGetPoolSummary).Methods("GET")
	api.HandleFunc("/pool/swaps", ws.handleGetSwaps).Methods("GET")
	api.HandleFunc("/pool/swaps/{index}", ws.handleGetSwap).Methods("GET")
	api.HandleFunc("/pool/history", ws.handleGetSwapHistory).Methods("GET")
	api.HandleFunc("/accounts/{address}", ws.handleGetAccount).Methods("GET")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	hasErrors := false

	dbHealthy := true
	if ws.dbEnabled {
		if err := state.TestDBConnection(); err != nil {
			dbHealthy = false
			hasErrors = true
		}
	}

	poolHealthy := true
	if _, err := ws.pool.Summary(); err != nil {
		// Usually a stale or unreachable price feed.
		poolHealthy = false
		hasErrors = true
	}

	overallStatus := "OK"
	if hasErrors {
		overallStatus = "DEGRADED"
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "rebalancer-pool-keeper",
			"version": "1.0.0",
		},
		"pool_status": map[string]interface{}{
			"database_enabled": ws.dbEnabled,
			"database_healthy": dbHealthy,
			"price_feed_fresh": poolHealthy,
			"last_invest":      ws.pool.LastInvest(),
		},
	}

	statusCode := http.StatusOK
	if hasErrors {
		statusCode = http.StatusServiceUnavailable
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetPoolSummary returns the pool's current observable state.
func (ws *WebServer) handleGetPoolSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := ws.pool.Summary()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get pool summary")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve pool summary")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, summary)
}

// handleGetSwaps returns the in-memory swap log.
func (ws *WebServer) handleGetSwaps(w http.ResponseWriter, r *http.Request) {
	swaps := ws.pool.Swaps()

	response := map[string]interface{}{
		"swaps": swaps,
		"count": len(swaps),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetSwap returns a single swap log entry by index
func (ws *WebServer) handleGetSwap(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	indexStr := vars["index"]

	index, err := strconv.Atoi(indexStr)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid swap index")
		return
	}

	swap, err := ws.pool.Swap(index)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Swap not found")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, swap)
}

// handleGetSwapHistory returns persisted swaps from the database.
func (ws *WebServer) handleGetSwapHistory(w http.ResponseWriter, r *http.Request) {
	if !ws.dbEnabled {
		ws.writeErrorResponse(w, http.StatusNotFound, "Persistence is disabled")
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	rows, err := state.ListSwaps(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get swap history")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve swap history")
		return
	}

	response := map[string]interface{}{
		"swaps": rows,
		"count": len(rows),
		"limit": limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetAccount returns the per-depositor observable state.
func (ws *WebServer) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	address := vars["address"]

	summary, err := ws.pool.AccountSummaryFor(address)
	if err != nil {
		webLogger.Error().Err(err).Str("address", address).Msg("Failed to get account summary")
		ws.writeErrorResponse(w, http.StatusNotFound, "Account not found")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, summary)
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
