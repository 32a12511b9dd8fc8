package inventory

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"pantryscan/internal/enrichment"
)

// Server handles HTTP requests from the UI client.
type Server struct {
	service  *Service
	enricher *enrichment.Manager
	config   Config
	auth     BasicAuth
	mux      *http.ServeMux
}

// BasicAuth holds basic authentication credentials.
type BasicAuth struct {
	Username string
	Password string
}

// Config is the effective-settings snapshot reported by /api/config.
type Config struct {
	Version     string        `json:"version"`
	Cooldown    time.Duration `json:"-"`
	Recognizer  string        `json:"recognizer"`
	Transcriber string        `json:"transcriber"`
}

// NewServer creates a new Server with a default mux.
func NewServer(service *Service, enricher *enrichment.Manager, config Config, auth BasicAuth) *Server {
	return NewServerWithMux(service, enricher, config, auth, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing.
func NewServerWithMux(service *Service, enricher *enrichment.Manager, config Config, auth BasicAuth, mux *http.ServeMux) *Server {
	s := &Server{
		service:  service,
		enricher: enricher,
		config:   config,
		auth:     auth,
		mux:      mux,
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials.
func (s *Server) authenticate(r *http.Request) bool {
	if s.auth.Username == "" && s.auth.Password == "" {
		return true // No auth required if not configured
	}

	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, "Basic "))
	if err != nil {
		return false
	}

	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 {
		return false
	}

	return credentials[0] == s.auth.Username && credentials[1] == s.auth.Password
}

// corsMiddleware adds CORS headers and answers preflight requests.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// requireAuth middleware.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="PantryScan"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// registerRoutes registers all API routes on the server's mux.
// Routes must be registered from most specific to least specific.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/scan", s.requireAuth(s.handleScan))

	s.mux.HandleFunc("POST /api/inventory/{name}/expiry", s.requireAuth(s.handleVoiceExpiry))
	s.mux.HandleFunc("PUT /api/inventory/{name}/expiry", s.requireAuth(s.handleManualExpiry))
	s.mux.HandleFunc("GET /api/inventory/history", s.requireAuth(s.handleHistory))
	s.mux.HandleFunc("DELETE /api/inventory/{name}", s.requireAuth(s.handleConsumeItem))
	s.mux.HandleFunc("GET /api/inventory", s.requireAuth(s.handleGetInventory))
	s.mux.HandleFunc("DELETE /api/inventory", s.requireAuth(s.handleClearInventory))

	s.mux.HandleFunc("GET /api/health", s.requireAuth(s.handleHealth))
	s.mux.HandleFunc("GET /api/config", s.requireAuth(s.handleConfig))
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.corsMiddleware(s.mux.ServeHTTP)(w, r)
	}))
}

// ServeHTTP implements http.Handler for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
