// Package httpapi is the HTTP transport (spec.md §6, SPEC_FULL.md C15):
// a net/http ServeMux, a small middleware chain, and handlers that adapt
// JSON requests/responses onto the ingestion/retrieval/admin controllers.
package httpapi

import (
	"net/http"
	"time"

	"github.com/evidencevault/vault/internal/logging"
	"github.com/evidencevault/vault/internal/metrics"
	"github.com/evidencevault/vault/internal/server/admin"
	"github.com/evidencevault/vault/internal/server/config"
	"github.com/evidencevault/vault/internal/server/ingestion"
	"github.com/evidencevault/vault/internal/server/retrieval"
)

// Server wires the ingestion, retrieval and admin controllers onto HTTP
// routes. It holds no business logic of its own beyond request/response
// shaping, authentication, and the health/ready/metrics surface spec.md
// §6 names as out-of-core but required ambient endpoints.
type Server struct {
	cfg       *config.Config
	logger    logging.Logger
	metrics   *metrics.Registry
	auth      *Authenticator
	ingestion *ingestion.Controller
	retrieval *retrieval.Controller
	admin     *admin.Controller
	ready     func() error
}

func NewServer(
	cfg *config.Config,
	logger logging.Logger,
	metricsRegistry *metrics.Registry,
	authn *Authenticator,
	ingestionController *ingestion.Controller,
	retrievalController *retrieval.Controller,
	adminController *admin.Controller,
	ready func() error,
) *Server {
	return &Server{
		cfg:       cfg,
		logger:    logger,
		metrics:   metricsRegistry,
		auth:      authn,
		ingestion: ingestionController,
		retrieval: retrievalController,
		admin:     adminController,
		ready:     ready,
	}
}

// Handler builds the full middleware-wrapped mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/upload/init", s.handleUploadInit)
	mux.HandleFunc("POST /v1/upload/complete", s.handleUploadComplete)

	mux.HandleFunc("GET /v1/artifacts/{digest}", s.handleDownload)
	mux.HandleFunc("GET /v1/artifacts/{digest}/meta", s.handleMeta)
	mux.HandleFunc("GET /v1/artifacts/{digest}/verify", s.handleVerify)

	mux.HandleFunc("POST /v1/admin/retention/sweep", s.handleRetentionSweep)
	mux.HandleFunc("POST /v1/admin/ipfs/pin", s.handleIPFSPin)
	mux.HandleFunc("POST /v1/admin/ipfs/unpin", s.handleIPFSUnpin)
	mux.HandleFunc("POST /v1/admin/rescan", s.handleRescan)
	mux.HandleFunc("GET /v1/admin/artifacts", s.handleAdminListArtifacts)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	var h http.Handler = mux
	h = withCORS(s.cfg.CORSAllowlist, h)
	h = withRecover(s.logger, h)
	h = withLogging(s.logger, h)
	return h
}

// handleHealth and handleReady both report liveness via the same
// ready check (typically db.Ping) — spec.md §6 documents /health as
// 200|503, not an unconditional 200.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeLivenessStatus(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.writeLivenessStatus(w)
}

func (s *Server) writeLivenessStatus(w http.ResponseWriter) {
	if s.ready != nil {
		if err := s.ready(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_, _ = w.Write([]byte(s.metrics.Render()))
}

// NewHTTPServer builds a *http.Server bound to addr with the sane
// timeouts a production listener needs, matching the teacher's pattern
// of never leaving connection deadlines unset.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
}
