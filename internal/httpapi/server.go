// Package httpapi provides the HTTP API over the sync client: connection
// status, the aggregate mirror, the order ledger, and the computation
// endpoints. Every JSON body uses the domain.Response envelope.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"posync/internal/compute"
	"posync/internal/conn"
	"posync/internal/domain"
	"posync/internal/state"
	"posync/internal/store"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// StatusSource reports connection status.
type StatusSource interface {
	Status() conn.Status
}

// SyncControl is the connection surface the API exposes: status, manual
// reconnect, and outbound messages. *conn.Manager implements it.
type SyncControl interface {
	StatusSource
	Reconnect() error
	Send(msgType string, payload any)
}

// Server serves the posync HTTP API.
type Server struct {
	ctl    SyncControl
	state  *state.Store
	ledger store.OrderLedger // nil disables /api/ledger
	now    func() time.Time
	log    *slog.Logger
}

// NewServer creates a new HTTP API server.
func NewServer(ctl SyncControl, st *state.Store, ledger store.OrderLedger, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		ctl:    ctl,
		state:  st,
		ledger: ledger,
		now:    time.Now,
		log:    log.With("component", "httpapi"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/stream", s.handleStream)
	mux.HandleFunc("POST /api/reconnect", s.handleReconnect)
	mux.HandleFunc("POST /api/send", s.handleSend)
	mux.HandleFunc("POST /api/orders/totals", s.handleOrderTotals)
	mux.HandleFunc("GET /api/pagination", s.handlePagination)
	mux.HandleFunc("GET /api/date-range", s.handleDateRange)
	mux.HandleFunc("GET /api/periods", s.handlePeriods)
	mux.HandleFunc("GET /api/ledger/{date}", s.handleLedger)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func (s *Server) ok(w http.ResponseWriter, data any, message string) {
	writeJSON(w, http.StatusOK, domain.Success(data, message, s.now()))
}

func (s *Server) fail(w http.ResponseWriter, status int, message string, errs ...string) {
	writeJSON(w, status, domain.Failure(message, errs, status, s.now()))
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.ok(w, s.ctl.Status(), "connection status")
}

// handleReconnect restarts the connection, typically after reconnect
// attempts were exhausted. It is a no-op while connecting or connected.
func (s *Server) handleReconnect(w http.ResponseWriter, _ *http.Request) {
	if err := s.ctl.Reconnect(); err != nil {
		s.fail(w, http.StatusConflict, "reconnect failed", err.Error())
		return
	}
	s.log.Info("manual reconnect requested")
	writeJSON(w, http.StatusAccepted, domain.Success(s.ctl.Status(), "reconnect started", s.now()))
}

// sendRequest is the body of POST /api/send.
type sendRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// handleSend forwards one message over the sync connection. Delivery is
// fire-and-forget; the request is refused when the connection is down.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.fail(w, http.StatusBadRequest, "invalid send body", err.Error())
		return
	}
	if req.Type == "" {
		s.fail(w, http.StatusBadRequest, "invalid send body", "type is required")
		return
	}
	if len(req.Payload) == 0 {
		req.Payload = json.RawMessage("null")
	}
	st := s.ctl.Status()
	if !st.Connected {
		s.fail(w, http.StatusConflict, "not connected", "state is "+st.State.String())
		return
	}
	s.ctl.Send(req.Type, req.Payload)
	writeJSON(w, http.StatusAccepted, domain.Success(st, "message queued", s.now()))
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	s.ok(w, s.state.Snapshot(), "aggregate snapshot")
}

func (s *Server) handleOrderTotals(w http.ResponseWriter, r *http.Request) {
	var in domain.OrderInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		s.fail(w, http.StatusBadRequest, "invalid order body", err.Error())
		return
	}
	s.ok(w, compute.Totals(in), "order totals")
}

// handlePagination coerces malformed query values to 0.
func (s *Server) handlePagination(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := compute.Paginate(
		int(compute.Int(q.Get("page"))),
		int(compute.Int(q.Get("limit"))),
		int(compute.Int(q.Get("totalCount"))),
	)
	s.ok(w, p, "pagination")
}

func (s *Server) handleDateRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v := compute.ValidateDateRange(q.Get("start"), q.Get("end"))
	if !v.IsValid {
		s.fail(w, http.StatusBadRequest, "invalid date range", v.Errors...)
		return
	}
	s.ok(w, v, "valid date range")
}

// handlePeriods derives the reporting windows from ?at= (RFC 3339), or from
// the current time when absent.
func (s *Server) handlePeriods(w http.ResponseWriter, r *http.Request) {
	ref := s.now()
	if at := r.URL.Query().Get("at"); at != "" {
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			s.fail(w, http.StatusBadRequest, "invalid reference time", err.Error())
			return
		}
		ref = t
	}
	s.ok(w, compute.AnalyticsPeriods(ref), "analytics periods")
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		s.fail(w, http.StatusNotFound, "ledger not configured")
		return
	}
	day, err := time.Parse("2006-01-02", r.PathValue("date"))
	if err != nil {
		s.fail(w, http.StatusBadRequest, "invalid date", err.Error())
		return
	}
	entries, err := s.ledger.ReadDay(r.Context(), day)
	if err != nil {
		s.log.Error("reading ledger", "date", r.PathValue("date"), "error", err)
		s.fail(w, http.StatusInternalServerError, "reading ledger failed")
		return
	}
	s.ok(w, summarize(r.PathValue("date"), entries), "ledger")
}
