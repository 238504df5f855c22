package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"bank-ledger/pkg/ledger"
	"bank-ledger/pkg/logging"
	"bank-ledger/pkg/storage"
	"bank-ledger/pkg/teller"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Server exposes the ledger over HTTP.
type Server struct {
	teller   *teller.Teller
	registry *prometheus.Registry
	router   *mux.Router
	server   *http.Server
	config   ServerConfig
	logger   *logging.Logger

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	// Address to listen on (e.g., ":8080")
	Address string

	// ReadTimeout for HTTP requests
	ReadTimeout time.Duration

	// WriteTimeout for HTTP responses
	WriteTimeout time.Duration

	// IdleTimeout for keep-alive connections
	IdleTimeout time.Duration

	// StoreTimeout bounds snapshot save and restore requests
	StoreTimeout time.Duration
}

// DefaultServerConfig returns a default configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Address:      ":8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		StoreTimeout: 10 * time.Second,
	}
}

// NewServer creates the API server. HTTP metrics are registered in registry,
// which /metrics also serves; a nil registry gets a fresh one.
func NewServer(t *teller.Teller, registry *prometheus.Registry, config ServerConfig) (*Server, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	s := &Server{
		teller:   t,
		registry: registry,
		config:   config,
		logger:   logging.Global().Named("api"),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "api_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "api_http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
	}

	for _, c := range []prometheus.Collector{s.requests, s.duration} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	r := mux.NewRouter()
	r.Use(s.requestIDMiddleware, s.metricsMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.HandleFunc("/accounts", s.handleOpenAccount).Methods(http.MethodPost)
	r.HandleFunc("/accounts", s.handleListAccounts).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{id}", s.handleGetAccount).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{id}/transactions", s.handleListTransactions).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{id}/transactions", s.handlePostTransaction).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{id}/accrue", s.handleAccrue).Methods(http.MethodPost)

	r.HandleFunc("/snapshot", s.handleSave).Methods(http.MethodPost)
	r.HandleFunc("/snapshot/restore", s.handleRestore).Methods(http.MethodPost)

	s.router = r
	s.server = &http.Server{
		Addr:         config.Address,
		Handler:      r,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s, nil
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("server listening", zap.String("address", s.config.Address))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type openAccountRequest struct {
	Kind   string      `json:"kind"`
	Amount json.Number `json:"amount"`
	Date   string      `json:"date"`
}

type transactionRequest struct {
	Amount json.Number `json:"amount"`
	Date   string      `json:"date"`
}

type transactionResponse struct {
	Date    ledger.Date     `json:"date"`
	Amount  decimal.Decimal `json:"amount"`
	Exempt  bool            `json:"exempt"`
	Display string          `json:"display"`
}

func toTransactionResponse(t ledger.Transaction) transactionResponse {
	return transactionResponse{
		Date:    t.Date(),
		Amount:  t.Amount(),
		Exempt:  t.Exempt(),
		Display: t.String(),
	}
}

type accrualResponse struct {
	PeriodEnd  ledger.Date           `json:"period_end"`
	Interest   transactionResponse   `json:"interest"`
	Fee        *transactionResponse  `json:"fee,omitempty"`
	FeeCharged bool                  `json:"fee_charged"`
	Account    teller.AccountSummary `json:"account"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"accounts":  len(s.teller.Accounts()),
	})
}

// handleStatus returns detailed status information.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.teller.FilterStats()
	filter := map[string]interface{}{
		"queries":         stats.TotalQueries,
		"rejected":        stats.Rejected,
		"false_positives": stats.FalsePositives,
		"capacity":        stats.Capacity,
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uptime":    time.Since(startTime).String(),
		"today":     s.teller.Today(),
		"accounts":  len(s.teller.Accounts()),
		"id_filter": filter,
	})
}

func (s *Server) handleOpenAccount(w http.ResponseWriter, r *http.Request) {
	var req openAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	summary, err := s.teller.OpenAccount(r.Context(), req.Kind, req.Amount.String(), req.Date)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}

	w.Header().Set("Location", "/accounts/"+strconv.Itoa(summary.ID))
	writeJSON(w, http.StatusCreated, summary)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.teller.Accounts())
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	summary, err := s.teller.Account(id)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	txs, err := s.teller.Transactions(id)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}

	out := make([]transactionResponse, len(txs))
	for i, t := range txs {
		out[i] = toTransactionResponse(t)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePostTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	summary, err := s.teller.Post(r.Context(), id, req.Amount.String(), req.Date)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

func (s *Server) handleAccrue(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	accrual, summary, err := s.teller.Accrue(r.Context(), id)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}

	resp := accrualResponse{
		PeriodEnd:  accrual.PeriodEnd,
		Interest:   toTransactionResponse(accrual.Interest),
		FeeCharged: accrual.FeeCharged,
		Account:    summary,
	}
	if accrual.FeeCharged {
		fee := toTransactionResponse(accrual.Fee)
		resp.Fee = &fee
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.config.StoreTimeout)
	defer cancel()

	meta, err := s.teller.Save(ctx)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.config.StoreTimeout)
	defer cancel()

	meta, err := s.teller.Load(ctx)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// accountID parses the {id} route variable, writing a 400 on failure.
func accountID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "account id must be an integer")
		return 0, false
	}
	return id, true
}

// statusFor maps ledger, teller and storage errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case ledger.IsInvalidInput(err), errors.Is(err, ledger.ErrUnknownAccountKind):
		return http.StatusBadRequest
	case errors.Is(err, teller.ErrAccountNotFound), storage.IsNotFound(err):
		return http.StatusNotFound
	case ledger.IsOverdraw(err), ledger.IsLimit(err), ledger.IsSequence(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, teller.ErrNoStore):
		return http.StatusNotImplemented
	case storage.IsCircuitOpen(err), errors.Is(err, storage.ErrUnavailable):
		return http.StatusServiceUnavailable
	case storage.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", w.Header().Get("X-Request-ID")),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"error": msg})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// requestIDMiddleware tags every response with an X-Request-ID, reusing the caller's if present.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware records request counts and latencies per route template.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		srw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(srw, r)

		endpoint := getEndpoint(r)
		s.requests.WithLabelValues(r.Method, endpoint, strconv.Itoa(srw.statusCode)).Inc()
		s.duration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

// statusResponseWriter captures the status code
type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// getEndpoint returns a normalized endpoint path for metrics
func getEndpoint(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return r.URL.Path
	}

	pathTemplate, err := route.GetPathTemplate()
	if err != nil {
		return r.URL.Path
	}

	return pathTemplate
}

var startTime = time.Now()
