package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"order_cache/internal/domain"
	"order_cache/internal/script"
	"order_cache/internal/service"
)

// Server exposes the order service over REST and pushes match results over websocket.
type Server struct {
	svc     *service.OrderService
	router  *mux.Router
	hub     *Hub
	origins []string
}

// NewServer creates the API server and subscribes it to the service's match results.
func NewServer(svc *service.OrderService, allowedOrigins []string) *Server {
	s := &Server{
		svc:     svc,
		router:  mux.NewRouter(),
		hub:     NewHub(svc.Metrics()),
		origins: allowedOrigins,
	}

	s.setupRoutes()
	svc.OnMatch(s.BroadcastMatch)
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Orders
	api.HandleFunc("/orders", s.handleAddOrder).Methods("POST")
	api.HandleFunc("/orders", s.handleGetOrders).Methods("GET")
	api.HandleFunc("/orders/purge-filled", s.handlePurgeFilled).Methods("POST")
	api.HandleFunc("/orders/{orderId}", s.handleCancelOrder).Methods("DELETE")
	api.HandleFunc("/users/{user}/orders", s.handleCancelUser).Methods("DELETE")

	// Securities
	api.HandleFunc("/securities/{securityId}/orders", s.handleCancelSecurity).Methods("DELETE")
	api.HandleFunc("/securities/{securityId}/match", s.handleMatch).Methods("POST")
	api.HandleFunc("/securities/{securityId}/reports", s.handleGetReports).Methods("GET")
	api.HandleFunc("/securities/{securityId}/reports/latest", s.handleGetLatestReport).Methods("GET")

	api.HandleFunc("/metrics", s.handleMetrics).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the router wrapped with CORS.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(s.router)
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	go s.hub.Run(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("🌐 API server starting", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleAddOrder(w http.ResponseWriter, r *http.Request) {
	var order domain.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		respondError(w, http.StatusBadRequest, "invalid order", err.Error())
		return
	}
	if order.OrderID == "" {
		order.OrderID = uuid.NewString()
	}
	if err := order.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid order", err.Error())
		return
	}

	s.svc.AddOrder(order)
	respondJSONStatus(w, http.StatusCreated, order)
}

func (s *Server) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	orders := s.svc.GetAllOrders()
	if orders == nil {
		orders = []domain.Order{}
	}
	respondJSON(w, OrdersResponse{Orders: orders, Count: len(orders)})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	s.svc.CancelOrder(mux.Vars(r)["orderId"])
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCancelUser(w http.ResponseWriter, r *http.Request) {
	s.svc.CancelOrdersForUser(mux.Vars(r)["user"])
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCancelSecurity(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("min_qty")
	if raw == "" {
		respondError(w, http.StatusBadRequest, "missing min_qty", "")
		return
	}
	minQty, err := script.ParseQuantity(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid min_qty", err.Error())
		return
	}

	s.svc.CancelOrdersForSecIDWithMinimumQty(mux.Vars(r)["securityId"], minQty)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	policy, err := domain.ParseMatchPolicy(r.URL.Query().Get("policy"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid policy", err.Error())
		return
	}

	report, err := s.svc.Match(mux.Vars(r)["securityId"], policy)
	if err != nil {
		respondError(w, http.StatusBadRequest, "match failed", err.Error())
		return
	}

	respondJSON(w, MatchResponse{
		SecurityID: report.SecurityID,
		Policy:     report.Policy,
		MatchedQty: report.MatchedQty,
		Resident:   report.Resident,
	})
}

func (s *Server) handleGetReports(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid limit", raw)
			return
		}
		limit = n
	}

	reports, err := s.svc.Reports(r.Context(), mux.Vars(r)["securityId"], limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load reports", err.Error())
		return
	}
	if reports == nil {
		reports = []domain.MatchReport{}
	}
	respondJSON(w, reports)
}

func (s *Server) handleGetLatestReport(w http.ResponseWriter, r *http.Request) {
	securityID := mux.Vars(r)["securityId"]
	report, err := s.svc.LatestReport(r.Context(), securityID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load report", err.Error())
		return
	}
	if report == nil {
		respondError(w, http.StatusNotFound, "no match report", securityID)
		return
	}
	respondJSON(w, report)
}

func (s *Server) handlePurgeFilled(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, PurgeResponse{Purged: s.svc.PurgeFilled()})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.svc.Metrics().Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// BroadcastMatch pushes a match result to "matches" and "matches:<securityId>" subscribers.
func (s *Server) BroadcastMatch(report domain.MatchReport) {
	msg := WSMessage{Type: "match", Data: MatchResponse{
		SecurityID: report.SecurityID,
		Policy:     report.Policy,
		MatchedQty: report.MatchedQty,
		Resident:   report.Resident,
	}}
	s.hub.BroadcastToChannel(matchesChannel, msg)
	s.hub.BroadcastToChannel(matchesChannel+":"+report.SecurityID, msg)
}

// ==============================
// Helper Functions
// ==============================

func respondJSON(w http.ResponseWriter, data any) {
	respondJSONStatus(w, http.StatusOK, data)
}

func respondJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("Failed to write response", slog.Any("error", err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string, details string) {
	respondJSONStatus(w, status, ErrorResponse{Error: msg, Details: details})
}
