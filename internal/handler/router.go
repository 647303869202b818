package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/segyhp/loan-ledger/internal/auth"
	"github.com/segyhp/loan-ledger/pkg/response"
)

// NewRouter wires the loan and health routes. Loan routes sit behind the
// guard; health routes are open.
func NewRouter(loans *LoanHandler, health *HealthHandler, guard *auth.Guard, allowedOrigins []string, logger *zap.Logger) http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.RequestID, middleware.RealIP, response.LoggingMiddleware(logger), middleware.Recoverer)

	// Health check
	router.HandleFunc("/health", health.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", health.Ready).Methods(http.MethodGet)

	api := router.PathPrefix("/loans").Subrouter()
	api.Handle("/create", guard.RequireAdmin(http.HandlerFunc(loans.CreateLoan))).Methods(http.MethodPost)
	api.Handle("/{id}", guard.RequireMember(http.HandlerFunc(loans.GetLoan))).Methods(http.MethodGet)
	api.Handle("/{id}/post", guard.RequireAdmin(http.HandlerFunc(loans.PostRecord))).Methods(http.MethodPost)

	// cors wraps the router so preflight requests never need a matching route
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	})(router)
}
