package http

import (
	"net/http"

	"cloakroom-backend/internal/handlers"
	"cloakroom-backend/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth        *handlers.AuthHandler
	Records     *handlers.RecordHandler
	AdminRecord *handlers.AdminRecordHandler
	Events      *handlers.EventHandler
	Users       *handlers.UserHandler
	Audit       *handlers.AuditHandler // nil when the database audit sink is off
	Health      *handlers.HealthHandler
	Live        http.HandlerFunc
}

// NewRouter wires the API. uploadDir, when set, is served under /uploads/.
func NewRouter(h Handlers, authMiddleware *middleware.AuthMiddleware, uploadDir string) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.MetricsMiddleware)

	// Stored photos (local storage driver only)
	if uploadDir != "" {
		r.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadDir))))
	}

	// Public API routes - Authentication
	r.HandleFunc("/api/auth/login", h.Auth.Login).Methods("POST")

	authAPI := r.PathPrefix("/api/auth").Subrouter()
	authAPI.Use(authMiddleware.Authenticate)
	authAPI.HandleFunc("/me", h.Auth.Me).Methods("GET")

	// Desk staff and admins
	recordsAPI := r.PathPrefix("/api/records").Subrouter()
	recordsAPI.Use(authMiddleware.Authenticate)
	recordsAPI.HandleFunc("", h.Records.Deposit).Methods("POST")
	recordsAPI.HandleFunc("/token/{token}", h.Records.Lookup).Methods("GET")
	recordsAPI.HandleFunc("/exit/{token}", h.Records.Return).Methods("POST")

	eventsAPI := r.PathPrefix("/api/events").Subrouter()
	eventsAPI.Use(authMiddleware.Authenticate)
	eventsAPI.HandleFunc("", h.Events.List).Methods("GET")

	// Admin-only API
	adminAPI := r.PathPrefix("/api/admin").Subrouter()
	adminAPI.Use(authMiddleware.RequireAdmin)

	adminAPI.HandleFunc("/records/preview-filter", h.AdminRecord.PreviewFilter).Methods("GET")
	adminAPI.HandleFunc("/records", h.AdminRecord.DeleteByFilter).Methods("DELETE")
	adminAPI.HandleFunc("/records/preview-permanent", h.AdminRecord.PreviewPermanent).Methods("GET")
	adminAPI.HandleFunc("/records/permanent", h.AdminRecord.DeletePermanent).Methods("DELETE")
	adminAPI.HandleFunc("/records/preview-delete", h.AdminRecord.PreviewRange).Methods("GET")
	adminAPI.HandleFunc("/records/delete-range", h.AdminRecord.DeleteRange).Methods("DELETE")
	adminAPI.HandleFunc("/records/all", h.AdminRecord.ListAll).Methods("GET")
	adminAPI.HandleFunc("/records/export", h.AdminRecord.Export).Methods("GET")

	adminAPI.HandleFunc("/events", h.Events.Create).Methods("POST")
	adminAPI.HandleFunc("/events", h.Events.DeleteMany).Methods("DELETE")
	adminAPI.HandleFunc("/events/{id:[0-9]+}", h.Events.SetStatus).Methods("PATCH")
	adminAPI.HandleFunc("/events/{name}", h.Events.Delete).Methods("DELETE")

	adminAPI.HandleFunc("/users", h.Users.CreateUser).Methods("POST")
	adminAPI.HandleFunc("/users/{username}", h.Users.GetUser).Methods("GET")
	adminAPI.HandleFunc("/users/{username}", h.Users.DeleteUser).Methods("DELETE")

	// Only mounted when audit entries are also written to the database.
	if h.Audit != nil {
		adminAPI.HandleFunc("/audit", h.Audit.List).Methods("GET")
	}
	adminAPI.HandleFunc("/live", h.Live).Methods("GET")

	// Health endpoints (no auth required)
	r.HandleFunc("/health", h.Health.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", h.Health.ReadinessHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
