// Package server exposes the console over a small local JSON surface: the
// navigation-gate decision, the auth and clinic operations, and proxies for
// the clinic-scoped feature services.
package server

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/dentatrack/console/appointments"
	"github.com/dentatrack/console/auth"
	"github.com/dentatrack/console/clinics"
	"github.com/dentatrack/console/dashboard"
	"github.com/dentatrack/console/inventory"
	"github.com/dentatrack/console/invitations"
	"github.com/dentatrack/console/products"
)

// Deps holds the wired SDK the facade proxies.
type Deps struct {
	Auth         *auth.Manager
	Selector     *clinics.Selector
	Clinics      *clinics.Service
	Products     *products.Service
	Appointments *appointments.Service
	Inventory    *inventory.Service
	Invitations  *invitations.Service
	Dashboard    *dashboard.Service
}

type Server struct {
	mux  *http.ServeMux
	log  zerolog.Logger
	deps Deps
}

// New wires the routes. All dependencies are required.
func New(deps Deps, log zerolog.Logger) (*Server, error) {
	if deps.Auth == nil || deps.Selector == nil {
		return nil, errors.New("[server.New] auth manager and clinic selector are required")
	}
	if deps.Clinics == nil || deps.Products == nil || deps.Appointments == nil ||
		deps.Inventory == nil || deps.Invitations == nil || deps.Dashboard == nil {
		return nil, errors.New("[server.New] all services are required")
	}

	s := &Server{
		mux:  http.NewServeMux(),
		log:  log,
		deps: deps,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/state", s.handleState)

	s.mux.HandleFunc("POST /api/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/logout", s.handleLogout)
	s.mux.HandleFunc("POST /api/register", s.handleRegister)
	s.mux.HandleFunc("GET /api/invitations/validate", s.handleValidateInvitation)

	s.mux.HandleFunc("GET /api/clinics", s.handleListClinics)
	s.mux.HandleFunc("POST /api/clinics", s.handleCreateClinic)
	s.mux.HandleFunc("POST /api/clinics/active", s.handleSetActiveClinic)
	s.mux.HandleFunc("GET /api/clinics/{id}/staff", s.handleClinicStaff)
	s.mux.HandleFunc("GET /api/clinics/{id}/is-owner", s.handleClinicIsOwner)
	s.mux.HandleFunc("DELETE /api/clinics/{id}/users/{userID}", s.handleRemoveClinicUser)

	s.mux.HandleFunc("GET /api/products", s.handleListProducts)
	s.mux.HandleFunc("POST /api/products", s.handleCreateProduct)
	s.mux.HandleFunc("POST /api/products/{id}/stock", s.handleUpdateStock)
	s.mux.HandleFunc("GET /api/products/low-stock", s.handleLowStockProducts)

	s.mux.HandleFunc("GET /api/appointments", s.handleListAppointments)
	s.mux.HandleFunc("POST /api/appointments", s.handleCreateAppointment)
	s.mux.HandleFunc("PATCH /api/appointments/{id}/status", s.handleAppointmentStatus)

	s.mux.HandleFunc("GET /api/inventory-logs", s.handleInventoryLogs)
	s.mux.HandleFunc("GET /api/inventory-logs/export", s.handleInventoryExport)

	s.mux.HandleFunc("POST /api/invitations", s.handleCreateInvitation)
	s.mux.HandleFunc("GET /api/invitations", s.handleListInvitations)

	s.mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.withRecovery(s.withLogging(s.mux)).ServeHTTP(w, r)
}
