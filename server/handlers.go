package server

import (
	"net/http"

	"github.com/dentatrack/console/appointments"
	"github.com/dentatrack/console/clinics"
	"github.com/dentatrack/console/gate"
	apperrors "github.com/dentatrack/console/internal/errors"
	"github.com/dentatrack/console/internal/utils"
	"github.com/dentatrack/console/inventory"
	"github.com/dentatrack/console/invitations"
	"github.com/dentatrack/console/products"
	"github.com/dentatrack/console/users"
)

// stateResponse is the console's single source of navigation truth.
type stateResponse struct {
	Decision gate.Decision    `json:"decision"`
	State    string           `json:"state"`
	User     *users.User      `json:"user,omitempty"`
	Clinics  []clinics.Clinic `json:"clinics"`
	Active   *clinics.Clinic  `json:"activeClinic,omitempty"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	authSnap := s.deps.Auth.Snapshot()
	clinicSnap := s.deps.Selector.Snapshot()

	s.writeJSON(w, http.StatusOK, stateResponse{
		Decision: gate.Decide(authSnap, clinicSnap),
		State:    string(authSnap.State),
		User:     authSnap.User,
		Clinics:  clinicSnap.Clinics,
		Active:   clinicSnap.Active,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var credentials users.LoginCredentials
	if err := decodeBody(r, &credentials); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"message": "malformed body"})
		return
	}
	if err := s.deps.Auth.Login(r.Context(), credentials); err != nil {
		s.writeError(w, err)
		return
	}
	s.handleState(w, r)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.deps.Auth.Logout()
	s.writeJSON(w, http.StatusOK, map[string]string{"state": "unauthenticated"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var data users.RegisterData
	if err := decodeBody(r, &data); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"message": "malformed body"})
		return
	}

	var err error
	if token := r.URL.Query().Get("token"); token != "" {
		err = s.deps.Auth.RegisterWithInvite(r.Context(), data, token)
	} else {
		err = s.deps.Auth.Register(r.Context(), data)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	// Registration never authenticates; the caller returns to login.
	s.writeJSON(w, http.StatusCreated, map[string]string{"next": "login"})
}

func (s *Server) handleValidateInvitation(w http.ResponseWriter, r *http.Request) {
	validation, err := s.deps.Invitations.Validate(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, validation)
}

func (s *Server) handleListClinics(w http.ResponseWriter, r *http.Request) {
	snap := s.deps.Selector.Snapshot()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"clinics":      snap.Clinics,
		"activeClinic": snap.Active,
		"hasFetched":   snap.HasFetched,
	})
}

func (s *Server) handleCreateClinic(w http.ResponseWriter, r *http.Request) {
	var data clinics.CreateClinicData
	if err := decodeBody(r, &data); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"message": "malformed body"})
		return
	}
	clinic, err := s.deps.Clinics.Create(r.Context(), data)
	if err != nil {
		s.writeError(w, err)
		return
	}
	// The clinic set changed; recompute the active selection.
	s.deps.Selector.Refresh(r.Context())
	s.writeJSON(w, http.StatusCreated, clinic)
}

func (s *Server) handleSetActiveClinic(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := decodeBody(r, &body); err != nil || body.ID == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"message": "clinic id is required"})
		return
	}
	for _, clinic := range s.deps.Selector.Snapshot().Clinics {
		if clinic.ID == body.ID {
			s.deps.Selector.SetActive(clinic)
			s.writeJSON(w, http.StatusOK, clinic)
			return
		}
	}
	s.writeError(w, apperrors.ErrClinicNotFound)
}

func (s *Server) handleClinicStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := s.deps.Clinics.Staff(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, staff)
}

func (s *Server) handleClinicIsOwner(w http.ResponseWriter, r *http.Request) {
	owner, err := s.deps.Clinics.IsOwner(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"isOwner": owner})
}

func (s *Server) handleRemoveClinicUser(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Clinics.RemoveUser(r.Context(), r.PathValue("id"), r.PathValue("userID")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

// activeClinicID resolves the clinic context for clinic-scoped proxies.
func (s *Server) activeClinicID(w http.ResponseWriter) (string, bool) {
	if id := utils.Value(s.deps.Selector.Active()).ID; id != "" {
		return id, true
	}
	s.writeError(w, apperrors.ErrNoActiveClinic)
	return "", false
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := s.activeClinicID(w)
	if !ok {
		return
	}
	list, err := s.deps.Products.ListByClinic(r.Context(), clinicID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := s.activeClinicID(w)
	if !ok {
		return
	}
	var data products.CreateProductData
	if err := decodeBody(r, &data); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"message": "malformed body"})
		return
	}
	data.ClinicID = clinicID
	product, err := s.deps.Products.Create(r.Context(), data)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, product)
}

func (s *Server) handleUpdateStock(w http.ResponseWriter, r *http.Request) {
	var update products.StockUpdate
	if err := decodeBody(r, &update); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"message": "malformed body"})
		return
	}
	product, err := s.deps.Products.UpdateStock(r.Context(), r.PathValue("id"), update)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleLowStockProducts(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := s.activeClinicID(w)
	if !ok {
		return
	}
	list, err := s.deps.Products.LowStock(r.Context(), clinicID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := s.activeClinicID(w)
	if !ok {
		return
	}
	list, err := s.deps.Appointments.ListByClinic(r.Context(), clinicID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := s.activeClinicID(w)
	if !ok {
		return
	}
	var data appointments.CreateAppointmentData
	if err := decodeBody(r, &data); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"message": "malformed body"})
		return
	}
	data.ClinicID = clinicID
	appt, err := s.deps.Appointments.Create(r.Context(), data)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, appt)
}

func (s *Server) handleAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status appointments.Status `json:"status"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"message": "malformed body"})
		return
	}
	appt, err := s.deps.Appointments.UpdateStatus(r.Context(), r.PathValue("id"), body.Status)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, appt)
}

func inventoryFilters(r *http.Request) inventory.Filters {
	q := r.URL.Query()
	return inventory.Filters{
		ProductID: q.Get("productId"),
		UserID:    q.Get("userId"),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
	}
}

func (s *Server) handleInventoryLogs(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := s.activeClinicID(w)
	if !ok {
		return
	}
	logs, err := s.deps.Inventory.List(r.Context(), clinicID, inventoryFilters(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleInventoryExport(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := s.activeClinicID(w)
	if !ok {
		return
	}
	data, err := s.deps.Inventory.Export(r.Context(), clinicID, inventoryFilters(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="inventory-logs.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleCreateInvitation(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := s.activeClinicID(w)
	if !ok {
		return
	}
	var req invitations.Request
	if err := decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"message": "malformed body"})
		return
	}
	req.ClinicID = clinicID
	inv, err := s.deps.Invitations.Create(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, inv)
}

func (s *Server) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := s.activeClinicID(w)
	if !ok {
		return
	}
	invs, err := s.deps.Invitations.ListByClinic(r.Context(), clinicID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, invs)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	clinicID, ok := s.activeClinicID(w)
	if !ok {
		return
	}
	stats, err := s.deps.Dashboard.Stats(r.Context(), clinicID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}
