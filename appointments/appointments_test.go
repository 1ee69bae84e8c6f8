package appointments_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentatrack/console/api"
	"github.com/dentatrack/console/appointments"
	"github.com/dentatrack/console/session"
	"github.com/dentatrack/console/session/storefake"
)

func serviceAgainst(t *testing.T, handler http.Handler) *appointments.Service {
	t.Helper()
	backend := httptest.NewServer(handler)
	t.Cleanup(backend.Close)

	store := storefake.NewFakeStore()
	require.NoError(t, store.Save(&session.Session{AccessToken: "access-1", RefreshToken: "refresh-1"}))
	return appointments.NewService(api.New(backend.URL, store))
}

func TestStatusValid(t *testing.T) {
	for _, s := range []appointments.Status{
		appointments.StatusScheduled,
		appointments.StatusCompleted,
		appointments.StatusCanceled,
	} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, appointments.Status("POSTPONED").Valid())
}

func TestCreate(t *testing.T) {
	when := time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /appointments", func(w http.ResponseWriter, r *http.Request) {
		var data appointments.CreateAppointmentData
		require.NoError(t, json.NewDecoder(r.Body).Decode(&data))
		assert.Equal(t, "Ada Doyle", data.PatientName)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(appointments.Appointment{
			ID:          "a1",
			ClinicID:    data.ClinicID,
			DateTime:    data.DateTime,
			PatientName: data.PatientName,
			Status:      appointments.StatusScheduled,
		})
	})
	service := serviceAgainst(t, mux)

	appt, err := service.Create(context.Background(), appointments.CreateAppointmentData{
		ClinicID:        "c1",
		DateTime:        when,
		DurationMinutes: 30,
		PatientName:     "Ada Doyle",
		Reason:          "checkup",
	})
	require.NoError(t, err)
	assert.Equal(t, "a1", appt.ID)
	assert.Equal(t, appointments.StatusScheduled, appt.Status)
}

func TestCreateValidatesForm(t *testing.T) {
	service := serviceAgainst(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("invalid form must not reach the API")
	}))

	_, err := service.Create(context.Background(), appointments.CreateAppointmentData{
		ClinicID:    "c1",
		PatientName: "Ada Doyle",
	})
	assert.Error(t, err)
}

func TestUpdateStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /appointments/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]appointments.Status
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, appointments.StatusCompleted, body["status"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(appointments.Appointment{ID: r.PathValue("id"), Status: body["status"]})
	})
	service := serviceAgainst(t, mux)

	appt, err := service.UpdateStatus(context.Background(), "a1", appointments.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, appointments.StatusCompleted, appt.Status)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	service := serviceAgainst(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("invalid status must not reach the API")
	}))

	_, err := service.UpdateStatus(context.Background(), "a1", appointments.Status("POSTPONED"))
	assert.Error(t, err)
}
