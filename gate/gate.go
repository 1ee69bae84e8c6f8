// Package gate decides, from the combined auth and clinic-selection state,
// whether the console shows the app, a loading screen or a redirect.
package gate

import (
	"github.com/dentatrack/console/auth"
	"github.com/dentatrack/console/clinics"
)

// Decision is the navigation outcome for the current state.
type Decision string

const (
	ShowLoading          Decision = "show-loading"
	RedirectLogin        Decision = "redirect-to-login"
	RedirectCreateClinic Decision = "redirect-to-create-clinic"
	RenderApp            Decision = "render-app"
)

// Decide is a pure function of the two manager snapshots; first match wins.
//
// An assistant with no clinics is not funneled into clinic creation:
// assistants join clinics via invitation and never create one, so their empty
// state falls through to the app, which must treat a nil active clinic as
// "no clinic context".
func Decide(authSnap auth.Snapshot, clinicSnap clinics.Snapshot) Decision {
	if authSnap.Loading() {
		return ShowLoading
	}
	if !authSnap.Authenticated() {
		return RedirectLogin
	}
	if clinicSnap.Loading {
		return ShowLoading
	}
	if clinicSnap.HasFetched &&
		len(clinicSnap.Clinics) == 0 &&
		clinicSnap.Active == nil &&
		authSnap.User != nil &&
		authSnap.User.Role.CanCreateClinic() {
		return RedirectCreateClinic
	}
	return RenderApp
}
