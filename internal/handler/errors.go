package handler

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/pkordes/places-api/internal/domain"
)

// callSitePrefix matches the "pkg.Type.Method: " prefixes added while an
// error travels up through repo and service.
var callSitePrefix = regexp.MustCompile(`^(?:[a-z]+\.[A-Za-z]+(?:\.[A-Za-z]+)?: )+`)

// unwrapMessage extracts the human-readable part of err that follows the
// sentinel's own text, minus call-site prefixes.
// e.g. "service.PlaceService.Create: validation error: name is required" → "name is required"
func unwrapMessage(err, sentinel error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	marker := sentinel.Error() + ": "
	if i := strings.Index(msg, marker); i >= 0 {
		msg = msg[i+len(marker):]
	}
	return callSitePrefix.ReplaceAllString(msg, "")
}

// writeServiceError maps a service error onto a status code and envelope.
// action names the failed operation for store failures ("create", "update",
// "delete"); errors that match no domain sentinel are logged and reported
// as a generic 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, action string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Place not found")
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, unwrapMessage(err, domain.ErrValidation))
	case errors.Is(err, domain.ErrStoreFailure):
		s.log.ErrorContext(r.Context(), "store failure", "action", action, "error", err)
		writeError(w, http.StatusInternalServerError,
			"Failed to "+action+" place: "+unwrapMessage(err, domain.ErrStoreFailure))
	default:
		s.log.ErrorContext(r.Context(), "unexpected error", "action", action, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
