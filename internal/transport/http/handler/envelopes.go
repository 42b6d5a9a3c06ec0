package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-batchform-api/internal/domain"
)

// Envelope is the generic response wrapper: message plus optional data,
// per-field errors, and a verification handle for activation flows.
type Envelope struct {
	Message      string              `json:"message,omitempty"`
	Data         interface{}         `json:"data,omitempty"`
	Errors       map[string][]string `json:"errors,omitempty"`
	Verification interface{}         `json:"verification,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Envelope{Message: msg})
}

// userData is the safe user summary: no password hash, no internal avatar id.
func userData(u *domain.User) map[string]interface{} {
	return map[string]interface{}{
		"user_id":    u.UserID,
		"username":   u.Username,
		"email":      u.Email,
		"avatar":     u.Avatar,
		"is_active":  u.IsActive,
		"created_at": u.CreatedAt,
		"updated_at": u.UpdatedAt,
	}
}

func verificationData(v *domain.VerificationHandle) map[string]interface{} {
	return map[string]interface{}{
		"token":      v.Token,
		"created_at": v.CreatedAt,
		"updated_at": v.UpdatedAt,
	}
}

// writeServiceError maps a service error onto the response envelope and
// status code. Handlers with richer context (login echoing the email,
// conflicts echoing the taken fields) handle those cases before calling this.
func writeServiceError(w http.ResponseWriter, err error) {
	var verrs domain.ValidationErrors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusBadRequest, Envelope{Message: "validation error", Errors: verrs})
		return
	}
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		writeJSON(w, http.StatusConflict, Envelope{
			Message: "user already exists",
			Data:    map[string]interface{}{"username": conflict.Username, "email": conflict.Email},
		})
		return
	}
	var inactive *domain.InactiveAccountError
	if errors.As(err, &inactive) {
		writeJSON(w, http.StatusForbidden, Envelope{
			Message:      "user inactive",
			Data:         userData(inactive.User),
			Verification: verificationData(inactive.Verification),
		})
		return
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeMessage(w, http.StatusUnauthorized, "authorization invalid")
	case errors.Is(err, domain.ErrForbidden):
		writeMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrBadRequest):
		writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}
