package handler

import (
	"net/http"

	"github.com/go-batchform-api/internal/application/activation"
)

// ActivationHandler consumes activation tokens from the email link or the
// web client.
type ActivationHandler struct {
	svc activation.Service
}

func NewActivationHandler(svc activation.Service) *ActivationHandler {
	return &ActivationHandler{svc: svc}
}

func (h *ActivationHandler) Activate(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeMessage(w, http.StatusBadRequest, "token cannot be empty")
		return
	}
	u, err := h.svc.Activate(r.Context(), token)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Message: "user is active", Data: userData(u)})
}
