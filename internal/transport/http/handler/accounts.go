package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-batchform-api/internal/application/account"
	"github.com/go-batchform-api/internal/domain"
	"github.com/go-batchform-api/internal/transport/http/middleware"
)

// AccountHandler handles registration, login/logout and self-service
// account endpoints.
type AccountHandler struct {
	svc account.Service
}

func NewAccountHandler(svc account.Service) *AccountHandler { return &AccountHandler{svc: svc} }

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req account.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.svc.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Envelope{
		Message:      "success create user",
		Data:         userData(result.User),
		Verification: verificationData(result.Verification),
	})
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req account.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.svc.Login(r.Context(), req)
	if err != nil {
		// Unknown email and bad password both echo the attempted email.
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeJSON(w, http.StatusNotFound, Envelope{
				Message: "failed login",
				Data:    map[string]interface{}{"email": req.Email},
			})
		case errors.Is(err, domain.ErrUnauthorized):
			writeJSON(w, http.StatusUnauthorized, Envelope{
				Message: "authorization invalid",
				Data:    map[string]interface{}{"email": req.Email},
			})
		default:
			writeServiceError(w, err)
		}
		return
	}
	data := userData(result.User)
	data["token"] = result.AccessToken
	writeJSON(w, http.StatusCreated, Envelope{Message: "login success", Data: data})
}

func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authorization invalid")
		return
	}
	if err := h.svc.Logout(r.Context(), claims.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeMessage(w, http.StatusCreated, "logout success")
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authorization invalid")
		return
	}
	u, err := h.svc.GetSelf(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Message: "success", Data: userData(u)})
}

func (h *AccountHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authorization invalid")
		return
	}
	var req struct {
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := h.svc.UpdatePassword(r.Context(), claims.UserID, req.Password, req.ConfirmPassword)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Envelope{Message: "success update password", Data: userData(u)})
}

func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authorization invalid")
		return
	}
	var req struct {
		NewUsername string `json:"new_username"`
		NewEmail    string `json:"new_email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	upd, err := h.svc.UpdateProfile(r.Context(), claims.UserID, req.NewUsername, req.NewEmail)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Envelope{Message: "success update user", Data: profileData(upd)})
}

func (h *AccountHandler) UpdateUsername(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authorization invalid")
		return
	}
	var req struct {
		NewUsername string `json:"new_username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	upd, err := h.svc.UpdateUsername(r.Context(), claims.UserID, req.NewUsername)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Envelope{Message: "success update username", Data: profileData(upd)})
}

func (h *AccountHandler) UpdateEmail(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authorization invalid")
		return
	}
	var req struct {
		NewEmail string `json:"new_email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	upd, err := h.svc.UpdateEmail(r.Context(), claims.UserID, req.NewEmail)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Envelope{Message: "success update email", Data: profileData(upd)})
}

func (h *AccountHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authorization invalid")
		return
	}
	var req struct {
		Filename string `json:"filename"`
		Data     string `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := h.svc.SetAvatar(r.Context(), claims.UserID, req.Filename, req.Data)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Envelope{Message: "success update avatar", Data: userData(u)})
}

// profileData extends the user summary with new_username/new_email, present
// only when the stored value changed.
func profileData(upd *account.ProfileUpdate) map[string]interface{} {
	data := userData(upd.User)
	if upd.NewUsername != nil {
		data["new_username"] = *upd.NewUsername
	}
	if upd.NewEmail != nil {
		data["new_email"] = *upd.NewEmail
	}
	return data
}
