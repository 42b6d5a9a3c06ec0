package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-batchform-api/internal/application/batch"
	"github.com/go-batchform-api/internal/domain"
	"github.com/go-batchform-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// BatchHandler handles batch form CRUD endpoints.
type BatchHandler struct {
	svc batch.Service
}

func NewBatchHandler(svc batch.Service) *BatchHandler { return &BatchHandler{svc: svc} }

func (h *BatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authorization invalid")
		return
	}
	var req domain.CreateBatchFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	b, err := h.svc.Create(r.Context(), claims.UserID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Envelope{Message: "success create batch form", Data: b})
}

// List returns the caller's batch forms, or every batch form when ?all=true.
func (h *BatchHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authorization invalid")
		return
	}
	var (
		forms []domain.BatchForm
		err   error
	)
	if r.URL.Query().Get("all") == "true" {
		forms, err = h.svc.List(r.Context())
	} else {
		forms, err = h.svc.ListByUser(r.Context(), claims.UserID)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Message: "success", Data: forms})
}

func (h *BatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Message: "success", Data: b})
}

func (h *BatchHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authorization invalid")
		return
	}
	var req domain.UpdateBatchFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	b, err := h.svc.Update(r.Context(), claims.UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Message: "success update batch form", Data: b})
}

func (h *BatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authorization invalid")
		return
	}
	if err := h.svc.Delete(r.Context(), claims.UserID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "success delete batch form")
}
