package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/zatekoja/storefront-catalog/internal/application/catalog"
	"github.com/zatekoja/storefront-catalog/internal/application/services"
)

// maxCommandBody bounds command and session request bodies
const maxCommandBody = 16 << 10

// SessionHandler exposes catalog controller sessions over HTTP
type SessionHandler struct {
	sessions *services.SessionService
	validate *validator.Validate
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *services.SessionService) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		validate: validator.New(),
	}
}

// CreateSessionRequest is the body of POST /api/sessions
type CreateSessionRequest struct {
	View  string `json:"view" validate:"required"`
	Query string `json:"query" validate:"max=2048"`
}

// CreateSession handles POST /api/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	snap, err := h.sessions.Create(r.Context(), req.View, strings.TrimPrefix(req.Query, "?"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/sessions/"+snap.SessionID)
	respondWithJSON(w, http.StatusCreated, snap)
}

// GetSession handles GET /api/sessions/{id}; ?wait=true blocks until settled
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))

	snap, err := h.sessions.Get(r.Context(), r.PathValue("id"), wait)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, snap)
}

// DispatchCommand handles POST /api/sessions/{id}/commands
func (h *SessionHandler) DispatchCommand(w http.ResponseWriter, r *http.Request) {
	var cmd catalog.Command
	if err := decodeBody(w, r, &cmd); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(cmd); err != nil {
		respondWithError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	snap, err := h.sessions.Dispatch(r.Context(), r.PathValue("id"), cmd)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, snap)
}

// Back handles POST /api/sessions/{id}/back
func (h *SessionHandler) Back(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.Back(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, snap)
}

// Forward handles POST /api/sessions/{id}/forward
func (h *SessionHandler) Forward(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.Forward(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, snap)
}

// CloseSession handles DELETE /api/sessions/{id}
func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(w http.ResponseWriter, r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommandBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("invalid request body: %v", err)
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return "invalid request: " + strings.Join(parts, "; ")
}
