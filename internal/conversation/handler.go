package conversation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/dental-assistant/internal/appointments"
	"github.com/wolfman30/dental-assistant/internal/dialog"
	"github.com/wolfman30/dental-assistant/pkg/logging"
)

// Handler wires HTTP requests to the conversation service.
type Handler struct {
	service *Service
	engine  Advancer
	slots   dialog.Availability
	logger  *logging.Logger
	now     func() time.Time
}

// NewHandler creates a conversation handler. engine serves the stateless
// endpoint; slots serves the availability endpoints.
func NewHandler(service *Service, engine Advancer, slots dialog.Availability, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service: service,
		engine:  engine,
		slots:   slots,
		logger:  logger,
		now:     time.Now,
	}
}

// Routes registers the patient-facing endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Post("/chat", h.Message)
	r.Post("/chat/session", h.Start)
	r.Get("/chat/{sessionID}/history", h.History)
	r.Delete("/chat/{sessionID}", h.Reset)
	r.Post("/dialog/advance", h.Advance)
	r.Get("/availability/days", h.Days)
	r.Get("/availability/slots", h.Slots)
}

type errorResponse struct {
	Error string `json:"error"`
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// Start handles POST /chat/session.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.StartSession(r.Context())
	if err != nil {
		h.logger.Error("failed to start session", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Error en el servidor"})
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"session_id": sess.ID})
}

// Message handles POST /chat.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode chat request", "error", err)
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Solicitud no válida"})
		return
	}
	req.Channel = ChannelHTTP

	resp, err := h.service.ProcessMessage(r.Context(), req)
	if err != nil {
		h.writeTurnError(w, req.SessionID, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Advance handles POST /dialog/advance. The client carries state and draft.
func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	var turn dialog.Turn
	if err := json.NewDecoder(r.Body).Decode(&turn); err != nil {
		h.logger.Warn("failed to decode dialog turn", "error", err)
		status, msg := http.StatusBadRequest, "Solicitud no válida"
		if errors.Is(err, dialog.ErrInvalidState) {
			msg = "Estado no válido"
		}
		h.writeJSON(w, status, errorResponse{Error: msg})
		return
	}

	out, err := h.engine.Advance(r.Context(), turn)
	if err != nil {
		h.writeTurnError(w, "", err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

// History handles GET /chat/{sessionID}/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	msgs, err := h.service.History(r.Context(), id)
	if errors.Is(err, ErrSessionNotFound) {
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: "Sesión no encontrada"})
		return
	}
	if err != nil {
		h.logger.Error("failed to load history", "session_id", id, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Error en el servidor"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "messages": msgs})
}

// Reset handles DELETE /chat/{sessionID}.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := h.service.Reset(r.Context(), id); err != nil {
		h.logger.Error("failed to reset session", "session_id", id, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Error en el servidor"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Days handles GET /availability/days.
func (h *Handler) Days(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"days": h.slots.ListOpenDays()})
}

// Slots handles GET /availability/slots?date=YYYY-MM-DD.
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if _, err := appointments.ParseDate(date); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Fecha no válida"})
		return
	}
	slots := []string{}
	if h.slots.IsOpenDay(date) {
		open, err := h.slots.ListOpenSlots(r.Context(), date)
		if err != nil {
			h.logger.Error("failed to list open slots", "date", date, "error", err)
			h.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Error en el servidor"})
			return
		}
		slots = open
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"date": date, "slots": slots})
}

func (h *Handler) writeTurnError(w http.ResponseWriter, sessionID string, err error) {
	switch {
	case errors.Is(err, dialog.ErrEmptyUtterance):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Mensaje vacío"})
	case errors.Is(err, dialog.ErrInvalidSideChannel):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Fecha u hora no válida"})
	case errors.Is(err, dialog.ErrInvalidState):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Estado no válido"})
	default:
		h.logger.Error("failed to process message", "session_id", sessionID, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Error en el servidor"})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
