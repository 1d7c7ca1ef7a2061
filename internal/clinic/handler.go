package clinic

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/dental-assistant/internal/catalog"
	"github.com/wolfman30/dental-assistant/pkg/logging"
)

// Handler provides HTTP endpoints for the clinic profile.
type Handler struct {
	store  ProfileStore
	logger *logging.Logger
	now    func() time.Time
}

// NewHandler creates a new clinic profile HTTP handler.
func NewHandler(store ProfileStore, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// PublicRoutes are mounted without authentication.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Get("/clinic/info", h.GetProfile)
	r.Get("/chat/welcome", h.Welcome)
}

// AdminRoutes returns a chi router with profile admin routes.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetProfile)
	r.Put("/", h.UpdateProfile)
	return r
}

// GetProfile returns the clinic profile.
// GET /clinic/info
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Get(r.Context())
	if err != nil {
		h.logger.Error("failed to get clinic profile", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(p); err != nil {
		h.logger.Error("failed to encode clinic profile", "error", err)
	}
}

// WelcomeResponse is the first message a chat client shows.
type WelcomeResponse struct {
	catalog.Response
	State  string `json:"state"`
	IsOpen bool   `json:"is_open"`
}

// Welcome returns the greeting with the FAQ buttons enabled.
// GET /chat/welcome
func (h *Handler) Welcome(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Get(r.Context())
	if err != nil {
		h.logger.Error("failed to get clinic profile", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	resp := WelcomeResponse{
		Response: catalog.Response{
			Text:       p.WelcomeMessage,
			Media:      []catalog.Media{},
			Directives: catalog.Directives{ShowFaqButtons: true},
		},
		State:  "idle",
		IsOpen: p.IsOpenAt(h.now()),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode welcome", "error", err)
	}
}

// UpdateProfileRequest is the request body for updating the profile.
// Hours are derived from the booking schedule and cannot be edited here.
type UpdateProfileRequest struct {
	Name           string     `json:"name,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	Email          string     `json:"email,omitempty"`
	Timezone       string     `json:"timezone,omitempty"`
	WelcomeMessage string     `json:"welcome_message,omitempty"`
	Services       []string   `json:"services,omitempty"`
	Locations      []Location `json:"locations,omitempty"`
}

// UpdateProfile applies a partial update.
// PUT /admin/clinic
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			http.Error(w, `{"error": "invalid timezone"}`, http.StatusBadRequest)
			return
		}
	}

	p, err := h.store.Get(r.Context())
	if err != nil {
		h.logger.Error("failed to get clinic profile", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Phone != "" {
		p.Phone = req.Phone
	}
	if req.Email != "" {
		p.Email = req.Email
	}
	if req.Timezone != "" {
		p.Timezone = req.Timezone
	}
	if req.WelcomeMessage != "" {
		p.WelcomeMessage = req.WelcomeMessage
	}
	if req.Services != nil {
		p.Services = req.Services
	}
	if req.Locations != nil {
		p.Locations = req.Locations
	}

	if err := h.store.Set(r.Context(), p); err != nil {
		h.logger.Error("failed to save clinic profile", "error", err)
		http.Error(w, `{"error": "failed to save profile"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("clinic profile updated", "name", p.Name)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(p); err != nil {
		h.logger.Error("failed to encode clinic profile", "error", err)
	}
}
