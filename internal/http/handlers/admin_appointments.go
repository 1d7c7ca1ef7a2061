// Package handlers serves the clinic staff back office.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/dental-assistant/internal/appointments"
	"github.com/wolfman30/dental-assistant/pkg/logging"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ExportArchiver uploads CSV exports for safekeeping.
type ExportArchiver interface {
	PutExport(ctx context.Context, filename string, now time.Time, data []byte) (string, error)
}

// AdminAppointmentsHandler lets staff review and manage booked appointments.
type AdminAppointmentsHandler struct {
	reporter appointments.Reporter
	archiver ExportArchiver
	logger   *logging.Logger
	now      func() time.Time
}

// NewAdminAppointmentsHandler creates the handler. archiver may be nil, in
// which case the archive endpoint answers 503.
func NewAdminAppointmentsHandler(reporter appointments.Reporter, archiver ExportArchiver, logger *logging.Logger) *AdminAppointmentsHandler {
	if reporter == nil {
		panic("handlers: appointments reporter required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminAppointmentsHandler{
		reporter: reporter,
		archiver: archiver,
		logger:   logger,
		now:      time.Now,
	}
}

// Routes returns the router mounted under /admin/appointments.
func (h *AdminAppointmentsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/stats", h.Stats)
	r.Get("/export.csv", h.ExportCSV)
	r.Post("/export/archive", h.ArchiveExport)
	r.Patch("/{id}/status", h.UpdateStatus)
	return r
}

// AppointmentsListResponse wraps a listing.
type AppointmentsListResponse struct {
	Appointments []appointments.Appointment `json:"appointments"`
	Count        int                        `json:"count"`
}

// List handles GET /admin/appointments?status=pending,confirmed&date=YYYY-MM-DD&limit=N.
func (h *AdminAppointmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r, defaultListLimit)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	list, err := h.reporter.List(r.Context(), f)
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err)
		jsonError(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []appointments.Appointment{}
	}
	writeJSON(w, http.StatusOK, AppointmentsListResponse{Appointments: list, Count: len(list)})
}

// Stats handles GET /admin/appointments/stats.
func (h *AdminAppointmentsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reporter.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to load appointment stats", "error", err)
		jsonError(w, "failed to load stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ExportCSV handles GET /admin/appointments/export.csv. It accepts the same
// filters as List, without a default limit.
func (h *AdminAppointmentsHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	data, _, ok := h.renderExport(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+appointments.ExportFilename(h.now())+`"`)
	_, _ = w.Write(data)
}

// ArchiveExport handles POST /admin/appointments/export/archive.
func (h *AdminAppointmentsHandler) ArchiveExport(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		jsonError(w, "export archive not configured", http.StatusServiceUnavailable)
		return
	}
	data, count, ok := h.renderExport(w, r)
	if !ok {
		return
	}
	now := h.now()
	key, err := h.archiver.PutExport(r.Context(), appointments.ExportFilename(now), now, data)
	if err != nil {
		h.logger.Error("failed to archive export", "error", err)
		jsonError(w, "failed to archive export", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"key": key, "count": count})
}

func (h *AdminAppointmentsHandler) renderExport(w http.ResponseWriter, r *http.Request) ([]byte, int, bool) {
	f, err := parseFilter(r, 0)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return nil, 0, false
	}
	list, err := h.reporter.List(r.Context(), f)
	if err != nil {
		h.logger.Error("failed to list appointments for export", "error", err)
		jsonError(w, "failed to export appointments", http.StatusInternalServerError)
		return nil, 0, false
	}
	var buf bytes.Buffer
	if err := appointments.WriteCSV(&buf, list); err != nil {
		h.logger.Error("failed to render export", "error", err)
		jsonError(w, "failed to export appointments", http.StatusInternalServerError)
		return nil, 0, false
	}
	return buf.Bytes(), len(list), true
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /admin/appointments/{id}/status.
func (h *AdminAppointmentsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, "invalid appointment id", http.StatusBadRequest)
		return
	}
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	status, err := appointments.ParseStatus(req.Status)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = h.reporter.UpdateStatus(r.Context(), id, status)
	switch {
	case errors.Is(err, appointments.ErrNotFound):
		jsonError(w, "appointment not found", http.StatusNotFound)
		return
	case errors.Is(err, appointments.ErrSlotConflict):
		jsonError(w, "slot already taken by another appointment", http.StatusConflict)
		return
	case err != nil:
		h.logger.Error("failed to update appointment status", "id", id, "error", err)
		jsonError(w, "failed to update status", http.StatusInternalServerError)
		return
	}
	h.logger.Info("appointment status updated", "id", id, "status", status)
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": status})
}

func parseFilter(r *http.Request, defaultLimit int) (appointments.Filter, error) {
	q := r.URL.Query()
	f := appointments.Filter{Limit: defaultLimit}

	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status, err := appointments.ParseStatus(part)
			if err != nil {
				return f, err
			}
			f.Statuses = append(f.Statuses, status)
		}
	}
	if date := strings.TrimSpace(q.Get("date")); date != "" {
		if _, err := appointments.ParseDate(date); err != nil {
			return f, err
		}
		f.Date = date
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return f, errors.New("invalid limit")
		}
		f.Limit = min(n, maxListLimit)
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
