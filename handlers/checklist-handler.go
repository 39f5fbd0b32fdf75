package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"clinic-checklist/checklist-service/logging"
	"clinic-checklist/checklist-service/middleware"
	"clinic-checklist/checklist-service/models"
	"clinic-checklist/checklist-service/services"
	"clinic-checklist/checklist-service/utils"

	"github.com/gorilla/mux"
)

type ChecklistHandler struct {
	service *services.ChecklistService
	export  *services.ExportService
}

func NewChecklistHandler(service *services.ChecklistService, export *services.ExportService) *ChecklistHandler {
	return &ChecklistHandler{service: service, export: export}
}

func callerClaims(r *http.Request) (*utils.Claims, error) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		return nil, fmt.Errorf("authentication required")
	}
	return claims, nil
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidDate):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, models.ErrEmptyExport):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GetChecklistByDate returns the full daily projection for ?date= and
// optional ?areaId=.
func (h *ChecklistHandler) GetChecklistByDate(w http.ResponseWriter, r *http.Request) {
	if _, err := callerClaims(r); err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	date := r.URL.Query().Get("date")
	areaID := r.URL.Query().Get("areaId")

	checklist, err := h.service.GetChecklistByDate(r.Context(), date, areaID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{"checklist": checklist})
}

// GetStatistics returns completion counts for ?date= and optional ?areaId=.
func (h *ChecklistHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	if _, err := callerClaims(r); err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	date := r.URL.Query().Get("date")
	areaID := r.URL.Query().Get("areaId")

	statistics, err := h.service.GetStatistics(r.Context(), date, areaID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{"statistics": statistics})
}

type updateEntryRequest struct {
	Date      string  `json:"date"`
	Status    *bool   `json:"status,omitempty"`
	StaffName *string `json:"staffName,omitempty"`
}

// UpdateEntry upserts a single fact for the task in the path.
func (h *ChecklistHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	claims, err := callerClaims(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	taskID := mux.Vars(r)["taskId"]

	var req updateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	patch := models.EntryPatch{Status: req.Status, StaffName: req.StaffName}
	row, err := h.service.UpdateEntry(r.Context(), taskID, req.Date, patch, claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{"entry": row})
}

type saveChecklistRequest struct {
	Date    string             `json:"date"`
	Entries []models.BulkEntry `json:"entries"`
}

// SaveChecklist applies a whole-snapshot bulk save for one date.
func (h *ChecklistHandler) SaveChecklist(w http.ResponseWriter, r *http.Request) {
	claims, err := callerClaims(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var req saveChecklistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	saved, err := h.service.SaveChecklist(r.Context(), req.Date, req.Entries, claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Checklist saved successfully",
		"saved":   saved,
	})
}

// ExportCSV streams the daily report as CSV. Admin only; the role gate
// runs before any projection work.
func (h *ChecklistHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	h.exportReport(w, r, h.export.ExportCSV)
}

// ExportPDF streams the daily report as PDF. Admin only.
func (h *ChecklistHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	h.exportReport(w, r, h.export.ExportPDF)
}

type renderFunc func(ctx context.Context, date, areaID string) (*models.ExportFile, error)

func (h *ChecklistHandler) exportReport(w http.ResponseWriter, r *http.Request, render renderFunc) {
	claims, err := callerClaims(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if claims.Role != "admin" {
		logging.Logger.Warnf("Event ID: EXPORT_FORBIDDEN, Description: User %s with role %s attempted a report export", claims.UserID, claims.Role)
		writeError(w, models.ErrForbidden)
		return
	}

	date := r.URL.Query().Get("date")
	areaID := r.URL.Query().Get("areaId")

	file, err := render(r.Context(), date, areaID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(file.Data)
}
