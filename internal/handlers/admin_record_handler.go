package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"cloakroom-backend/internal/models"
	"cloakroom-backend/internal/services"
	"cloakroom-backend/internal/timeutil"
	"cloakroom-backend/pkg/utils"
)

// AdminRecordHandler serves the admin record listing, exports and the
// filtered deletion endpoints.
type AdminRecordHandler struct {
	Deletion  *services.DeletionService
	Reports   *services.ReportService
	Locations []string
}

func NewAdminRecordHandler(deletion *services.DeletionService, reports *services.ReportService, locations []string) *AdminRecordHandler {
	return &AdminRecordHandler{Deletion: deletion, Reports: reports, Locations: locations}
}

func (h *AdminRecordHandler) filter(r *http.Request) (models.RecordFilter, error) {
	return services.ParseFilter(filterInput(r.URL.Query()), h.Locations)
}

// PreviewFilter - GET /api/admin/records/preview-filter
func (h *AdminRecordHandler) PreviewFilter(w http.ResponseWriter, r *http.Request) {
	f, err := h.filter(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	res, err := h.Deletion.Preview(r.Context(), f)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, res)
}

// DeleteByFilter - DELETE /api/admin/records
func (h *AdminRecordHandler) DeleteByFilter(w http.ResponseWriter, r *http.Request) {
	f, err := h.filter(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	res, err := h.Deletion.DeleteByFilter(r.Context(), actor(r), f)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, res)
}

// PreviewPermanent - GET /api/admin/records/preview-permanent
func (h *AdminRecordHandler) PreviewPermanent(w http.ResponseWriter, r *http.Request) {
	res, err := h.Deletion.PreviewReturned(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, res)
}

// DeletePermanent - DELETE /api/admin/records/permanent
func (h *AdminRecordHandler) DeletePermanent(w http.ResponseWriter, r *http.Request) {
	res, err := h.Deletion.PurgeReturned(r.Context(), actor(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, res)
}

// PreviewRange - GET /api/admin/records/preview-delete?from=&to=
func (h *AdminRecordHandler) PreviewRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.Deletion.PreviewReturnedRange(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, res)
}

// DeleteRange - DELETE /api/admin/records/delete-range?from=&to=
func (h *AdminRecordHandler) DeleteRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.Deletion.DeleteReturnedRange(r.Context(), actor(r), q.Get("from"), q.Get("to"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, res)
}

// ListAll - GET /api/admin/records/all. Filters are optional here.
func (h *AdminRecordHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	f, err := h.filter(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	records, err := h.Reports.ListRecords(r.Context(), f)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]any{
		"count":   len(records),
		"records": records,
	})
}

// Export - GET /api/admin/records/export?format=csv|pdf
func (h *AdminRecordHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "pdf" {
		writeBadRequest(w, "format must be csv or pdf")
		return
	}

	f, err := h.filter(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	records, err := h.Reports.ListRecords(r.Context(), f)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var (
		data        []byte
		contentType string
	)
	if format == "pdf" {
		data, err = h.Reports.RecordsPDF(records, "Cloakroom Records")
		contentType = "application/pdf"
	} else {
		data, err = h.Reports.RecordsCSV(records)
		contentType = "text/csv"
	}
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Failed to generate report")
		return
	}

	filename := fmt.Sprintf("cloakroom_records_%s.%s", timeutil.Now().Format("2006-01-02"), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Write(data)
}
