package handlers

import (
	"context"
	"net/http"

	"cloakroom-backend/internal/models"
	"cloakroom-backend/pkg/utils"
)

type auditLister interface {
	List(ctx context.Context, limit int) ([]models.AuditEntry, error)
}

// AuditHandler lists deletion audit entries stored in the database.
type AuditHandler struct {
	Repo auditLister
}

func NewAuditHandler(repo auditLister) *AuditHandler {
	return &AuditHandler{Repo: repo}
}

// List - GET /api/admin/audit?limit=
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r.URL.Query(), "limit", 100, 1000)
	entries, err := h.Repo.List(r.Context(), limit)
	if err != nil {
		utils.Error(w, http.StatusInternalServerError, "Failed to load audit log")
		return
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	utils.JSON(w, http.StatusOK, entries)
}
