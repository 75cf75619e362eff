package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"treelof-api/internal/middleware"
	"treelof-api/internal/models"
	"treelof-api/internal/revisions"
	"treelof-api/internal/services"
	"treelof-api/pkg/utils"
)

type RevisionService interface {
	Propose(ctx context.Context, trusted bool, req *models.CreateRevisionRequest) ([]*models.Revision, error)
	List(ctx context.Context, trusted bool, reference, referenceID string) ([]models.RevisionView, error)
	History(ctx context.Context, trusted bool, reference, referenceID string) ([]revisions.DateGroup[models.RevisionView], error)
}

type RevisionHandler struct {
	Service RevisionService
}

func NewRevisionHandler(s RevisionService) *RevisionHandler {
	return &RevisionHandler{Service: s}
}

// Create proposes a set of field changes
// POST /revisions
func (h *RevisionHandler) Create(w http.ResponseWriter, r *http.Request) {
	trusted := middleware.IsTrusted(r.Context())
	if !trusted {
		// the service refuses and counts it; the body is never read
		_, err := h.Service.Propose(r.Context(), false, nil)
		writeServiceError(w, err)
		return
	}

	var req models.CreateRevisionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, string(services.KindValidation), "Invalid request body")
		return
	}

	revs, err := h.Service.Propose(r.Context(), trusted, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, revs)
}

// List returns the revisions of one entity
// GET /revisions?reference=plants&reference_id=42
func (h *RevisionHandler) List(w http.ResponseWriter, r *http.Request) {
	reference, referenceID := referenceParams(r)

	views, err := h.Service.List(r.Context(), middleware.IsTrusted(r.Context()), reference, referenceID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, views)
}

// History returns the revisions of one entity grouped by day
// GET /revisions/history?reference=plants&reference_id=42
func (h *RevisionHandler) History(w http.ResponseWriter, r *http.Request) {
	reference, referenceID := referenceParams(r)

	groups, err := h.Service.History(r.Context(), middleware.IsTrusted(r.Context()), reference, referenceID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, groups)
}

func referenceParams(r *http.Request) (string, string) {
	q := r.URL.Query()
	return strings.TrimSpace(q.Get("reference")), strings.TrimSpace(q.Get("reference_id"))
}

func writeServiceError(w http.ResponseWriter, err error) {
	kind := services.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case services.KindValidation:
		status = http.StatusBadRequest
	case services.KindUnauthorized:
		status = http.StatusForbidden
	case services.KindNotFound:
		status = http.StatusNotFound
	}

	message := "Internal server error"
	var re *services.RevisionError
	if status != http.StatusInternalServerError && errors.As(err, &re) {
		message = re.Message
	}

	utils.Error(w, status, string(kind), message)
}
