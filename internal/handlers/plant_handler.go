package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"treelof-api/internal/logger"
	"treelof-api/internal/models"
	"treelof-api/internal/repositories"
	"treelof-api/pkg/utils"

	"github.com/gorilla/mux"
)

const maxPlantPage = 200

type PlantReader interface {
	Get(ctx context.Context, id int64) (*models.Plant, error)
	List(ctx context.Context, limit, offset int) ([]*models.Plant, error)
}

type PlantHandler struct {
	Repo PlantReader
	log  *logger.Logger
}

func NewPlantHandler(repo PlantReader, log *logger.Logger) *PlantHandler {
	return &PlantHandler{Repo: repo, log: log}
}

// Get returns one wiki page
// GET /plants/{id}
func (h *PlantHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "validation", "Invalid plant ID")
		return
	}

	plant, err := h.Repo.Get(r.Context(), id)
	if errors.Is(err, repositories.ErrNotFound) {
		utils.Error(w, http.StatusNotFound, "not_found", "Plant not found")
		return
	}
	if err != nil {
		h.log.Error("failed to load plant", "id", id, "error", err)
		utils.Error(w, http.StatusInternalServerError, "storage", "Internal server error")
		return
	}

	utils.JSON(w, http.StatusOK, plant)
}

// List returns a page of plants ordered by common name
// GET /plants?limit=50&offset=0
func (h *PlantHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil || limit <= 0 {
		utils.Error(w, http.StatusBadRequest, "validation", "Invalid limit")
		return
	}
	if limit > maxPlantPage {
		limit = maxPlantPage
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		utils.Error(w, http.StatusBadRequest, "validation", "Invalid offset")
		return
	}

	plants, err := h.Repo.List(r.Context(), limit, offset)
	if err != nil {
		h.log.Error("failed to list plants", "error", err)
		utils.Error(w, http.StatusInternalServerError, "storage", "Internal server error")
		return
	}

	utils.JSON(w, http.StatusOK, plants)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
