package exemplars

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/speech-coach/api/types"
	"github.com/killallgit/speech-coach/internal/models"
	"github.com/killallgit/speech-coach/internal/services/exemplars"
)

// List handles exemplar listing
// @Summary List exemplar speeches
// @Tags exemplars
// @Produce json
// @Param category query string false "Category filter"
// @Param stage query string false "Stage filter" Enums(pending, completed, failed)
// @Param limit query int false "Page size (max 100)" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} types.ExemplarsResponse
// @Failure 400 {object} types.ErrorResponse "Invalid query parameters"
// @Router /api/v1/exemplars [get]
func List(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset, ok := types.ParsePagination(c)
		if !ok {
			return
		}

		stage := models.Stage(c.Query("stage"))
		if stage != "" && !stage.Valid() {
			types.SendBadRequest(c, "unknown stage "+strconv.Quote(string(stage)))
			return
		}

		list, total, err := deps.ExemplarService.List(c.Request.Context(), exemplars.ListOptions{
			Category: c.Query("category"),
			Stage:    stage,
			Limit:    limit,
			Offset:   offset,
		})
		if err != nil {
			types.SendError(c, err)
			return
		}
		if list == nil {
			list = []models.Exemplar{}
		}

		types.SendSuccess(c, types.ExemplarsResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Exemplars:    list,
			Count:        len(list),
			Total:        total,
			Offset:       offset,
		})
	}
}

// Create handles adding a single exemplar
// @Summary Add an exemplar speech
// @Description Without an embedding the exemplar is queued for embedding and becomes searchable once completed.
// @Tags exemplars
// @Accept json
// @Produce json
// @Param request body exemplars.CreateRequest true "Exemplar metadata"
// @Success 201 {object} models.Exemplar
// @Failure 400 {object} types.ErrorResponse "Missing or invalid fields"
// @Router /api/v1/exemplars [post]
func Create(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req exemplars.CreateRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}

		ex, err := deps.ExemplarService.Create(c.Request.Context(), req)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendCreated(c, ex)
	}
}

// Import handles bulk creation from a YAML manifest
// @Summary Import exemplars from a YAML manifest
// @Description Entries that fail validation are reported in "failed"; the rest are created.
// @Tags exemplars
// @Accept application/x-yaml
// @Produce json
// @Param manifest body string true "YAML manifest with an exemplars list"
// @Success 200 {object} exemplars.ImportResult
// @Failure 400 {object} types.ErrorResponse "Manifest could not be parsed"
// @Router /api/v1/exemplars/import [post]
func Import(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := deps.ExemplarService.ImportManifest(c.Request.Context(), c.Request.Body)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, result)
	}
}

// Get handles exemplar retrieval
// @Summary Get an exemplar
// @Tags exemplars
// @Produce json
// @Param id path string true "Exemplar ID"
// @Success 200 {object} models.Exemplar
// @Failure 404 {object} types.ErrorResponse "Exemplar not found"
// @Router /api/v1/exemplars/{id} [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ex, err := deps.ExemplarService.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, ex)
	}
}
