package handler

import (
	"net/http"

	"stitcherp/internal/apierror"
	"stitcherp/internal/dto"
	"stitcherp/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProductionHandler exposes shift and daily production entry endpoints.
// Every mutation reconciles the affected allocation in the same transaction,
// so the response already reflects the derived state.
type ProductionHandler struct{ svc service.ProductionService }

func NewProductionHandler(svc service.ProductionService) *ProductionHandler {
	return &ProductionHandler{svc: svc}
}

// LogShift godoc
// @Summary      Log a shift production entry
// @Tags         production
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.ShiftProductionRequest true "Shift entry"
// @Success      201  {object} dto.ProductionEntryResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/production/shift [post]
func (h *ProductionHandler) LogShift(c *gin.Context) {
	var req dto.ShiftProductionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.LogShift(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// UpdateShift godoc
// @Summary      Edit a shift production entry
// @Description  Reconciles both the new pair and, if the entry moved, the previous pair.
// @Tags         production
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                     true "Entry UUID"
// @Param        body body dto.ShiftProductionRequest true "Shift entry"
// @Success      200  {object} dto.ProductionEntryResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/production/shift/{id} [put]
func (h *ProductionHandler) UpdateShift(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	var req dto.ShiftProductionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateShift(c.Request.Context(), id, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteShift godoc
// @Summary      Delete a shift production entry
// @Tags         production
// @Security     BearerAuth
// @Param        id path string true "Entry UUID"
// @Success      204
// @Failure      400 {object} apierror.APIError
// @Router       /v1/production/shift/{id} [delete]
func (h *ProductionHandler) DeleteShift(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	if err := h.svc.DeleteShift(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	c.Status(http.StatusNoContent)
}

// LogDaily godoc
// @Summary      Log a daily production entry
// @Tags         production
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.DailyProductionRequest true "Daily entry"
// @Success      201  {object} dto.ProductionEntryResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/production/daily [post]
func (h *ProductionHandler) LogDaily(c *gin.Context) {
	var req dto.DailyProductionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.LogDaily(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// UpdateDaily godoc
// @Summary      Edit a daily production entry
// @Tags         production
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                     true "Entry UUID"
// @Param        body body dto.DailyProductionRequest true "Daily entry"
// @Success      200  {object} dto.ProductionEntryResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/production/daily/{id} [put]
func (h *ProductionHandler) UpdateDaily(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	var req dto.DailyProductionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateDaily(c.Request.Context(), id, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteDaily godoc
// @Summary      Delete a daily production entry
// @Tags         production
// @Security     BearerAuth
// @Param        id path string true "Entry UUID"
// @Success      204
// @Failure      400 {object} apierror.APIError
// @Router       /v1/production/daily/{id} [delete]
func (h *ProductionHandler) DeleteDaily(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	if err := h.svc.DeleteDaily(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	c.Status(http.StatusNoContent)
}
