package handler

import (
	"net/http"

	"stitcherp/internal/apierror"
	"stitcherp/internal/dto"
	"stitcherp/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AllocationHandler struct{ svc service.AllocationService }

func NewAllocationHandler(svc service.AllocationService) *AllocationHandler {
	return &AllocationHandler{svc: svc}
}

// Replace godoc
// @Summary      Replace a work order's machine assignments
// @Description  Swaps the full assignment set. The plan-total check is reported in the response but never blocks the save.
// @Tags         allocations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                     true "Work order UUID"
// @Param        body body dto.SaveAllocationsRequest true "Machine assignments"
// @Success      200  {object} dto.AllocationSetResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/work-orders/{id}/allocations [put]
func (h *AllocationHandler) Replace(c *gin.Context) {
	workOrderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid work order id"))
		return
	}
	var req dto.SaveAllocationsRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Replace(c.Request.Context(), workOrderID, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// List godoc
// @Summary      List a work order's machine assignments
// @Tags         allocations
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Work order UUID"
// @Success      200 {array} dto.AllocationResponse
// @Failure      400 {object} apierror.APIError
// @Router       /v1/work-orders/{id}/allocations [get]
func (h *AllocationHandler) List(c *gin.Context) {
	workOrderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid work order id"))
		return
	}
	resp, err := h.svc.ListByWorkOrder(c.Request.Context(), workOrderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("failed to list allocations"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete godoc
// @Summary      Delete a machine assignment
// @Tags         allocations
// @Security     BearerAuth
// @Param        id path string true "Allocation UUID"
// @Success      204
// @Failure      400 {object} apierror.APIError
// @Router       /v1/allocations/{id} [delete]
func (h *AllocationHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	c.Status(http.StatusNoContent)
}
