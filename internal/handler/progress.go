package handler

import (
	"net/http"

	"stitcherp/internal/apierror"
	"stitcherp/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ProgressHandler struct{ svc service.ProgressService }

func NewProgressHandler(svc service.ProgressService) *ProgressHandler {
	return &ProgressHandler{svc: svc}
}

// Get godoc
// @Summary      Allocation progress for a work order / machine pair
// @Description  Derived read model: completed and pending stitches, actual days used and on-time status. Served from a short-TTL cache.
// @Tags         progress
// @Produce      json
// @Security     BearerAuth
// @Param        workOrderId path string true "Work order UUID"
// @Param        machineId   path string true "Machine UUID"
// @Success      200 {object} dto.AllocationProgressResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/progress/{workOrderId}/{machineId} [get]
func (h *ProgressHandler) Get(c *gin.Context) {
	workOrderID, err := uuid.Parse(c.Param("workOrderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid work order id"))
		return
	}
	machineID, err := uuid.Parse(c.Param("machineId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid machine id"))
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), workOrderID, machineID)
	if err != nil {
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusOK, resp)
}
