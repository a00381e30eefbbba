package handler

import (
	"errors"
	"net/http"

	"stitcherp/internal/apierror"
	"stitcherp/internal/dto"
	"stitcherp/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BillingHandler struct{ svc service.BillingService }

func NewBillingHandler(svc service.BillingService) *BillingHandler {
	return &BillingHandler{svc: svc}
}

// CreateBill godoc
// @Summary      Create a bill
// @Description  Bill numbers are generated server-side, sequential within the daily or yearly scope. Item amounts are always recomputed by the rate engine.
// @Tags         billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateBillRequest true "Bill with optional initial items"
// @Success      201  {object} dto.BillResponse
// @Failure      400  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /v1/bills [post]
func (h *BillingHandler) CreateBill(c *gin.Context) {
	var req dto.CreateBillRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateBill(c.Request.Context(), req)
	if errors.Is(err, service.ErrBillNumberConflict) {
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetBill godoc
// @Summary      Get a bill with its items
// @Tags         billing
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Bill UUID"
// @Success      200 {object} dto.BillResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/bills/{id} [get]
func (h *BillingHandler) GetBill(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	resp, err := h.svc.GetBill(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, apierror.New("bill not found"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteBill godoc
// @Summary      Delete a bill
// @Description  Items are removed with the bill and every linked allocation is re-derived without them.
// @Tags         billing
// @Security     BearerAuth
// @Param        id path string true "Bill UUID"
// @Success      204
// @Failure      400 {object} apierror.APIError
// @Router       /v1/bills/{id} [delete]
func (h *BillingHandler) DeleteBill(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	if err := h.svc.DeleteBill(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	c.Status(http.StatusNoContent)
}

// AddItem godoc
// @Summary      Add a line item to a bill
// @Tags         billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string              true "Bill UUID"
// @Param        body body dto.BillItemRequest true "Line item"
// @Success      201  {object} dto.BillItemResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/bills/{id}/items [post]
func (h *BillingHandler) AddItem(c *gin.Context) {
	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid bill id"))
		return
	}
	var req dto.BillItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AddItem(c.Request.Context(), billID, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// UpdateItem godoc
// @Summary      Edit a bill line item
// @Description  The amount and formula snapshot are rebuilt from the new inputs.
// @Tags         billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path string              true "Bill UUID"
// @Param        itemId path string              true "Item UUID"
// @Param        body   body dto.BillItemRequest true "Line item"
// @Success      200    {object} dto.BillItemResponse
// @Failure      400    {object} apierror.APIError
// @Router       /v1/bills/{id}/items/{itemId} [put]
func (h *BillingHandler) UpdateItem(c *gin.Context) {
	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid bill id"))
		return
	}
	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid item id"))
		return
	}
	var req dto.BillItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateItem(c.Request.Context(), billID, itemID, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteItem godoc
// @Summary      Delete a bill line item
// @Tags         billing
// @Security     BearerAuth
// @Param        id     path string true "Bill UUID"
// @Param        itemId path string true "Item UUID"
// @Success      204
// @Failure      400 {object} apierror.APIError
// @Router       /v1/bills/{id}/items/{itemId} [delete]
func (h *BillingHandler) DeleteItem(c *gin.Context) {
	billID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid bill id"))
		return
	}
	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid item id"))
		return
	}
	if err := h.svc.DeleteItem(c.Request.Context(), billID, itemID); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	c.Status(http.StatusNoContent)
}
