package handler

import (
	"net/http"

	"stitcherp/internal/apierror"
	"stitcherp/internal/dto"
	"stitcherp/internal/model"
	"stitcherp/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WorkOrderHandler exposes work order CRUD. Orders carry the planned stitch
// totals that machine allocations are validated against.
type WorkOrderHandler struct{ repo repository.WorkOrderRepository }

func NewWorkOrderHandler(repo repository.WorkOrderRepository) *WorkOrderHandler {
	return &WorkOrderHandler{repo: repo}
}

// Create godoc
// @Summary      Create a work order
// @Tags         work-orders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateWorkOrderRequest true "Work order"
// @Success      201  {object} dto.WorkOrderResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/work-orders [post]
func (h *WorkOrderHandler) Create(c *gin.Context) {
	var req dto.CreateWorkOrderRequest
	if !bindAndValidate(c, &req) {
		return
	}
	repeats := req.Repeats
	if repeats < 1 {
		repeats = 1
	}
	order := model.WorkOrder{
		OrderNo:       req.OrderNo,
		DesignNo:      req.DesignNo,
		Collection:    req.Collection,
		PartyName:     req.PartyName,
		StitchPerUnit: req.StitchPerUnit,
		Repeats:       repeats,
		Pieces:        req.Pieces,
		Status:        "active",
	}
	if err := h.repo.Create(c.Request.Context(), &order); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusCreated, workOrderToResponse(&order))
}

// Get godoc
// @Summary      Get a work order
// @Tags         work-orders
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Work order UUID"
// @Success      200 {object} dto.WorkOrderResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/work-orders/{id} [get]
func (h *WorkOrderHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	order, err := h.repo.FindByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, apierror.New("work order not found"))
		return
	}
	c.JSON(http.StatusOK, workOrderToResponse(order))
}

// List godoc
// @Summary      List work orders
// @Tags         work-orders
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} dto.WorkOrderResponse
// @Router       /v1/work-orders [get]
func (h *WorkOrderHandler) List(c *gin.Context) {
	orders, err := h.repo.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("failed to list work orders"))
		return
	}
	out := make([]dto.WorkOrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, *workOrderToResponse(&orders[i]))
	}
	c.JSON(http.StatusOK, out)
}

func workOrderToResponse(w *model.WorkOrder) *dto.WorkOrderResponse {
	return &dto.WorkOrderResponse{
		ID:            w.ID.String(),
		OrderNo:       w.OrderNo,
		DesignNo:      w.DesignNo,
		Collection:    w.Collection,
		PartyName:     w.PartyName,
		StitchPerUnit: w.StitchPerUnit,
		Repeats:       w.Repeats,
		Pieces:        w.Pieces,
		Status:        w.Status,
		PlannedTotal:  w.PlannedStitches(),
	}
}

// MachineHandler exposes machine CRUD.
type MachineHandler struct{ repo repository.MachineRepository }

func NewMachineHandler(repo repository.MachineRepository) *MachineHandler {
	return &MachineHandler{repo: repo}
}

// Create godoc
// @Summary      Register a machine
// @Tags         machines
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateMachineRequest true "Machine"
// @Success      201  {object} dto.MachineResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/machines [post]
func (h *MachineHandler) Create(c *gin.Context) {
	var req dto.CreateMachineRequest
	if !bindAndValidate(c, &req) {
		return
	}
	machine := model.Machine{
		Code:   req.Code,
		Name:   req.Name,
		Gazana: req.Gazana,
		Active: true,
	}
	if err := h.repo.Create(c.Request.Context(), &machine); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	c.JSON(http.StatusCreated, machineToResponse(&machine))
}

// List godoc
// @Summary      List machines
// @Tags         machines
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} dto.MachineResponse
// @Router       /v1/machines [get]
func (h *MachineHandler) List(c *gin.Context) {
	machines, err := h.repo.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("failed to list machines"))
		return
	}
	out := make([]dto.MachineResponse, 0, len(machines))
	for i := range machines {
		out = append(out, *machineToResponse(&machines[i]))
	}
	c.JSON(http.StatusOK, out)
}

func machineToResponse(m *model.Machine) *dto.MachineResponse {
	return &dto.MachineResponse{
		ID:     m.ID.String(),
		Code:   m.Code,
		Name:   m.Name,
		Gazana: m.Gazana,
		Active: m.Active,
	}
}
