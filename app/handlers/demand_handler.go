package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/oguzkaan/emlak-crm/app/dto"
	businessflow "github.com/oguzkaan/emlak-crm/business_flow"
	"github.com/oguzkaan/emlak-crm/utils"
)

// DemandHandlerInterface defines the contract for demand handlers
type DemandHandlerInterface interface {
	CreateDemand(c fiber.Ctx) error
	UpdateDemand(c fiber.Ctx) error
	GetDemand(c fiber.Ctx) error
	ListDemands(c fiber.Ctx) error
	DeleteDemand(c fiber.Ctx) error
	ListActivities(c fiber.Ctx) error
}

// DemandHandler handles demand-related HTTP requests
type DemandHandler struct {
	demandFlow businessflow.DemandFlow
	validator  *validator.Validate
}

// NewDemandHandler creates a new demand handler
func NewDemandHandler(demandFlow businessflow.DemandFlow) *DemandHandler {
	return &DemandHandler{
		demandFlow: demandFlow,
		validator:  validator.New(),
	}
}

func (h *DemandHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *DemandHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateDemand handles the demand registration process
func (h *DemandHandler) CreateDemand(c fiber.Ctx) error {
	var req dto.CreateDemandRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	actor := actorFromRequest(c)

	result, err := h.demandFlow.CreateDemand(h.createRequestContext(c, "/api/v1/demands"), &req, actor)
	if err != nil {
		if businessflow.IsCustomerNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Customer not found", "CUSTOMER_NOT_FOUND", nil)
		}
		if businessflow.IsInvalidBounds(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid price or area bounds", "INVALID_BOUNDS", nil)
		}

		log.Println("Demand creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Demand creation failed", "DEMAND_CREATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Demand created successfully", result)
}

// UpdateDemand handles partial demand updates
func (h *DemandHandler) UpdateDemand(c fiber.Ctx) error {
	var req dto.UpdateDemandRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.UUID = c.Params("uuid")

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	actor := actorFromRequest(c)

	result, err := h.demandFlow.UpdateDemand(h.createRequestContext(c, "/api/v1/demands/:uuid"), &req, actor)
	if err != nil {
		if businessflow.IsDemandNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Demand not found", "DEMAND_NOT_FOUND", nil)
		}
		if businessflow.IsInvalidBounds(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid price or area bounds", "INVALID_BOUNDS", nil)
		}
		if businessflow.IsDemandUpdateRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "At least one field must be provided for update", "DEMAND_UPDATE_EMPTY", nil)
		}

		log.Println("Demand update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Demand update failed", "DEMAND_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Demand updated successfully", result)
}

// GetDemand retrieves one demand by UUID
func (h *DemandHandler) GetDemand(c fiber.Ctx) error {
	result, err := h.demandFlow.GetDemand(h.createRequestContext(c, "/api/v1/demands/:uuid"), c.Params("uuid"))
	if err != nil {
		if businessflow.IsDemandNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Demand not found", "DEMAND_NOT_FOUND", nil)
		}

		log.Println("Demand retrieval failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Demand retrieval failed", "DEMAND_RETRIEVAL_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Demand retrieved successfully", result)
}

// ListDemands retrieves a filtered page of demands
func (h *DemandHandler) ListDemands(c fiber.Ctx) error {
	req := dto.ListDemandsRequest{Page: 1, PageSize: 20}

	if v, err := strconv.Atoi(c.Query("page", "1")); err == nil && v > 0 {
		req.Page = v
	}
	if v, err := strconv.Atoi(c.Query("page_size", "20")); err == nil && v > 0 {
		req.PageSize = v
	}
	if v := c.Query("category"); v != "" {
		req.Category = &v
	}
	if v := c.Query("status"); v != "" {
		req.Status = &v
	}
	if v := c.Query("customer_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			req.CustomerID = utils.ToPtr(uint(id))
		}
	}
	if v := c.Query("staff_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			req.StaffID = utils.ToPtr(uint(id))
		}
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	result, err := h.demandFlow.ListDemands(h.createRequestContext(c, "/api/v1/demands"), &req)
	if err != nil {
		log.Println("Demand listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Demand listing failed", "DEMAND_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Demands retrieved successfully", result)
}

// DeleteDemand soft-deletes a demand
func (h *DemandHandler) DeleteDemand(c fiber.Ctx) error {
	actor := actorFromRequest(c)

	err := h.demandFlow.DeleteDemand(h.createRequestContext(c, "/api/v1/demands/:uuid"), c.Params("uuid"), actor)
	if err != nil {
		if businessflow.IsDemandNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Demand not found", "DEMAND_NOT_FOUND", nil)
		}

		log.Println("Demand deletion failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Demand deletion failed", "DEMAND_DELETE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Demand deleted successfully", nil)
}

// ListActivities returns a demand's audit log
func (h *DemandHandler) ListActivities(c fiber.Ctx) error {
	limit := 50
	if v, err := strconv.Atoi(c.Query("limit", "50")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	offset := 0
	if v, err := strconv.Atoi(c.Query("offset", "0")); err == nil && v >= 0 {
		offset = v
	}

	result, err := h.demandFlow.ListActivities(h.createRequestContext(c, "/api/v1/demands/:uuid/activities"), c.Params("uuid"), limit, offset)
	if err != nil {
		if businessflow.IsDemandNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Demand not found", "DEMAND_NOT_FOUND", nil)
		}

		log.Println("Activity listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Activity listing failed", "ACTIVITY_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Activities retrieved successfully", result)
}

// createRequestContext creates a context with timeout and request-scoped values
func (h *DemandHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContext(c, endpoint, 30*time.Second)
}

func createRequestContext(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)

	return ctx
}

// actorFromRequest builds the acting staff context from request headers. The
// reverse proxy in front of the API authenticates staff and forwards the ID.
func actorFromRequest(c fiber.Ctx) *businessflow.ActorContext {
	var actorID *uint
	if v := c.Get("X-Staff-ID"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			actorID = utils.ToPtr(uint(id))
		}
	}

	actor := businessflow.NewActorContext(actorID)
	actor.RequestID = c.Get("X-Request-ID")
	actor.IPAddress = c.IP()
	actor.UserAgent = c.Get("User-Agent")
	return actor
}
