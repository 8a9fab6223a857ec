package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/oguzkaan/emlak-crm/app/dto"
	businessflow "github.com/oguzkaan/emlak-crm/business_flow"
)

// MatchHandlerInterface defines the contract for match lifecycle handlers
type MatchHandlerInterface interface {
	ListByDemand(c fiber.Ctx) error
	SetStatus(c fiber.Ctx) error
	Present(c fiber.Ctx) error
	RecordFeedback(c fiber.Ctx) error
	AddNote(c fiber.Ctx) error
}

// MatchHandler handles match lifecycle HTTP requests
type MatchHandler struct {
	lifecycleFlow businessflow.MatchLifecycleFlow
	validator     *validator.Validate
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(lifecycleFlow businessflow.MatchLifecycleFlow) *MatchHandler {
	return &MatchHandler{
		lifecycleFlow: lifecycleFlow,
		validator:     validator.New(),
	}
}

func (h *MatchHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *MatchHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ListByDemand returns a demand's active matches, best score first
func (h *MatchHandler) ListByDemand(c fiber.Ctx) error {
	result, err := h.lifecycleFlow.ListByDemand(h.createRequestContext(c, "/api/v1/demands/:uuid/matches"), c.Params("uuid"))
	if err != nil {
		if businessflow.IsDemandNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Demand not found", "DEMAND_NOT_FOUND", nil)
		}

		log.Println("Match listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Match listing failed", "MATCH_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Matches retrieved successfully", result)
}

// SetStatus applies a lifecycle transition to a match
func (h *MatchHandler) SetStatus(c fiber.Ctx) error {
	var req dto.UpdateMatchStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.UUID = c.Params("uuid")

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	actor := actorFromRequest(c)

	result, err := h.lifecycleFlow.SetStatus(h.createRequestContext(c, "/api/v1/matches/:uuid/status"), &req, actor)
	if err != nil {
		if businessflow.IsMatchNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Match not found", "MATCH_NOT_FOUND", nil)
		}
		if businessflow.IsMatchInactive(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Match is no longer active", "MATCH_INACTIVE", nil)
		}
		if businessflow.IsInvalidMatchStatus(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid match status", "MATCH_STATUS_INVALID", nil)
		}

		log.Println("Match status update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Match status update failed", "MATCH_STATUS_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Match status updated successfully", result)
}

// Present records that a match was shown to the customer
func (h *MatchHandler) Present(c fiber.Ctx) error {
	var req dto.PresentMatchRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.UUID = c.Params("uuid")

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	actor := actorFromRequest(c)

	result, err := h.lifecycleFlow.Present(h.createRequestContext(c, "/api/v1/matches/:uuid/present"), &req, actor)
	if err != nil {
		if businessflow.IsMatchNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Match not found", "MATCH_NOT_FOUND", nil)
		}
		if businessflow.IsMatchInactive(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Match is no longer active", "MATCH_INACTIVE", nil)
		}

		log.Println("Match presentation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Match presentation failed", "MATCH_PRESENT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Match presented successfully", result)
}

// RecordFeedback stores customer feedback on a match
func (h *MatchHandler) RecordFeedback(c fiber.Ctx) error {
	var req dto.RecordFeedbackRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.UUID = c.Params("uuid")

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	actor := actorFromRequest(c)

	result, err := h.lifecycleFlow.RecordFeedback(h.createRequestContext(c, "/api/v1/matches/:uuid/feedback"), &req, actor)
	if err != nil {
		if businessflow.IsMatchNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Match not found", "MATCH_NOT_FOUND", nil)
		}
		if businessflow.IsMatchInactive(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Match is no longer active", "MATCH_INACTIVE", nil)
		}
		if businessflow.IsInvalidMatchStatus(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid match status", "MATCH_STATUS_INVALID", nil)
		}
		if businessflow.IsFeedbackStatusNotFinal(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Feedback status must be accepted or rejected", "FEEDBACK_STATUS_NOT_FINAL", nil)
		}

		log.Println("Feedback recording failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Feedback recording failed", "MATCH_FEEDBACK_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Feedback recorded successfully", result)
}

// AddNote appends a staff note to a match
func (h *MatchHandler) AddNote(c fiber.Ctx) error {
	var req dto.AddMatchNoteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.UUID = c.Params("uuid")

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	actor := actorFromRequest(c)

	result, err := h.lifecycleFlow.AddNote(h.createRequestContext(c, "/api/v1/matches/:uuid/notes"), &req, actor)
	if err != nil {
		if businessflow.IsMatchNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Match not found", "MATCH_NOT_FOUND", nil)
		}
		if businessflow.IsMatchInactive(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Match is no longer active", "MATCH_INACTIVE", nil)
		}

		log.Println("Note append failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Note append failed", "MATCH_NOTE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Note added successfully", result)
}

// createRequestContext creates a context with timeout and request-scoped values
func (h *MatchHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContext(c, endpoint, 30*time.Second)
}
