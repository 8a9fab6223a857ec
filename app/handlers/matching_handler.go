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
)

// MatchingHandlerInterface defines the contract for matching engine handlers
type MatchingHandlerInterface interface {
	RunMatching(c fiber.Ctx) error
	RunSweep(c fiber.Ctx) error
	FindDemandsForListing(c fiber.Ctx) error
	Statistics(c fiber.Ctx) error
	ExportMatches(c fiber.Ctx) error
}

// MatchingHandler handles matching engine HTTP requests
type MatchingHandler struct {
	matchingFlow businessflow.MatchingFlow
	reportFlow   businessflow.ReportFlow
	validator    *validator.Validate
}

// NewMatchingHandler creates a new matching handler
func NewMatchingHandler(matchingFlow businessflow.MatchingFlow, reportFlow businessflow.ReportFlow) *MatchingHandler {
	return &MatchingHandler{
		matchingFlow: matchingFlow,
		reportFlow:   reportFlow,
		validator:    validator.New(),
	}
}

func (h *MatchingHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *MatchingHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// RunMatching runs the engine for one demand
func (h *MatchingHandler) RunMatching(c fiber.Ctx) error {
	req := dto.RunMatchingRequest{
		DemandUUID: c.Params("uuid"),
		DryRun:     c.Query("dry_run") == "true",
	}

	actor := actorFromRequest(c)

	// Scoring a large candidate pool can outlive the default request timeout
	result, err := h.matchingFlow.RunMatching(h.createRequestContext(c, "/api/v1/demands/:uuid/matching", time.Minute), &req, actor)
	if err != nil {
		if businessflow.IsDemandNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Demand not found", "DEMAND_NOT_FOUND", nil)
		}

		log.Println("Matching run failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Matching run failed", "MATCHING_RUN_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Matching completed successfully", result)
}

// RunSweep runs matching for every active demand
func (h *MatchingHandler) RunSweep(c fiber.Ctx) error {
	actor := actorFromRequest(c)

	result, err := h.matchingFlow.RunMatchingForAllActiveDemands(h.createRequestContext(c, "/api/v1/matching/sweep", 10*time.Minute), actor)
	if err != nil {
		log.Println("Matching sweep failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Matching sweep failed", "MATCHING_SWEEP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Matching sweep completed", result)
}

// FindDemandsForListing runs the reverse search for one listing
func (h *MatchingHandler) FindDemandsForListing(c fiber.Ctx) error {
	req := dto.FindDemandsForListingRequest{
		ListingType: c.Params("type"),
	}
	if id, err := strconv.ParseUint(c.Params("id"), 10, 32); err == nil {
		req.ListingID = uint(id)
	}

	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors(err))
	}

	result, err := h.matchingFlow.FindDemandsForListing(h.createRequestContext(c, "/api/v1/listings/:type/:id/demands", time.Minute), &req)
	if err != nil {
		if businessflow.IsListingNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Listing not found", "LISTING_NOT_FOUND", nil)
		}

		log.Println("Reverse search failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Reverse search failed", "REVERSE_SEARCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Matching demands retrieved successfully", result)
}

// Statistics returns the portfolio-wide matching summary
func (h *MatchingHandler) Statistics(c fiber.Ctx) error {
	result, err := h.matchingFlow.Statistics(h.createRequestContext(c, "/api/v1/matching/statistics", 30*time.Second))
	if err != nil {
		log.Println("Statistics retrieval failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Statistics retrieval failed", "STATISTICS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Statistics retrieved successfully", result)
}

// ExportMatches streams a demand's matches as an Excel workbook
func (h *MatchingHandler) ExportMatches(c fiber.Ctx) error {
	req := dto.ExportMatchesRequest{DemandUUID: c.Params("uuid")}

	filename, content, err := h.reportFlow.ExportDemandMatches(h.createRequestContext(c, "/api/v1/demands/:uuid/matches/export", time.Minute), &req)
	if err != nil {
		if businessflow.IsDemandNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Demand not found", "DEMAND_NOT_FOUND", nil)
		}

		log.Println("Match export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Match export failed", "MATCH_EXPORT_FAILED", nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(content)
}

// createRequestContext creates a context with timeout and request-scoped values
func (h *MatchingHandler) createRequestContext(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	return createRequestContext(c, endpoint, timeout)
}
