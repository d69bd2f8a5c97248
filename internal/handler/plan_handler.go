package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/path-planner/internal/dto"
	appErrors "github.com/noah-isme/path-planner/pkg/errors"
	"github.com/noah-isme/path-planner/pkg/response"
)

type planService interface {
	Open(ctx context.Context, req dto.OpenPlanSessionRequest, userID string) (*dto.PlanResponse, error)
	Get(ctx context.Context, sessionID, userID string) (*dto.PlanResponse, error)
	Close(ctx context.Context, sessionID, userID string) error
	Suggestions(ctx context.Context, sessionID, userID string, termIndex int) (*dto.SuggestionsResponse, error)
	AddToBlacklist(ctx context.Context, sessionID, userID string, req dto.SubjectRefRequest) (*dto.PlanResponse, error)
	RemoveFromBlacklist(ctx context.Context, sessionID, userID, subjectID string) (*dto.PlanResponse, error)
	FixThrough(ctx context.Context, sessionID, userID string, termIndex int) (*dto.PlanResponse, error)
	AddSubject(ctx context.Context, sessionID, userID string, termIndex int, req dto.SubjectRefRequest) (*dto.PlanResponse, error)
	RemoveSubject(ctx context.Context, sessionID, userID string, termIndex int, subjectID string) (*dto.PlanResponse, error)
	Undo(ctx context.Context, sessionID, userID string) (*dto.PlanResponse, error)
	Redo(ctx context.Context, sessionID, userID string) (*dto.PlanResponse, error)
	Save(ctx context.Context, sessionID, userID string) (*dto.SavedPlanResponse, error)
	ListSaved(ctx context.Context, userID string, page, size int) ([]dto.SavedPlanResponse, *response.Pagination, error)
}

// PlanHandler exposes the interactive plan editing endpoints.
type PlanHandler struct {
	plans planService
}

// NewPlanHandler constructs a plan handler.
func NewPlanHandler(plans planService) *PlanHandler {
	return &PlanHandler{plans: plans}
}

// Open godoc
// @Summary Open a plan editing session
// @Description Loads the catalog and the caller's progress, restores the latest saved plan and returns the prediction.
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.OpenPlanSessionRequest true "Course to plan"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /plans/sessions [post]
func (h *PlanHandler) Open(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.OpenPlanSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	plan, err := h.plans.Open(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, plan)
}

// Get godoc
// @Summary Current prediction of a session
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /plans/sessions/{id} [get]
func (h *PlanHandler) Get(c *gin.Context) {
	h.respond(c, func(ctx context.Context, userID string) (*dto.PlanResponse, error) {
		return h.plans.Get(ctx, c.Param("id"), userID)
	})
}

// Close godoc
// @Summary Discard a plan editing session
// @Tags Plans
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 204
// @Router /plans/sessions/{id} [delete]
func (h *PlanHandler) Close(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.plans.Close(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Suggestions godoc
// @Summary Candidate subjects for a term
// @Description Subjects not yet placed whose requirements are met by the preceding terms.
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param index path int true "Term index"
// @Success 200 {object} response.Envelope
// @Router /plans/sessions/{id}/terms/{index}/suggestions [get]
func (h *PlanHandler) Suggestions(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	idx, err := termIndexParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.plans.Suggestions(c.Request.Context(), c.Param("id"), claims.UserID, idx)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// AddToBlacklist godoc
// @Summary Exclude an elective from prediction
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param payload body dto.SubjectRefRequest true "Elective"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /plans/sessions/{id}/blacklist [post]
func (h *PlanHandler) AddToBlacklist(c *gin.Context) {
	var req dto.SubjectRefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	h.respond(c, func(ctx context.Context, userID string) (*dto.PlanResponse, error) {
		return h.plans.AddToBlacklist(ctx, c.Param("id"), userID, req)
	})
}

// RemoveFromBlacklist godoc
// @Summary Re-admit an excluded elective
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param subjectId path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /plans/sessions/{id}/blacklist/{subjectId} [delete]
func (h *PlanHandler) RemoveFromBlacklist(c *gin.Context) {
	h.respond(c, func(ctx context.Context, userID string) (*dto.PlanResponse, error) {
		return h.plans.RemoveFromBlacklist(ctx, c.Param("id"), userID, c.Param("subjectId"))
	})
}

// FixThrough godoc
// @Summary Fix every term up to index
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param index path int true "Term index"
// @Success 200 {object} response.Envelope
// @Router /plans/sessions/{id}/terms/{index}/fix [post]
func (h *PlanHandler) FixThrough(c *gin.Context) {
	idx, err := termIndexParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, func(ctx context.Context, userID string) (*dto.PlanResponse, error) {
		return h.plans.FixThrough(ctx, c.Param("id"), userID, idx)
	})
}

// AddSubject godoc
// @Summary Add a subject to a fixed term
// @Tags Plans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param index path int true "Term index"
// @Param payload body dto.SubjectRefRequest true "Subject"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /plans/sessions/{id}/terms/{index}/subjects [post]
func (h *PlanHandler) AddSubject(c *gin.Context) {
	idx, err := termIndexParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SubjectRefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	h.respond(c, func(ctx context.Context, userID string) (*dto.PlanResponse, error) {
		return h.plans.AddSubject(ctx, c.Param("id"), userID, idx, req)
	})
}

// RemoveSubject godoc
// @Summary Remove a subject from a fixed term
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param index path int true "Term index"
// @Param subjectId path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /plans/sessions/{id}/terms/{index}/subjects/{subjectId} [delete]
func (h *PlanHandler) RemoveSubject(c *gin.Context) {
	idx, err := termIndexParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, func(ctx context.Context, userID string) (*dto.PlanResponse, error) {
		return h.plans.RemoveSubject(ctx, c.Param("id"), userID, idx, c.Param("subjectId"))
	})
}

// Undo godoc
// @Summary Step back one edit
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /plans/sessions/{id}/undo [post]
func (h *PlanHandler) Undo(c *gin.Context) {
	h.respond(c, func(ctx context.Context, userID string) (*dto.PlanResponse, error) {
		return h.plans.Undo(ctx, c.Param("id"), userID)
	})
}

// Redo godoc
// @Summary Re-apply an undone edit
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /plans/sessions/{id}/redo [post]
func (h *PlanHandler) Redo(c *gin.Context) {
	h.respond(c, func(ctx context.Context, userID string) (*dto.PlanResponse, error) {
		return h.plans.Redo(ctx, c.Param("id"), userID)
	})
}

// Save godoc
// @Summary Persist the session as a new plan version
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 201 {object} response.Envelope
// @Router /plans/sessions/{id}/save [post]
func (h *PlanHandler) Save(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	saved, err := h.plans.Save(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, saved)
}

// ListSaved godoc
// @Summary Saved plan versions of the caller
// @Tags Plans
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /plans/saved [get]
func (h *PlanHandler) ListSaved(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	items, pagination, err := h.plans.ListSaved(c.Request.Context(), claims.UserID, parseQueryInt(c, "page", 1), parseQueryInt(c, "limit", 20))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

func (h *PlanHandler) respond(c *gin.Context, call func(ctx context.Context, userID string) (*dto.PlanResponse, error)) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	plan, err := call(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}
