package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/skillgate/assess-backend/internal/middleware"
	"github.com/skillgate/assess-backend/internal/model"
	"github.com/skillgate/assess-backend/internal/response"
	"github.com/skillgate/assess-backend/internal/service"
	"github.com/skillgate/assess-backend/internal/session"
	"github.com/skillgate/assess-backend/internal/validator"
)

// AssessmentHandler handles candidate-facing session endpoints.
type AssessmentHandler struct {
	sessionService *service.SessionService
}

// NewAssessmentHandler creates a new AssessmentHandler.
func NewAssessmentHandler(sessionService *service.SessionService) *AssessmentHandler {
	return &AssessmentHandler{sessionService: sessionService}
}

// StartSession godoc
// POST /api/v1/candidate/test-sets/:test_set_id/sessions
// Creates a fresh session for the test-set and returns the initial record.
func (h *AssessmentHandler) StartSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testSetID, err := uuid.Parse(c.Param("test_set_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	rec, err := h.sessionService.StartSession(c.Request.Context(), claims.UserID, testSetID)
	if err != nil {
		h.failSessionError(c, err, response.ErrPersistence)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": rec})
}

// RecordQuizCompletion godoc
// POST /api/v1/candidate/sessions/:submission_id/quizzes/:quiz_id/complete
// Marks a quiz finished with the score the grading service produced.
// Safe to retry; duplicate signals leave the record unchanged.
func (h *AssessmentHandler) RecordQuizCompletion(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.RecordQuizCompletionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	rec, err := h.sessionService.RecordQuizCompletion(
		c.Request.Context(),
		claims.UserID,
		c.Param("submission_id"),
		c.Param("quiz_id"),
		*req.Score,
	)
	if err != nil {
		h.failSessionError(c, err, response.ErrPersistence)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": rec})
}

// RecordProblemCompletion godoc
// POST /api/v1/candidate/sessions/:submission_id/problems/:problem_id/complete
// Marks a coding problem finished with the judge verdict.
func (h *AssessmentHandler) RecordProblemCompletion(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.RecordProblemCompletionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	rec, err := h.sessionService.RecordProblemCompletion(
		c.Request.Context(),
		claims.UserID,
		c.Param("submission_id"),
		c.Param("problem_id"),
		*req.Passed,
	)
	if err != nil {
		h.failSessionError(c, err, response.ErrPersistence)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": rec})
}

// GetSessionState godoc
// GET /api/v1/candidate/sessions/:submission_id/state
// Returns the resume payload after a page reload: the record, the sub-tasks
// still open and the elapsed time. An absent session returns 404 so the
// front-end can redirect back to the assessment overview.
func (h *AssessmentHandler) GetSessionState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	state, err := h.sessionService.GetSessionState(c.Request.Context(), claims.UserID, c.Param("submission_id"))
	if err != nil {
		h.failSessionError(c, err, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// SubmitSession godoc
// POST /api/v1/candidate/sessions/:submission_id/submit
// Finalizes the session: grades, freezes and persists the record. If the
// write fails the candidate gets an error instead of a fake completion.
func (h *AssessmentHandler) SubmitSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	rec, err := h.sessionService.SubmitSession(c.Request.Context(), claims.UserID, c.Param("submission_id"))
	if err != nil {
		h.failSessionError(c, err, response.ErrPersistence)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": rec})
}

// failSessionError maps orchestrator sentinels to API error codes. fallback
// is used for unclassified errors: ErrPersistence on write paths so a failed
// save is never dressed up as success, ErrInternal on reads.
func (h *AssessmentHandler) failSessionError(c *gin.Context, err error, fallback response.ErrCode) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrAbsentSession)
	case errors.Is(err, service.ErrTestSetNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrTestSetNotFound)
	case errors.Is(err, session.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, service.ErrUnknownSubTask):
		response.Fail(c, http.StatusBadRequest, response.ErrUnknownSubTask)
	case errors.Is(err, service.ErrNotSessionOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotSessionOwner)
	default:
		response.Fail(c, http.StatusInternalServerError, fallback)
	}
}
