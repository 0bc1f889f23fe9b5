package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/skillgate/assess-backend/internal/model"
	"github.com/skillgate/assess-backend/internal/repository"
	"github.com/skillgate/assess-backend/internal/response"
	"github.com/skillgate/assess-backend/internal/service"
	"github.com/skillgate/assess-backend/internal/validator"
)

// TestSetHandler handles recruiter-facing test-set management endpoints.
type TestSetHandler struct {
	testSetService *service.TestSetService
}

// NewTestSetHandler creates a new TestSetHandler.
func NewTestSetHandler(testSetService *service.TestSetService) *TestSetHandler {
	return &TestSetHandler{testSetService: testSetService}
}

// CreateTestSet godoc
// POST /api/v1/recruiter/test-sets
func (h *TestSetHandler) CreateTestSet(c *gin.Context) {
	var req model.CreateTestSetRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ts, err := h.testSetService.Create(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"test_set": ts})
}

// GetTestSet godoc
// GET /api/v1/recruiter/test-sets/:test_set_id
func (h *TestSetHandler) GetTestSet(c *gin.Context) {
	id, err := uuid.Parse(c.Param("test_set_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	ts, err := h.testSetService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrTestSetNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test_set": ts})
}

// ListTestSets godoc
// GET /api/v1/recruiter/test-sets
func (h *TestSetHandler) ListTestSets(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	sets, total, err := h.testSetService.List(c.Request.Context(), page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if sets == nil {
		sets = []model.TestSet{}
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"test_sets": sets}, buildPagination(page, perPage, total))
}

// ListResults godoc
// GET /api/v1/recruiter/test-sets/:test_set_id/results
// Returns archived submission results, best score first.
func (h *TestSetHandler) ListResults(c *gin.Context) {
	id, err := uuid.Parse(c.Param("test_set_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	results, total, err := h.testSetService.ListResults(c.Request.Context(), id, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if results == nil {
		results = []repository.SubmissionResult{}
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, buildPagination(page, perPage, total))
}

func buildPagination(page, perPage int, total int64) *response.Pagination {
	if perPage <= 0 {
		perPage = 10
	}
	return &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: int(math.Ceil(float64(total) / float64(perPage))),
	}
}
