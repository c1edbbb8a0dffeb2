package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bistiadi/portfolio/internal/services"
	"github.com/bistiadi/portfolio/pkg/response"
)

// ExpertiseHandler manages the shared expertise catalog for staff users.
type ExpertiseHandler struct {
	expertise *services.ExpertiseService
}

func NewExpertiseHandler(expertise *services.ExpertiseService) *ExpertiseHandler {
	return &ExpertiseHandler{expertise: expertise}
}

type expertiseRequest struct {
	Name string `json:"name" validate:"required,max=15"`
}

// GET /api/expertise
func (h *ExpertiseHandler) List(c *gin.Context) {
	items, err := h.expertise.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, items)
}

// GET /api/expertise/:id
func (h *ExpertiseHandler) Get(c *gin.Context) {
	item, err := h.expertise.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, item)
}

// POST /api/expertise
func (h *ExpertiseHandler) Create(c *gin.Context) {
	var req expertiseRequest
	if !bindAndValidate(c, &req) {
		return
	}

	item, err := h.expertise.Create(requestContext(c), req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, item)
}

// PUT /api/expertise/:id
func (h *ExpertiseHandler) Update(c *gin.Context) {
	var req expertiseRequest
	if !bindAndValidate(c, &req) {
		return
	}

	item, err := h.expertise.Update(requestContext(c), c.Param("id"), req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, item)
}

// DELETE /api/expertise/:id
func (h *ExpertiseHandler) Delete(c *gin.Context) {
	if err := h.expertise.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
