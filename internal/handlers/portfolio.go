package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bistiadi/portfolio/internal/services"
	"github.com/bistiadi/portfolio/pkg/response"
)

// PortfolioHandler serves the public, unauthenticated portfolio views.
type PortfolioHandler struct {
	profiles  *services.ProfileService
	expertise *services.ExpertiseService
}

func NewPortfolioHandler(profiles *services.ProfileService, expertise *services.ExpertiseService) *PortfolioHandler {
	return &PortfolioHandler{profiles: profiles, expertise: expertise}
}

// GET /api/portfolio/profiles
func (h *PortfolioHandler) ListProfiles(c *gin.Context) {
	profiles, err := h.profiles.ListAll(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	payload := make([]gin.H, 0, len(profiles))
	for i := range profiles {
		payload = append(payload, profilePayload(&profiles[i]))
	}
	response.Success(c, http.StatusOK, payload)
}

// GET /api/portfolio/expertise
func (h *PortfolioHandler) ListExpertise(c *gin.Context) {
	items, err := h.expertise.List(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, items)
}
