package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/salonspace/booking-backend/internal/models"
	"github.com/salonspace/booking-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// ConnectOnboarder manages owner payout accounts
type ConnectOnboarder interface {
	CreateOnboardingLink(ctx context.Context, owner *models.Profile, origin string, meta *utils.RequestMeta) (*models.ConnectOnboardingLink, error)
	CheckStatus(ctx context.Context, profile *models.Profile) (*models.ConnectStatus, error)
}

// ConnectHandler handles salon owner payout onboarding
type ConnectHandler struct {
	connect ConnectOnboarder
	origins *OriginResolver
	logger  *logrus.Logger
}

// NewConnectHandler creates a new connect handler
func NewConnectHandler(connect ConnectOnboarder, origins *OriginResolver, logger *logrus.Logger) *ConnectHandler {
	return &ConnectHandler{
		connect: connect,
		origins: origins,
		logger:  logger,
	}
}

// CreateAccount handles POST /api/v1/connect/account (salon owner only)
func (h *ConnectHandler) CreateAccount(c *gin.Context) {
	owner, ok := requireProfile(c)
	if !ok {
		return
	}

	meta := utils.NewRequestMeta(c)
	link, err := h.connect.CreateOnboardingLink(c.Request.Context(), owner, h.origins.Resolve(c), &meta)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, link)
}

// GetStatus handles GET /api/v1/connect/status
func (h *ConnectHandler) GetStatus(c *gin.Context) {
	profile, ok := requireProfile(c)
	if !ok {
		return
	}

	status, err := h.connect.CheckStatus(c.Request.Context(), profile)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, status)
}
