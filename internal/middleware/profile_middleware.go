package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/salonspace/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// ProfileContextKey is the key used to store the caller's marketplace profile
const ProfileContextKey = "profile"

// ProfileLookup resolves the marketplace profile of an authenticated user
type ProfileLookup interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

// RequireProfile loads the caller's profile and stores it in the context.
// Must be used after AuthMiddleware.
func RequireProfile(profiles ProfileLookup, timeout time.Duration, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userCtx, exists := GetUserContext(c)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "User context not found",
				"code":    "MISSING_USER_CONTEXT",
			})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		profile, err := profiles.GetByUserID(ctx, userCtx.UserID)
		if err != nil {
			logger.WithError(err).WithField("user_id", userCtx.UserID).Error("Failed to resolve caller profile")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "Failed to load profile",
			})
			return
		}

		if profile == nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "profile_not_found",
				"message": "Profile not found",
				"code":    "PROFILE_NOT_FOUND",
			})
			return
		}

		c.Set(ProfileContextKey, profile)
		c.Set("profile_id", profile.ID.String())

		c.Next()
	}
}

// RequireSalonOwner rejects callers whose profile is not a salon owner.
// Must be used after RequireProfile.
func RequireSalonOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := GetProfile(c)
		if !ok || !profile.IsSalonOwner() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Only salon owners can access this resource",
				"code":    "INSUFFICIENT_PERMISSIONS",
			})
			return
		}

		c.Next()
	}
}

// GetProfile retrieves the caller's profile from Gin context
func GetProfile(c *gin.Context) (*models.Profile, bool) {
	value, exists := c.Get(ProfileContextKey)
	if !exists {
		return nil, false
	}

	profile, ok := value.(*models.Profile)
	if !ok || profile == nil {
		return nil, false
	}

	return profile, true
}
