package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/salonspace/booking-backend/internal/middleware"
	"github.com/salonspace/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error          string `json:"error"`
	Message        string `json:"message"`
	Code           string `json:"code,omitempty"`
	ExpectedAmount *int64 `json:"expected_amount,omitempty"`
}

var statusByKind = map[models.ErrorKind]int{
	models.ErrKindInvalidInput:        http.StatusBadRequest,
	models.ErrKindAmountMismatch:      http.StatusBadRequest,
	models.ErrKindInvalidSignature:    http.StatusBadRequest,
	models.ErrKindMalformedMetadata:   http.StatusBadRequest,
	models.ErrKindPaymentNotCompleted: http.StatusBadRequest,
	models.ErrKindListingUnavailable:  http.StatusConflict,
	models.ErrKindOwnerNotOnboarded:   http.StatusConflict,
	models.ErrKindConflict:            http.StatusConflict,
	models.ErrKindPaymentSetupFailed:  http.StatusBadGateway,
	models.ErrKindUnauthorized:        http.StatusForbidden,
	models.ErrKindSessionNotFound:     http.StatusNotFound,
	models.ErrKindNotFound:            http.StatusNotFound,
	models.ErrKindProviderTimeout:     http.StatusGatewayTimeout,
}

// clientMessages replaces messages for kinds whose detail must not reach clients
var clientMessages = map[models.ErrorKind]string{
	models.ErrKindInvalidSignature: "Invalid signature",
	models.ErrKindUnauthorized:     "Unauthorized",
}

// StatusForKind maps an error kind to its HTTP status
func StatusForKind(kind models.ErrorKind) int {
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError writes the JSON error body for err. Unclassified errors are
// reported as internal errors without their text.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		logger.WithError(err).WithField("path", c.FullPath()).Error("Unhandled error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   string(models.ErrKindInternal),
			Message: "Internal server error",
		})
		return
	}

	status := StatusForKind(appErr.Kind)
	message := appErr.Message
	if override, ok := clientMessages[appErr.Kind]; ok {
		message = override
	}
	if message == "" {
		message = http.StatusText(status)
	}
	if status >= http.StatusInternalServerError {
		logger.WithError(err).WithFields(logrus.Fields{
			"path": c.FullPath(),
			"kind": appErr.Kind,
		}).Error("Request failed")
	}

	c.JSON(status, ErrorResponse{
		Error:          string(appErr.Kind),
		Message:        message,
		ExpectedAmount: appErr.ExpectedAmount,
	})
}

// requireProfile reads the caller profile set by middleware.RequireProfile
func requireProfile(c *gin.Context) (*models.Profile, bool) {
	profile, ok := middleware.GetProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "User not authenticated",
		})
		return nil, false
	}
	return profile, true
}
