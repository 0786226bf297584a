package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/salonspace/booking-backend/internal/models"
	"github.com/salonspace/booking-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// BookingManager reads and cancels bookings on behalf of a caller
type BookingManager interface {
	ListForRenter(ctx context.Context, renter *models.Profile, limit, offset int) ([]models.BookingWithListing, error)
	Get(ctx context.Context, caller *models.Profile, bookingID uuid.UUID) (*models.BookingWithListing, error)
	Cancel(ctx context.Context, renter *models.Profile, bookingID uuid.UUID, meta *utils.RequestMeta) (*models.Booking, error)
}

// BookingHandler handles booking-related HTTP requests
type BookingHandler struct {
	bookings BookingManager
	logger   *logrus.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookings BookingManager, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		logger:   logger,
	}
}

// ListMyBookings handles GET /api/v1/bookings
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	renter, ok := requireProfile(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	bookings, err := h.bookings.ListForRenter(c.Request.Context(), renter, limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"total":    len(bookings),
		"limit":    limit,
		"offset":   offset,
	})
}

// GetBooking handles GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	caller, ok := requireProfile(c)
	if !ok {
		return
	}

	bookingID, ok := parseBookingID(c)
	if !ok {
		return
	}

	booking, err := h.bookings.Get(c.Request.Context(), caller, bookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	renter, ok := requireProfile(c)
	if !ok {
		return
	}

	bookingID, ok := parseBookingID(c)
	if !ok {
		return
	}

	meta := utils.NewRequestMeta(c)
	booking, err := h.bookings.Cancel(c.Request.Context(), renter, bookingID, &meta)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Booking cancelled",
		"booking": booking,
	})
}

func parseBookingID(c *gin.Context) (uuid.UUID, bool) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   string(models.ErrKindInvalidInput),
			Message: "Invalid booking ID format",
		})
		return uuid.Nil, false
	}
	return bookingID, true
}
