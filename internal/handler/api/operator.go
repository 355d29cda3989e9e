package api

import (
	"context"
	"net/http"

	reqdto "homecare-booking/internal/handler/dto/request"
	"homecare-booking/internal/usecase/commands"
	"homecare-booking/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OperatorHandler exposes the lifecycle transitions driven by marketplace
// operations rather than the booking client.
type OperatorHandler struct {
	commands commands.BookingCommands
	queries  queries.BookingQueries
}

func NewOperatorHandler(cmds commands.BookingCommands, qrs queries.BookingQueries) *OperatorHandler {
	return &OperatorHandler{
		commands: cmds,
		queries:  qrs,
	}
}

// @Summary Start caregiver search
// @Tags operator
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 200 {object} resdto.BookingResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /operator/bookings/{id}/search [post]
func (h *OperatorHandler) StartSearch(c *gin.Context) {
	h.applyTransition(c, h.commands.StartSearch)
}

// @Summary Assign caregiver
// @Tags operator
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Param request body reqdto.AssignCaregiverRequest true "Assignment request"
// @Success 200 {object} resdto.BookingResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /operator/bookings/{id}/assign [post]
func (h *OperatorHandler) AssignCaregiver(c *gin.Context) {
	id, err := parseBookingID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid booking ID format",
		})
		return
	}

	var req reqdto.AssignCaregiverRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	if err := h.commands.AssignCaregiver(c.Request.Context(), id, req.CaregiverID); err != nil {
		writeCommandError(c, err)
		return
	}

	writeBookingView(c, h.queries, id)
}

// @Summary Confirm booking
// @Tags operator
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 200 {object} resdto.BookingResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /operator/bookings/{id}/confirm [post]
func (h *OperatorHandler) ConfirmBooking(c *gin.Context) {
	h.applyTransition(c, h.commands.ConfirmBooking)
}

// @Summary Complete booking
// @Tags operator
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 200 {object} resdto.BookingResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /operator/bookings/{id}/complete [post]
func (h *OperatorHandler) CompleteBooking(c *gin.Context) {
	h.applyTransition(c, h.commands.CompleteBooking)
}

// @Summary Mark booking no-show
// @Tags operator
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 200 {object} resdto.BookingResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /operator/bookings/{id}/no-show [post]
func (h *OperatorHandler) MarkNoShow(c *gin.Context) {
	h.applyTransition(c, h.commands.MarkNoShow)
}

// @Summary Get booking (operator)
// @Tags operator
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 200 {object} resdto.BookingResponse
// @Failure 404 {object} map[string]string
// @Router /operator/bookings/{id} [get]
func (h *OperatorHandler) GetBooking(c *gin.Context) {
	id, err := parseBookingID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid booking ID format",
		})
		return
	}
	writeBookingView(c, h.queries, id)
}

func (h *OperatorHandler) applyTransition(c *gin.Context, apply func(ctx context.Context, bookingID uuid.UUID) error) {
	id, err := parseBookingID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid booking ID format",
		})
		return
	}

	if err := apply(c.Request.Context(), id); err != nil {
		writeCommandError(c, err)
		return
	}

	writeBookingView(c, h.queries, id)
}
