package api

import (
	"net/http"

	"homecare-booking/internal/domain/booking"
	reqdto "homecare-booking/internal/handler/dto/request"
	resdto "homecare-booking/internal/handler/dto/response"
	"homecare-booking/internal/handler/middleware"
	"homecare-booking/internal/pkg/errs"
	"homecare-booking/internal/usecase/commands"
	"homecare-booking/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BookingHandler struct {
	commands commands.BookingCommands
	queries  queries.BookingQueries
}

func NewBookingHandler(cmds commands.BookingCommands, qrs queries.BookingQueries) *BookingHandler {
	return &BookingHandler{
		commands: cmds,
		queries:  qrs,
	}
}

// @Summary Create booking
// @Description Request a new home-care booking with a priced snapshot
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.CreateBookingRequest true "Booking request"
// @Success 201 {object} resdto.BookingResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	clientID, ok := middleware.GetSubjectID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	var req reqdto.CreateBookingRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	id, err := h.commands.CreateBooking(c.Request.Context(), commands.CreateBookingInput{
		ClientID:    clientID,
		Kind:        req.Kind,
		ScheduledAt: req.ScheduledAt,
		Location:    req.Location,
		Details:     req.Details,
	})
	if err != nil {
		writeCommandError(c, err)
		return
	}

	view, err := h.queries.GetBookingSystem(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	c.JSON(http.StatusCreated, resdto.FromBookingView(view))
}

// @Summary Get booking
// @Description Get one of the caller's bookings by ID
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 200 {object} resdto.BookingResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /bookings/{id} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	clientID, ok := middleware.GetSubjectID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	id, err := parseBookingID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid booking ID format",
		})
		return
	}

	view, err := h.queries.GetBooking(c.Request.Context(), id, clientID)
	if err != nil {
		switch {
		case errs.Is(err, errs.ErrBookingNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Booking not found",
			})
		case errs.Is(err, errs.ErrStoreUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Service temporarily unavailable",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusOK, resdto.FromBookingView(view))
}

// @Summary List upcoming bookings
// @Description List the caller's non-terminal bookings scheduled from now on
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Success 200 {array} resdto.BookingListResponse
// @Failure 401 {object} map[string]string
// @Router /bookings [get]
func (h *BookingHandler) ListUpcomingBookings(c *gin.Context) {
	clientID, ok := middleware.GetSubjectID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	items, err := h.queries.ListUpcoming(c.Request.Context(), clientID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	response := make([]*resdto.BookingListResponse, len(items))
	for i, item := range items {
		response[i] = resdto.FromBookingListItem(item)
	}

	c.JSON(http.StatusOK, response)
}

// @Summary Cancel booking
// @Description Cancel one of the caller's bookings with a time-tiered refund
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Param request body reqdto.CancelBookingRequest true "Cancellation request"
// @Success 200 {object} resdto.BookingResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /bookings/{id}/cancel [post]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	clientID, ok := middleware.GetSubjectID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	id, err := parseBookingID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid booking ID format",
		})
		return
	}

	var req reqdto.CancelBookingRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	err = h.commands.CancelBooking(c.Request.Context(), commands.CancelBookingInput{
		BookingID: id,
		ClientID:  clientID,
		By:        string(booking.ActorClient),
		Reason:    req.TrimmedReason(),
	})
	if err != nil {
		writeCommandError(c, err)
		return
	}

	writeBookingView(c, h.queries, id)
}

// @Summary Review booking
// @Description Attach a one-time rating to a completed booking
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Param request body reqdto.ReviewBookingRequest true "Review request"
// @Success 200 {object} resdto.BookingResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /bookings/{id}/review [post]
func (h *BookingHandler) ReviewBooking(c *gin.Context) {
	clientID, ok := middleware.GetSubjectID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	id, err := parseBookingID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid booking ID format",
		})
		return
	}

	var req reqdto.ReviewBookingRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	err = h.commands.ReviewBooking(c.Request.Context(), commands.ReviewBookingInput{
		BookingID: id,
		ClientID:  clientID,
		Score:     req.Score,
		Review:    req.Review,
		Aspects:   req.Aspects,
	})
	if err != nil {
		writeCommandError(c, err)
		return
	}

	writeBookingView(c, h.queries, id)
}

func writeBookingView(c *gin.Context, qrs queries.BookingQueries, id uuid.UUID) {
	view, err := qrs.GetBookingSystem(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}
	c.JSON(http.StatusOK, resdto.FromBookingView(view))
}

func writeCommandError(c *gin.Context, err error) {
	switch {
	case errs.Is(err, errs.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Validation failed",
		})
	case errs.Is(err, errs.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Booking not found",
		})
	case errs.Is(err, errs.ErrCatalogEntryNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No active catalog entry for this service kind",
		})
	case errs.Is(err, errs.ErrInvalidStateTransition):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Booking state does not allow this operation",
		})
	case errs.Is(err, errs.ErrDuplicateReview):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Booking already reviewed",
		})
	case errs.Is(err, errs.ErrStaleState):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Booking was modified concurrently, retry the request",
		})
	case errs.Is(err, errs.ErrStoreUnavailable), errs.Is(err, errs.ErrBrokerUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Service temporarily unavailable",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}

func parseBookingID(c *gin.Context) (uuid.UUID, error) {
	return uuid.Parse(c.Param("id"))
}
