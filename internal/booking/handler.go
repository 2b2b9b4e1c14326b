package booking

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ticketblitz/internal/pkg/apperr"
	"ticketblitz/internal/pkg/ginutil"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r *gin.Engine) {
	r.POST("/bookings", h.bookTicket)
	r.GET("/bookings/:id", h.getBooking)
}

type bookTicketRequest struct {
	UserID      uint64 `json:"userId"`
	EventID     uint64 `json:"eventId"`
	TicketCount int    `json:"ticketCount"`
}

func (h *Handler) bookTicket(c *gin.Context) {
	var req bookTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ginutil.Error(c, apperr.New(apperr.CodeValidation, "malformed request body"))
		return
	}

	authToken := c.GetHeader("Authorization")
	b, err := h.svc.BookTicket(c.Request.Context(), req.UserID, req.EventID, req.TicketCount, authToken)
	if err != nil {
		ginutil.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *Handler) getBooking(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		ginutil.Error(c, apperr.New(apperr.CodeValidation, "invalid booking id"))
		return
	}
	b, err := h.svc.GetBooking(c.Request.Context(), id)
	if err != nil {
		ginutil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
