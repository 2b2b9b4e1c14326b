package inventory

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"ticketblitz/internal/pkg/apperr"
	"ticketblitz/internal/pkg/ginutil"
)

// Handler 库存账本的 HTTP 入口。
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r *gin.Engine) {
	r.GET("/events/:id", h.getEvent)
	r.GET("/events", h.listEvents)
	r.POST("/events", h.createEvent)
	r.POST("/inventory/:id/reserve", h.reserve)
	r.PUT("/inventory/:id/release", h.release)
}

func parseID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		ginutil.Error(c, apperr.New(apperr.CodeValidation, "invalid event id"))
		return 0, false
	}
	return id, true
}

func parseCount(c *gin.Context) (int, bool) {
	count, err := strconv.Atoi(c.Query("count"))
	if err != nil || count < 1 {
		ginutil.Error(c, apperr.New(apperr.CodeValidation, "count must be a positive integer"))
		return 0, false
	}
	return count, true
}

func (h *Handler) getEvent(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	e, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		ginutil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) listEvents(c *gin.Context) {
	out, err := h.svc.List(c.Request.Context())
	if err != nil {
		ginutil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type createEventRequest struct {
	Title        string          `json:"title"`
	Price        decimal.Decimal `json:"price"`
	TotalTickets int             `json:"totalTickets"`
}

func (h *Handler) createEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ginutil.Error(c, apperr.New(apperr.CodeValidation, "malformed request body"))
		return
	}
	e := &Event{Title: req.Title, Price: req.Price, TotalTickets: req.TotalTickets}
	if err := h.svc.Create(c.Request.Context(), e); err != nil {
		ginutil.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *Handler) reserve(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	count, ok := parseCount(c)
	if !ok {
		return
	}
	reserved, err := h.svc.Reserve(c.Request.Context(), id, count)
	if err != nil {
		ginutil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reserved": reserved})
}

func (h *Handler) release(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	count, ok := parseCount(c)
	if !ok {
		return
	}
	if err := h.svc.Release(c.Request.Context(), id, count); err != nil {
		ginutil.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"released": true})
}
