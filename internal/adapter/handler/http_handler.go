package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/glossly/dealdesk/internal/core/domain"
	"github.com/glossly/dealdesk/internal/core/service"
	"github.com/glossly/dealdesk/internal/port"
)

type HTTPHandler struct {
	orders *service.OrderService
}

func NewHTTPHandler(orders *service.OrderService) *HTTPHandler {
	return &HTTPHandler{orders: orders}
}

// NewRouter wires the order store API.
func NewRouter(orders *service.OrderService) *gin.Engine {
	h := NewHTTPHandler(orders)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/health", h.Health)
	router.GET("/orders", h.ListOrders)
	router.POST("/orders", h.CreateOrder)
	router.PATCH("/orders/:id", h.PatchOrder)
	return router
}

type patchOrderRequest struct {
	Status      *domain.Status   `json:"status"`
	Actor       *domain.Actor    `json:"actor"`
	AgreedPrice *decimal.Decimal `json:"agreedPrice"`
	OpenedAt    *time.Time       `json:"openedAt"`
}

func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HTTPHandler) ListOrders(c *gin.Context) {
	dealerID := c.Query("dealerId")
	if dealerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dealerId is required"})
		return
	}

	orders, err := h.orders.ListByDealer(c.Request.Context(), dealerID)
	if err != nil {
		respondError(c, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	c.JSON(http.StatusOK, orders)
}

func (h *HTTPHandler) CreateOrder(c *gin.Context) {
	var req domain.NewOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	order, err := h.orders.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// PatchOrder serves both mutations of the contract, dispatched on body
// shape: {status, actor, agreedPrice?} is a transition, {openedAt} is the
// idempotent opened stamp.
func (h *HTTPHandler) PatchOrder(c *gin.Context) {
	orderID := c.Param("id")

	var req patchOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	switch {
	case req.Status != nil:
		if req.Actor == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "actor is required for a status change"})
			return
		}
		order, err := h.orders.Transition(c.Request.Context(), orderID, *req.Actor, *req.Status, req.AgreedPrice)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)

	case req.OpenedAt != nil:
		if err := h.orders.MarkOpened(c.Request.Context(), orderID, *req.OpenedAt); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to patch"})
	}
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	case errors.Is(err, service.ErrIllegalTransition):
		// The message names the blocked edge; clients surface it verbatim.
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, port.ErrStatusConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrSameParty),
		errors.Is(err, domain.ErrMissingParty),
		errors.Is(err, domain.ErrMissingGig),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidActor):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
