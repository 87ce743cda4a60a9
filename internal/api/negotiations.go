package api

import (
	"net/http"

	"rental-service/internal/service"

	"github.com/gin-gonic/gin"
)

// IdempotencyHeader lets clients retry negotiation creation safely
const IdempotencyHeader = "Idempotency-Key"

func (h *Handler) listNegotiations(c *gin.Context) {
	params, err := listParams(c, h.opts.DefaultLimit)
	if err != nil {
		c.Error(err)
		return
	}

	res, err := h.services.Negotiations.GetAll(c.Request.Context(), params)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) getNegotiation(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	negotiation, err := h.services.Negotiations.GetOne(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, negotiation)
}

// createNegotiation handles negotiation creation
func (h *Handler) createNegotiation(c *gin.Context) {
	var req service.CreateNegotiationRequest
	if err := bindJSON(c, &req); err != nil {
		c.Error(err)
		return
	}
	req.IdempotencyKey = c.GetHeader(IdempotencyHeader)

	negotiation, err := h.services.Negotiations.Create(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, negotiation)
}

func (h *Handler) deliverNegotiation(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	negotiation, err := h.services.Negotiations.Deliver(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, negotiation)
}

func (h *Handler) destroyNegotiation(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.services.Negotiations.Destroy(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) negotiationHistory(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	events, err := h.services.Negotiations.History(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": events})
}
