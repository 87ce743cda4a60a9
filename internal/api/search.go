package api

import (
	"net/http"

	"rental-service/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) search(c *gin.Context) {
	params, err := listParams(c, h.opts.DefaultLimit)
	if err != nil {
		c.Error(err)
		return
	}

	res, err := h.services.Search.Search(c.Request.Context(), models.SearchParams{
		ListParams:   params,
		Title:        c.Query("title"),
		MediaType:    models.MediaType(c.Query("mediaType")),
		AvailableFor: models.NegotiationType(c.Query("availableFor")),
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}
