package api

import (
	"net/http"

	"rental-service/internal/service"

	"github.com/gin-gonic/gin"
)

// unitPath reads the media id and, when present, the unit id of a unit route
func unitPath(c *gin.Context, withUnit bool) (mediaID, unitID int64, err error) {
	mediaID, err = pathID(c, "id")
	if err != nil || !withUnit {
		return mediaID, 0, err
	}
	unitID, err = pathID(c, "unitId")
	return mediaID, unitID, err
}

func (h *Handler) listUnits(c *gin.Context) {
	mediaID, _, err := unitPath(c, false)
	if err != nil {
		c.Error(err)
		return
	}
	params, err := listParams(c, h.opts.DefaultLimit)
	if err != nil {
		c.Error(err)
		return
	}

	res, err := h.services.Units.GetAll(c.Request.Context(), mediaID, params)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) getUnit(c *gin.Context) {
	mediaID, unitID, err := unitPath(c, true)
	if err != nil {
		c.Error(err)
		return
	}

	unit, err := h.services.Units.GetOne(c.Request.Context(), mediaID, unitID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, unit)
}

func (h *Handler) createUnit(c *gin.Context) {
	mediaID, _, err := unitPath(c, false)
	if err != nil {
		c.Error(err)
		return
	}

	var in service.UnitInput
	if err := bindJSON(c, &in); err != nil {
		c.Error(err)
		return
	}

	unit, err := h.services.Units.Create(c.Request.Context(), mediaID, &in)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, unit)
}

func (h *Handler) updateUnit(c *gin.Context) {
	mediaID, unitID, err := unitPath(c, true)
	if err != nil {
		c.Error(err)
		return
	}

	var in service.UnitInput
	if err := bindJSON(c, &in); err != nil {
		c.Error(err)
		return
	}

	unit, err := h.services.Units.Update(c.Request.Context(), mediaID, unitID, &in)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, unit)
}

func (h *Handler) destroyUnit(c *gin.Context) {
	mediaID, unitID, err := unitPath(c, true)
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.services.Units.Destroy(c.Request.Context(), mediaID, unitID); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
