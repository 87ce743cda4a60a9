package api

import (
	"strconv"

	"rental-service/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	defaultOffset = 0
	defaultLimit  = 10
)

// listParams reads offset and limit from the query string. limit applies
// when the request names none.
func listParams(c *gin.Context, limit int) (models.ListParams, error) {
	offset, err := queryInt(c, "offset", defaultOffset)
	if err != nil {
		return models.ListParams{}, err
	}
	limit, err = queryInt(c, "limit", limit)
	if err != nil {
		return models.ListParams{}, err
	}
	return models.ListParams{Offset: offset, Limit: limit}, nil
}

// queryInt parses a non-negative integer query parameter
func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok {
		return def, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, &paramError{Name: name, Value: raw}
	}
	return v, nil
}

// pathID parses an integer path parameter
func pathID(c *gin.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &paramError{Name: name, Value: raw}
	}
	return id, nil
}
