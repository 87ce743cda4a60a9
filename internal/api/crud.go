package api

import (
	"net/http"

	"rental-service/internal/service"

	"github.com/gin-gonic/gin"
)

// crudRoutes serves the five uniform endpoints of an entity service
type crudRoutes[T any, In any] struct {
	svc          service.CrudService[T, In]
	defaultLimit int
}

func registerCrud[T any, In any](g *gin.RouterGroup, svc service.CrudService[T, In], defaultLimit int) {
	r := &crudRoutes[T, In]{svc: svc, defaultLimit: defaultLimit}

	g.GET("", r.list)
	g.POST("", r.create)
	g.GET("/:id", r.get)
	g.PUT("/:id", r.update)
	g.DELETE("/:id", r.destroy)
}

func (r *crudRoutes[T, In]) list(c *gin.Context) {
	params, err := listParams(c, r.defaultLimit)
	if err != nil {
		c.Error(err)
		return
	}

	res, err := r.svc.GetAll(c.Request.Context(), params)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (r *crudRoutes[T, In]) get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	item, err := r.svc.GetOne(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (r *crudRoutes[T, In]) create(c *gin.Context) {
	var in In
	if err := bindJSON(c, &in); err != nil {
		c.Error(err)
		return
	}

	item, err := r.svc.Create(c.Request.Context(), &in)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// update replaces the record and answers 201 like create
func (r *crudRoutes[T, In]) update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	var in In
	if err := bindJSON(c, &in); err != nil {
		c.Error(err)
		return
	}

	item, err := r.svc.Update(c.Request.Context(), id, &in)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (r *crudRoutes[T, In]) destroy(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.Error(err)
		return
	}

	if err := r.svc.Destroy(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
