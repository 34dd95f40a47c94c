package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/safar/safar/backend/go-services/internal/trips"
	"github.com/safar/safar/backend/go-services/pkg/logger"
	"github.com/safar/safar/backend/go-services/pkg/middleware"
)

type TripsHandler struct {
	svc *trips.Service
}

func NewTripsHandler(svc *trips.Service) *TripsHandler { return &TripsHandler{svc: svc} }

func (h *TripsHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/trips", h.List)
	rg.POST("/trips", h.Create)
	rg.GET("/trips/:id", h.Get)
	rg.PUT("/trips/:id", h.Update)
	rg.DELETE("/trips/:id", h.Delete)
	rg.PATCH("/trips/:id/checklist/:item", h.SetChecklistItem)

	rg.GET("/current-trip", h.Current)
	rg.PUT("/current-trip", h.SetCurrent)
	rg.DELETE("/current-trip", h.ClearCurrent)
}

func tripError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, trips.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, trips.ErrInvalidTrip):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, trips.ErrNoUser):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
	default:
		logger.Errorf("trips: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *TripsHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		tripError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *TripsHandler) Create(c *gin.Context) {
	var t trips.Trip
	if err := c.ShouldBindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t.ID = ""
	saved, err := h.svc.Save(c.Request.Context(), middleware.UserID(c), &t)
	if err != nil {
		tripError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (h *TripsHandler) Get(c *gin.Context) {
	t, err := h.svc.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		tripError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TripsHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()
	uid := middleware.UserID(c)
	if _, err := h.svc.Get(ctx, uid, c.Param("id")); err != nil {
		tripError(c, err)
		return
	}
	var t trips.Trip
	if err := c.ShouldBindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t.ID = c.Param("id")
	saved, err := h.svc.Save(ctx, uid, &t)
	if err != nil {
		tripError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *TripsHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		tripError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TripsHandler) SetChecklistItem(c *gin.Context) {
	item, err := strconv.ParseInt(c.Param("item"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item must be numeric"})
		return
	}
	var req struct {
		Completed *bool `json:"completed" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "completed is required"})
		return
	}
	t, err := h.svc.SetChecklistItem(c.Request.Context(), middleware.UserID(c), c.Param("id"), item, *req.Completed)
	if err != nil {
		tripError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TripsHandler) Current(c *gin.Context) {
	t, err := h.svc.Current(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		tripError(c, err)
		return
	}
	if t == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no current trip"})
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TripsHandler) SetCurrent(c *gin.Context) {
	var t trips.Trip
	if err := c.ShouldBindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.SetCurrent(c.Request.Context(), middleware.UserID(c), &t); err != nil {
		tripError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TripsHandler) ClearCurrent(c *gin.Context) {
	if err := h.svc.ClearCurrent(c.Request.Context(), middleware.UserID(c)); err != nil {
		tripError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
