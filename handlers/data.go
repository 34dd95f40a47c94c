package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safar/safar/backend/go-services/internal/userstore"
	"github.com/safar/safar/backend/go-services/pkg/middleware"
)

const maxValueBytes = 1 << 20

// DataHandler exposes the active user's namespace as raw JSON values.
type DataHandler struct {
	store *userstore.Store
}

func NewDataHandler(s *userstore.Store) *DataHandler { return &DataHandler{store: s} }

// Register routes under a group already guarded by middleware.RequireSession.
func (h *DataHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/data/:key", h.Get)
	rg.PUT("/data/:key", h.Put)
	rg.DELETE("/data/:key", h.Delete)
	rg.DELETE("/data", h.Clear)
}

func (h *DataHandler) Get(c *gin.Context) {
	var v json.RawMessage
	if !h.store.GetInto(c.Request.Context(), c.Param("key"), middleware.UserID(c), &v) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", v)
}

func (h *DataHandler) Put(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxValueBytes+1))
	if err != nil || len(body) > maxValueBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body too large or unreadable"})
		return
	}
	if !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be valid JSON"})
		return
	}
	h.store.Set(c.Request.Context(), c.Param("key"), json.RawMessage(body), middleware.UserID(c))
	c.Status(http.StatusNoContent)
}

func (h *DataHandler) Delete(c *gin.Context) {
	h.store.Remove(c.Request.Context(), c.Param("key"), middleware.UserID(c))
	c.Status(http.StatusNoContent)
}

// Clear removes every record in the active user's namespace.
func (h *DataHandler) Clear(c *gin.Context) {
	n := h.store.ClearAllForUser(c.Request.Context(), middleware.UserID(c))
	c.JSON(http.StatusOK, gin.H{"removed": n})
}
