package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safar/safar/backend/go-services/internal/blog"
	"github.com/safar/safar/backend/go-services/pkg/logger"
	"github.com/safar/safar/backend/go-services/pkg/middleware"
)

type BlogHandler struct {
	svc *blog.Service
}

func NewBlogHandler(svc *blog.Service) *BlogHandler { return &BlogHandler{svc: svc} }

func (h *BlogHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/blog/posts", h.List)
	rg.POST("/blog/posts", h.Create)
	rg.DELETE("/blog/posts/:id", h.Delete)
}

func blogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, blog.ErrInvalidPost):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, blog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, blog.ErrNoUser):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no active session"})
	default:
		logger.Errorf("blog: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *BlogHandler) List(c *gin.Context) {
	posts, err := h.svc.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		blogError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (h *BlogHandler) Create(c *gin.Context) {
	var in blog.NewPost
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.svc.Create(c.Request.Context(), middleware.CurrentUser(c), in)
	if err != nil {
		blogError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *BlogHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		blogError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
