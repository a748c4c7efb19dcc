package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newsroom-api/internal/models"
	"github.com/newsroom-api/internal/service"
	"github.com/rs/zerolog"
)

// GroupHandler handles curated-group configuration endpoints
type GroupHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewGroupHandler creates a new GroupHandler
func NewGroupHandler(services *service.Services, log zerolog.Logger) *GroupHandler {
	return &GroupHandler{
		services: services,
		log:      log.With().Str("handler", "group").Logger(),
	}
}

// List handles GET /v1/groups
func (h *GroupHandler) List(c *gin.Context) {
	configs, err := h.services.Group.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if configs == nil {
		configs = []*models.CuratedGroupConfig{}
	}
	c.JSON(http.StatusOK, gin.H{"groups": configs})
}

// Get handles GET /v1/groups/:group
func (h *GroupHandler) Get(c *gin.Context) {
	cfg, err := h.services.Group.Get(c.Request.Context(), c.Param("group"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// Save handles POST /v1/groups/:group
func (h *GroupHandler) Save(c *gin.Context) {
	var in models.GroupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badJSON(c)
		return
	}

	cfg, err := h.services.Group.Save(c.Request.Context(), c.Param("group"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "group": cfg})
}

// Delete handles DELETE /v1/groups/:group
func (h *GroupHandler) Delete(c *gin.Context) {
	if err := h.services.Group.Delete(c.Request.Context(), c.Param("group")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
