package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newsroom-api/internal/service"
	"github.com/newsroom-api/internal/socialcard"
	"github.com/rs/zerolog"
)

const cardCacheControl = "public, max-age=86400, s-maxage=86400"

// MediaHandler serves rendered social cards and proxied images
type MediaHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewMediaHandler creates a new MediaHandler
func NewMediaHandler(services *service.Services, log zerolog.Logger) *MediaHandler {
	return &MediaHandler{
		services: services,
		log:      log.With().Str("handler", "media").Logger(),
	}
}

// SocialCard handles GET /v1/social-card?id=&s=|size=
// Errors are plain text since clients expect an image body.
func (h *MediaHandler) SocialCard(c *gin.Context) {
	size := socialcard.ParseSize(c.Query("s"), c.Query("size"))

	card, err := h.services.Media.SocialCard(c.Request.Context(), c.Query("id"), size)
	if err != nil {
		h.log.Warn().Err(err).Str("article_id", c.Query("id")).Msg("Social card render failed")
		respondText(c, err)
		return
	}

	cacheState := "MISS"
	if card.Cached {
		cacheState = "HIT"
	}
	c.Header("Cache-Control", cardCacheControl)
	c.Header("X-Insta-Cache", cacheState)
	c.Data(http.StatusOK, card.ContentType, card.Bytes)
}

// ProxyImage handles GET /v1/image?url=
func (h *MediaHandler) ProxyImage(c *gin.Context) {
	img, err := h.services.Media.ProxyImage(c.Request.Context(), c.Query("url"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Cache-Control", img.CacheControl)
	if img.Fallback != "" {
		c.Header("X-Image-Proxy-Fallback", img.Fallback)
	}
	c.Data(http.StatusOK, img.ContentType, img.Body)
}
