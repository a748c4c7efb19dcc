package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newsroom-api/pkg/apperr"
)

// respondError writes the JSON error envelope for err
func respondError(c *gin.Context, err error) {
	status, msg := apperr.StatusCode(err)
	body := gin.H{"ok": false, "error": msg}
	if field := apperr.FieldOf(err); field != "" {
		body["field"] = field
	}
	c.JSON(status, body)
}

// respondText writes err as plain text, for endpoints that serve binary
// bodies on success
func respondText(c *gin.Context, err error) {
	status, msg := apperr.StatusCode(err)
	c.String(status, msg)
}

func badJSON(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "Invalid JSON body"})
}
