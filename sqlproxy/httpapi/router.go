package httpapi

import (
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tomyedwab/stmtbatch/sqlproxy/host"
)

// maxRequestBytes bounds a single protocol request.
const maxRequestBytes = 8 << 20

// NewRouter exposes h over HTTP. When secret is non-empty every /v1 route
// requires a bearer token signed with it.
func NewRouter(h *host.SQLHost, secret []byte) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/v1")
	if len(secret) > 0 {
		api.Use(RequireToken(secret))
	}

	api.POST("/sql", func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestBytes))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
			return
		}
		resp, err := h.HandleRequest(c.Request.Context(), body)
		if err != nil {
			log.Printf("%s - %s %s ERROR: %v", c.ClientIP(), c.Request.Method, c.Request.URL.Path, err)
			c.Data(http.StatusInternalServerError, "application/json", resp)
			return
		}
		c.Data(http.StatusOK, "application/json", resp)
	})

	return router
}
