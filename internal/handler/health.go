package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Root answers the unauthenticated root probe.
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"service": "inkgen", "status": "ok"})
}

// Health answers the health probe.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
