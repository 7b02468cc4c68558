package utils

import "github.com/gin-gonic/gin"

// Success writes the standard success envelope.
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, gin.H{
		"code": 0,
		"msg":  "ok",
		"data": data,
	})
}

// Fail writes the standard error body with the given status.
func Fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}
