package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inkgen/internal/dto"
	"inkgen/internal/service"
)

// Generate runs one blocking image generation and returns the signed URLs.
func Generate(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	userID := c.MustGet("user_id").(string)
	gen, err := Generations.Generate(c.Request.Context(), userID, service.GenerateRequest{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Width:          req.Width,
		Height:         req.Height,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "generation_failed",
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, dto.GenerateResponse{
		Success:   true,
		ID:        gen.ID,
		URLs:      gen.OutputURLs,
		Prompt:    gen.Prompt,
		Status:    string(gen.Status),
		CreatedAt: gen.CreatedAt,
	})
}

// ListGenerations returns the user's generations with re-signed URLs.
func ListGenerations(c *gin.Context) {
	userID := c.MustGet("user_id").(string)
	views, err := Generations.List(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "fetch_failed",
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, views)
}
