package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"inkgen/internal/dto"
	"inkgen/internal/repo"
	"inkgen/internal/service"
	"inkgen/utils"
)

// CreateDownload accepts a fetch job. The job is accepted, not completed:
// the response carries the pending record and the fetch continues in the
// background queue.
func CreateDownload(c *gin.Context) {
	var req dto.CreateDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet("user_id").(string)
	job, err := Downloads.Create(c.Request.Context(), userID, req.URL)
	if err != nil {
		if errors.Is(err, service.ErrInvalidURL) {
			utils.Fail(c, http.StatusBadRequest, err.Error())
			return
		}
		utils.Fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	utils.Success(c, job)
}

// GetDownload returns one job, reconciled with in-flight progress.
func GetDownload(c *gin.Context) {
	userID := c.MustGet("user_id").(string)
	job, err := Downloads.Get(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			utils.Fail(c, http.StatusNotFound, "download not found")
			return
		}
		utils.Fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	utils.Success(c, job)
}

// ListDownloads returns the user's jobs, newest first.
func ListDownloads(c *gin.Context) {
	userID := c.MustGet("user_id").(string)
	jobs, err := Downloads.List(c.Request.Context(), userID)
	if err != nil {
		utils.Fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	utils.Success(c, jobs)
}

// DeleteDownload removes a job and its stored objects.
func DeleteDownload(c *gin.Context) {
	userID := c.MustGet("user_id").(string)
	if err := Downloads.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			utils.Fail(c, http.StatusNotFound, "download not found")
			return
		}
		utils.Fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	utils.Success(c, gin.H{"deleted": true})
}

// CancelDownload flips a job to failed. An in-flight fetch is not interrupted.
func CancelDownload(c *gin.Context) {
	userID := c.MustGet("user_id").(string)
	if err := Downloads.Cancel(c.Request.Context(), c.Param("id"), userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			utils.Fail(c, http.StatusNotFound, "download not found")
			return
		}
		utils.Fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	utils.Success(c, gin.H{"canceled": true})
}
