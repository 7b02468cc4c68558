package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inkgen/internal/dto"
	"inkgen/internal/identity"
	"inkgen/utils"
)

// Login authenticates a user against the identity service.
func Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	session, err := Identity.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		utils.Fail(c, http.StatusUnauthorized, err.Error())
		return
	}
	c.JSON(http.StatusOK, sessionResponse(session))
}

// Signup registers a new user with the identity service.
func Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	session, err := Identity.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		utils.Fail(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, sessionResponse(session))
}

func sessionResponse(session *identity.Session) dto.SessionResponse {
	return dto.SessionResponse{
		User: dto.SessionUser{
			ID:    session.User.ID,
			Email: session.User.Email,
		},
		Session: dto.SessionDetails{
			AccessToken:  session.AccessToken,
			RefreshToken: session.RefreshToken,
			ExpiresIn:    session.ExpiresIn,
		},
	}
}
