package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"internship-portal/internal/shared/server/middleware"
	"internship-portal/internal/shared/server/respond"
)

type meResponse struct {
	UserID     string `json:"userId"`
	Guest      bool   `json:"guest"`
	AuthMethod string `json:"authMethod"`
	Email      string `json:"email,omitempty"`
}

// meHandler reports the principal the auth middleware resolved. Resume and
// analysis ownership checks compare against this same id.
func meHandler(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing identity", nil)
		return
	}

	resp := meResponse{
		UserID:     userID,
		Guest:      middleware.IsGuest(c),
		AuthMethod: "bearer",
		Email:      middleware.UserEmailFromContext(c),
	}
	if resp.Guest {
		resp.AuthMethod = "guest"
	}
	respond.OK(c, resp)
}
