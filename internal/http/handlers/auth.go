package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/techwave-backend/internal/http/middleware"
	"github.com/yungbote/techwave-backend/internal/http/response"
	"github.com/yungbote/techwave-backend/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// GET /api/me
func (ah *AuthHandler) Me(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	response.RespondOK(c, gin.H{
		"user_id": actor.UserID,
		"role":    actor.Role,
	})
}

// POST /api/auth/refresh
// Re-issues an access token for the current caller with a fresh expiry.
func (ah *AuthHandler) Refresh(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	token, err := ah.authService.IssueToken(actor.UserID, actor.Role)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(ah.authService.GetAccessTTL().Seconds()),
	})
}
