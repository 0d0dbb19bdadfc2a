package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cyberwise/portal/internal/models"
	"cyberwise/portal/internal/service"
	"cyberwise/portal/internal/validation"
)

type loginRequest struct {
	AdmissionNumber string `json:"admissionNumber"`
	Password        string `json:"password"`
}

type authResponse struct {
	User               models.PublicUser `json:"user"`
	MustChangePassword bool              `json:"mustChangePassword"`
	ExpiresAt          *time.Time        `json:"expiresAt,omitempty"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := decodeJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		AdmissionNumber: req.AdmissionNumber,
		Password:        req.Password,
		IPAddress:       c.ClientIP(),
		UserAgent:       c.GetHeader("User-Agent"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.setSessionCookie(c, result.Token)
	c.JSON(http.StatusOK, authResponse{
		User:               result.User,
		MustChangePassword: result.MustChangePassword,
		ExpiresAt:          &result.ExpiresAt,
	})
}

func (h HandlerSet) Logout(c *gin.Context) {
	token, _ := c.Cookie(h.cfg.Session.CookieName)
	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		h.fail(c, err)
		return
	}

	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h HandlerSet) Me(c *gin.Context) {
	user := principal(c).User
	c.JSON(http.StatusOK, authResponse{
		User:               user.Public(),
		MustChangePassword: user.MustChangePassword,
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

func (h HandlerSet) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validation.BindError(err))
		return
	}

	p := principal(c)
	err := h.accounts.ChangePassword(c.Request.Context(), service.ChangePasswordInput{
		UserID:          p.User.ID,
		SessionID:       p.Session.ID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

func (h HandlerSet) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.Session.CookieName, token, int(h.cfg.Session.TTL.Seconds()), "/", "", h.secureCookies(), true)
}

func (h HandlerSet) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.Session.CookieName, "", -1, "/", "", h.secureCookies(), true)
}

func (h HandlerSet) secureCookies() bool {
	return h.cfg.Session.Secure || h.cfg.IsProduction()
}
