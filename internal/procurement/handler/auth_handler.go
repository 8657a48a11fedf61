package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/uthejd-slx/procura-backend/internal/procurement/service"
)

type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Register POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var input service.RegisterInput
	if !bind(c, &input) {
		return
	}
	result, err := h.svc.Register(c.Request.Context(), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, result)
}

type tokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// Activate POST /auth/activate
func (h *AuthHandler) Activate(c *gin.Context) {
	var req tokenRequest
	if !bind(c, &req) {
		return
	}
	if err := h.svc.Activate(c.Request.Context(), req.Token); err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"detail": "account activated"})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}
	pair, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshToken POST /auth/token/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req refreshRequest
	if !bind(c, &req) {
		return
	}
	pair, err := h.svc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, pair)
}

// Logout POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if !bind(c, &req) {
		return
	}
	if err := h.svc.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}

type resetRequest struct {
	Email string `json:"email" binding:"required"`
}

// RequestPasswordReset POST /auth/password-reset
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req resetRequest
	if !bind(c, &req) {
		return
	}
	token, err := h.svc.RequestPasswordReset(c.Request.Context(), req.Email)
	if err != nil {
		handleError(c, err)
		return
	}
	data := gin.H{"detail": "if the account exists, a reset link has been sent"}
	if token != "" {
		data["reset_token"] = token
	}
	Success(c, data)
}

type resetConfirmRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ConfirmPasswordReset POST /auth/password-reset/confirm
func (h *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
	var req resetConfirmRequest
	if !bind(c, &req) {
		return
	}
	if err := h.svc.ConfirmPasswordReset(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"detail": "password updated"})
}

// Me GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.svc.Me(c.Request.Context(), actorOf(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, user)
}

// ============================================================
// Users and profile
// ============================================================

type UserHandler struct {
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// List GET /users
func (h *UserHandler) List(c *gin.Context) {
	page := GetPagination(c)
	users, total, err := h.svc.List(c.Request.Context(), searchQuery(c), page)
	if err != nil {
		handleError(c, err)
		return
	}
	List(c, users, total, page)
}

// AdminUpdate PATCH /admin/users/:id
func (h *UserHandler) AdminUpdate(c *gin.Context) {
	var input service.AdminUpdateInput
	if !bind(c, &input) {
		return
	}
	user, err := h.svc.AdminUpdate(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, user)
}

// GetProfile GET /profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	profile, err := h.svc.Profile(c.Request.Context(), actorOf(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, profile)
}

// UpdateProfile PATCH /profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var input service.ProfileInput
	if !bind(c, &input) {
		return
	}
	profile, err := h.svc.UpdateProfile(c.Request.Context(), actorOf(c), input)
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, profile)
}
