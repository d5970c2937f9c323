package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/portfolio/portfolio/backend/go-services/internal/models"
	"github.com/portfolio/portfolio/backend/go-services/internal/resource"
	"github.com/portfolio/portfolio/backend/go-services/internal/sessions"
	"github.com/portfolio/portfolio/backend/go-services/internal/tokens"
	"github.com/portfolio/portfolio/backend/go-services/internal/users"
	"github.com/portfolio/portfolio/backend/go-services/internal/validation"
	"github.com/portfolio/portfolio/backend/go-services/pkg/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const refreshCookie = "refreshToken"

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User         *models.User `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	users         *users.Service
	sessions      *sessions.Service
	tokens        *tokens.Issuer
	blacklist     *sessions.Blacklist
	secureCookies bool
	log           *zap.Logger
}

func NewAuthHandler(u *users.Service, s *sessions.Service, iss *tokens.Issuer, bl *sessions.Blacklist, secureCookies bool, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{users: u, sessions: s, tokens: iss, blacklist: bl, secureCookies: secureCookies, log: log.Named("auth")}
}

// Register routes under /auth. auth guards the routes that need a caller.
func (h *AuthHandler) Register(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	a := rg.Group("/auth")
	a.POST("/register", h.SignUp)
	a.POST("/login", h.Login)
	a.POST("/refresh-token", h.Refresh)
	a.POST("/logout", auth, h.Logout)
	a.GET("/profile", auth, h.Profile)
	a.PATCH("/profile", auth, h.UpdateProfile)
}

// decodeBody decodes a JSON body into v, rejecting unknown fields. An empty
// body is an error unless optional is set.
func decodeBody(c *gin.Context, v interface{}, optional bool) bool {
	err := resource.DecodeStrict(c.Request.Body, v)
	if optional && errors.Is(err, resource.ErrEmptyBody) {
		return true
	}
	if err != nil {
		resource.Fail(c, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func failValidation(c *gin.Context, err error) bool {
	if msgs, ok := validation.Messages(err); ok {
		resource.Fail(c, http.StatusBadRequest, resource.MsgValidationFailed, msgs...)
		return true
	}
	return false
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookie, token, maxAge, "/", "", h.secureCookies, true)
}

// issue creates the token pair and its refresh session.
func (h *AuthHandler) issue(c *gin.Context, u *models.User) (*AuthResponse, error) {
	access, err := h.tokens.GenerateAccessToken(u)
	if err != nil {
		return nil, err
	}
	refresh, err := h.tokens.GenerateRefreshToken(u)
	if err != nil {
		return nil, err
	}
	if err := h.sessions.CreateSession(c.Request.Context(), u.ID.Hex(), refresh, h.tokens.RefreshTTL()); err != nil {
		return nil, err
	}
	h.setRefreshCookie(c, refresh, int(h.tokens.RefreshTTL().Seconds()))
	return &AuthResponse{User: u, Token: access, RefreshToken: refresh}, nil
}

// SignUp handles POST /auth/register.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var in users.RegisterInput
	if !decodeBody(c, &in, false) {
		return
	}
	u, err := h.users.Register(c.Request.Context(), in)
	if err != nil {
		if failValidation(c, err) {
			return
		}
		if errors.Is(err, users.ErrEmailTaken) {
			resource.Fail(c, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error("register failed", zap.Error(err))
		resource.Fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	resp, err := h.issue(c, u)
	if err != nil {
		h.log.Error("issue tokens failed", zap.Error(err))
		resource.Fail(c, http.StatusInternalServerError, "failed to create session")
		return
	}
	h.log.Info("user registered", zap.String("user_id", u.ID.Hex()))
	resource.Success(c, http.StatusCreated, "User registered successfully", resp)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var in users.LoginInput
	if !decodeBody(c, &in, false) {
		return
	}
	u, err := h.users.Authenticate(c.Request.Context(), in)
	if err != nil {
		if failValidation(c, err) {
			return
		}
		if errors.Is(err, users.ErrInvalidCredentials) {
			resource.Fail(c, http.StatusUnauthorized, err.Error())
			return
		}
		h.log.Error("login failed", zap.Error(err))
		resource.Fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	resp, err := h.issue(c, u)
	if err != nil {
		h.log.Error("issue tokens failed", zap.Error(err))
		resource.Fail(c, http.StatusInternalServerError, "failed to create session")
		return
	}
	h.log.Info("user logged in", zap.String("user_id", u.ID.Hex()))
	resource.Success(c, http.StatusOK, "User logged in successfully", resp)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// refreshToken reads the refresh token from the body, then the cookie.
func (h *AuthHandler) refreshToken(c *gin.Context) (string, bool) {
	var req refreshRequest
	if !decodeBody(c, &req, true) {
		return "", false
	}
	if tok := strings.TrimSpace(req.RefreshToken); tok != "" {
		return tok, true
	}
	tok, _ := c.Cookie(refreshCookie)
	return tok, true
}

// Refresh handles POST /auth/refresh-token and returns a new access token.
func (h *AuthHandler) Refresh(c *gin.Context) {
	raw, ok := h.refreshToken(c)
	if !ok {
		return
	}
	if raw == "" {
		resource.Fail(c, http.StatusUnauthorized, "Refresh token missing")
		return
	}
	const invalid = "Invalid or expired refresh token"
	claims, err := h.tokens.ParseRefreshToken(raw)
	if err != nil {
		resource.Fail(c, http.StatusUnauthorized, invalid)
		return
	}
	ctx := c.Request.Context()
	sess, err := h.sessions.ValidateRefresh(ctx, raw)
	if err != nil {
		h.log.Error("session lookup failed", zap.Error(err))
		resource.Fail(c, http.StatusInternalServerError, "session lookup failed")
		return
	}
	if sess == nil || sess.UserID != claims.UserID {
		resource.Fail(c, http.StatusUnauthorized, invalid)
		return
	}
	u, err := h.lookup(c, sess.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			_ = h.sessions.DeleteRefresh(ctx, raw)
			resource.Fail(c, http.StatusUnauthorized, invalid)
			return
		}
		h.log.Error("user lookup failed", zap.Error(err))
		resource.Fail(c, http.StatusInternalServerError, "user lookup failed")
		return
	}
	access, err := h.tokens.GenerateAccessToken(u)
	if err != nil {
		resource.Fail(c, http.StatusInternalServerError, "failed to create access token")
		return
	}
	resource.Success(c, http.StatusOK, "Token refreshed", gin.H{"accessToken": access})
}

func (h *AuthHandler) lookup(c *gin.Context, hexID string) (*models.User, error) {
	id, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		return nil, users.ErrNotFound
	}
	return h.users.GetByID(c.Request.Context(), id)
}

// Logout handles POST /auth/logout: the refresh session is removed and the
// presented access token is blacklisted until it expires.
func (h *AuthHandler) Logout(c *gin.Context) {
	raw, ok := h.refreshToken(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if raw != "" {
		if err := h.sessions.DeleteRefresh(ctx, raw); err != nil {
			h.log.Error("remove session failed", zap.Error(err))
			resource.Fail(c, http.StatusInternalServerError, "failed to remove session")
			return
		}
	}
	if tok := c.GetString(middleware.TokenKey); tok != "" {
		if ttl := remaining(c); ttl > 0 {
			if err := h.blacklist.Add(ctx, tok, ttl); err != nil {
				h.log.Error("blacklist access token failed", zap.Error(err))
				resource.Fail(c, http.StatusInternalServerError, "failed to blacklist access token")
				return
			}
		}
	}
	h.setRefreshCookie(c, "", -1)
	resource.Success(c, http.StatusOK, "User logged out successfully", nil)
}

// remaining is the lifetime left on the request's access token.
func remaining(c *gin.Context) time.Duration {
	v, _ := c.Get(middleware.ClaimsKey)
	claims, _ := v.(map[string]interface{})
	exp, ok := claims["exp"].(float64)
	if !ok {
		return 0
	}
	return time.Until(time.Unix(int64(exp), 0))
}

// Profile handles GET /auth/profile.
func (h *AuthHandler) Profile(c *gin.Context) {
	actor := resource.ActorFrom(c)
	if actor == nil {
		resource.Fail(c, http.StatusUnauthorized, "Access denied. No user found")
		return
	}
	u, err := h.users.GetByID(c.Request.Context(), actor.ID)
	if errors.Is(err, users.ErrNotFound) {
		resource.Fail(c, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.log.Error("profile lookup failed", zap.Error(err))
		resource.Fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	resource.Success(c, http.StatusOK, "Profile retrieved successfully", u)
}

// UpdateProfile handles PATCH /auth/profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	actor := resource.ActorFrom(c)
	if actor == nil {
		resource.Fail(c, http.StatusUnauthorized, "Access denied. No user found")
		return
	}
	var in users.ProfileInput
	if !decodeBody(c, &in, false) {
		return
	}
	u, err := h.users.UpdateProfile(c.Request.Context(), actor.ID, in)
	switch {
	case err == nil:
		resource.Success(c, http.StatusOK, "Profile updated successfully", u)
	case failValidation(c, err):
	case errors.Is(err, users.ErrEmailTaken):
		resource.Fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, users.ErrNotFound):
		resource.Fail(c, http.StatusNotFound, err.Error())
	default:
		h.log.Error("profile update failed", zap.Error(err))
		resource.Fail(c, http.StatusInternalServerError, err.Error())
	}
}
