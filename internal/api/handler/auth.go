package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	jwt "github.com/golang-jwt/jwt/v5"

	"traderadar/backend/internal/models"
)

const (
	userIDKey = "user_id"
	issuer    = "traderadar-service"
)

type createUserRequest struct {
	DisplayName string   `json:"display_name" binding:"required"`
	AvatarURL   string   `json:"avatar_url"`
	TCGTypes    []string `json:"tcg_types"`
}

// generateJWT генерує JWT з ID користувача
func (h *Handler) generateJWT(userID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(h.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.secret)
}

// validateAndGetUserID перевіряє підпис і термін дії токена та повертає ID користувача.
func (h *Handler) validateAndGetUserID(tokenString string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return h.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if claims.Subject == "" {
		return "", errors.New("token without subject")
	}
	return claims.Subject, nil
}

// CreateUser створює користувача та повертає JWT
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.DisplayName) == "" {
		h.abort(c, http.StatusBadRequest, "bad_request", "request.invalid")
		return
	}

	user := &models.User{
		DisplayName: strings.TrimSpace(req.DisplayName),
		AvatarURL:   req.AvatarURL,
		TCGTypes:    req.TCGTypes,
	}
	if err := h.Storage.SaveUser(c.Request.Context(), user); err != nil {
		h.fail(c, "create user", err)
		return
	}

	token, err := h.generateJWT(user.ID)
	if err != nil {
		h.fail(c, "sign token", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "user_id": user.ID})
}

// AuthRequired пропускає лише запити з дійсним Bearer-токеном.
func (h *Handler) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 7 || authHeader[:7] != "Bearer " {
			h.abort(c, http.StatusUnauthorized, "unauthorized", "auth.required")
			return
		}

		userID, err := h.validateAndGetUserID(authHeader[7:])
		if err != nil {
			h.abort(c, http.StatusUnauthorized, "unauthorized", "auth.invalid")
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(userIDKey)
}
