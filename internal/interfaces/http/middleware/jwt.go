package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/auth"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Gin context keys set by JWTAuth
const (
	JWTClaimsKey   = "jwt_claims"
	JWTStoreIDKey  = "jwt_store_id"
	JWTUsernameKey = "jwt_username"

	authHeader   = "Authorization"
	bearerPrefix = "Bearer "
)

// TokenValidator validates bearer tokens
type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

// JWTAuth rejects requests without a valid bearer token and publishes the
// actor (store id, username) to the gin context, the request context logger
// and the active span.
func JWTAuth(validator TokenValidator, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		header := c.GetHeader(authHeader)
		token, ok := strings.CutPrefix(header, bearerPrefix)
		if !ok || strings.TrimSpace(token) == "" {
			abortUnauthorized(c, log, auth.ErrInvalidToken, "Missing or malformed authorization header")
			return
		}

		claims, err := validator.ValidateAccessToken(token)
		if err != nil {
			abortUnauthorized(c, log, err, "Invalid token")
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTStoreIDKey, claims.StoreID)
		c.Set(JWTUsernameKey, claims.Username)

		ctx := logger.WithStoreID(c.Request.Context(), claims.StoreID)
		ctx = logger.WithUsername(ctx, claims.Username)
		c.Request = c.Request.WithContext(ctx)

		span := trace.SpanFromContext(ctx)
		telemetry.SetAttribute(span, telemetry.SpanAttrStoreID, claims.StoreID)
		telemetry.SetAttribute(span, telemetry.SpanAttrUsername, claims.Username)

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, log *zap.Logger, err error, message string) {
	log.Warn("JWT authentication failed",
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
	)
	code := dto.ErrCodeUnauthorized
	if errors.Is(err, auth.ErrExpiredToken) {
		code = dto.ErrCodeTokenExpired
		message = "Token has expired"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(code, message, c.GetString(RequestIDKey)))
}

// GetActor returns the actor published by JWTAuth. The zero Actor fails
// validation, so handlers reached without authentication are rejected.
func GetActor(c *gin.Context) shared.Actor {
	return shared.Actor{
		StoreID:  c.GetString(JWTStoreIDKey),
		Username: c.GetString(JWTUsernameKey),
	}
}

// GetJWTClaims returns the claims published by JWTAuth, or nil
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(JWTClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
