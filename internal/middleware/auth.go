package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
)

// ContextUserID is the gin context key the authenticated user id is
// stored under.
const ContextUserID = "user_id"

// ErrMissingToken means no credential was presented at all.
var ErrMissingToken = errors.New("missing authentication token")

// Auth returns a middleware validating the JWT from the Authorization
// header, or, for websocket upgrades where browsers cannot set headers,
// from the "token" query parameter.
func Auth(jwtSecret string) gin.HandlerFunc {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty for Auth middleware")
	}

	return func(c *gin.Context) {
		tokenStr, err := extractToken(c)
		if err != nil {
			if errors.Is(err, ErrMissingToken) {
				logrus.Warn("Auth middleware: missing credentials")
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization is required"})
			} else {
				logrus.WithError(err).Warn("Auth middleware: malformed token")
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			}
			c.Abort()
			return
		}

		claims, err := validateToken(tokenStr, jwtSecret)
		if err != nil {
			logrus.WithError(err).Warn("Auth middleware: invalid token")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		userID, ok := userIDFromClaims(claims)
		if !ok {
			logrus.Errorf("Auth middleware: invalid 'user_id' claim: %v", claims["user_id"])
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// AuthWebSocket validates the same credentials as Auth but never writes an
// HTTP error. Websocket routes must upgrade first and report an
// authentication failure with a close code the browser client can read,
// so this variant only sets the user id when the token checks out and
// leaves the handler to reject the rest.
func AuthWebSocket(jwtSecret string) gin.HandlerFunc {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty for AuthWebSocket middleware")
	}

	return func(c *gin.Context) {
		tokenStr, err := extractToken(c)
		if err != nil {
			logrus.Debug("AuthWebSocket middleware: no credentials presented")
			c.Next()
			return
		}

		claims, err := validateToken(tokenStr, jwtSecret)
		if err != nil {
			logrus.WithError(err).Warn("AuthWebSocket middleware: invalid token")
			c.Next()
			return
		}

		if userID, ok := userIDFromClaims(claims); ok {
			c.Set(ContextUserID, userID)
		}
		c.Next()
	}
}

// UserID reads the authenticated user id set by Auth. The second result
// is false when the middleware did not run.
func UserID(c *gin.Context) (uint, bool) {
	value, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}

// userIDFromClaims reads the user_id claim. JWT numbers decode as
// float64, so the value is checked to be a positive integer.
func userIDFromClaims(claims jwt.MapClaims) (uint, bool) {
	userIDFloat, ok := claims["user_id"].(float64)
	if !ok || userIDFloat <= 0 || userIDFloat != float64(uint(userIDFloat)) {
		return 0, false
	}
	return uint(userIDFloat), true
}

func extractToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", jwt.ErrTokenMalformed
		}
		return parts[1], nil
	}

	// Websocket clients pass the token in the query string.
	if token := c.Query("token"); token != "" {
		return token, nil
	}
	return "", ErrMissingToken
}

func validateToken(tokenStr, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token or claims type")
}
