package middlewares

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// jwks verifies RS256 tokens from the external identity provider; nil when
// JWKS_URL is not configured.
var jwks keyfunc.Keyfunc

// InitJWKS starts the background JWKS refresher. The returned func stops it.
func InitJWKS(url string) (func(), error) {
	if url == "" {
		return func() {}, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	k, err := keyfunc.NewDefaultCtx(ctx, []string{url})
	if err != nil {
		cancel()
		return nil, err
	}
	jwks = k
	slog.Info("external token verification enabled", "jwks_url", url)
	return cancel, nil
}

// IssueToken signs an HS256 session token for the profile.
func IssueToken(userID uuid.UUID, email, role string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID.String(),
		"email": email,
		"role":  role,
		"iat":   now.Unix(),
		"exp":   now.Add(config.C.JWTTTL).Unix(),
	})
	return token.SignedString([]byte(config.C.JWTSecret))
}

// ParseToken verifies a session token or, when JWKS is configured, an
// externally issued RS256 token. external reports which one it was.
func ParseToken(raw string) (claims jwt.MapClaims, external bool, err error) {
	claims = jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodHMAC:
			return []byte(config.C.JWTSecret), nil
		case *jwt.SigningMethodRSA:
			if jwks == nil {
				return nil, errors.New("external tokens are not accepted")
			}
			external = true
			return jwks.Keyfunc(t)
		}
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}, jwt.WithValidMethods([]string{"HS256", "RS256"}), jwt.WithLeeway(30*time.Second))
	if err != nil {
		return nil, false, err
	}
	if !token.Valid {
		return nil, false, errors.New("invalid token")
	}

	if external {
		if config.C.JWTIssuer != "" {
			if iss, _ := claims.GetIssuer(); iss != config.C.JWTIssuer {
				return nil, false, errors.New("wrong issuer")
			}
		}
		if config.C.JWTAudience != "" {
			aud, _ := claims.GetAudience()
			if !containsString(aud, config.C.JWTAudience) {
				return nil, false, errors.New("wrong audience")
			}
		}
	}
	return claims, external, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// AuthMiddleware validates the JWT token from header OR query parameter.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string

		// 1. Try Authorization header
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		}

		// 2. Fallback to query parameter (websocket clients cannot set headers)
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
			return
		}

		claims, external, err := ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		sub, _ := claims.GetSubject()
		userID, err := uuid.Parse(sub)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token payload"})
			return
		}

		c.Set("user_id", userID)
		c.Set("claims", claims)
		c.Set("external_token", external)
		c.Next()
	}
}

// UserID returns the authenticated user's id set by AuthMiddleware.
func UserID(c *gin.Context) uuid.UUID {
	v, _ := c.Get("user_id")
	id, _ := v.(uuid.UUID)
	return id
}
