package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hostelhub/hostelchat/internal/domain"
)

const userContextKey = "currentUser"

// Auth validates the bearer token issued by the hostel-management portal and
// places the resulting user identity in the request context. Browsers cannot
// set headers on websocket upgrades, so a token query parameter is accepted
// as a fallback.
func Auth(secret string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString := bearerToken(ctx.GetHeader("Authorization"))
		if tokenString == "" {
			tokenString = ctx.Query("token")
		}
		if tokenString == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		user, err := parseUser(tokenString, secret)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		ctx.Set(userContextKey, user)
		ctx.Next()
	}
}

// CurrentUser extracts the authenticated user placed by Auth.
func CurrentUser(ctx *gin.Context) (*domain.User, error) {
	value, ok := ctx.Get(userContextKey)
	if !ok {
		return nil, errors.New("user not found in context")
	}
	user, ok := value.(*domain.User)
	if !ok {
		return nil, errors.New("user not found in context")
	}
	return user, nil
}

// GenerateToken signs a token for the user. Used by tests and local tooling;
// production tokens come from the portal with the same claims.
func GenerateToken(user *domain.User, secret string) (string, error) {
	claims := jwt.MapClaims{
		"userId": user.ID.String(),
		"name":   user.Name,
		"role":   string(user.Role),
		"hostel": user.Hostel,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func parseUser(tokenString string, secret string) (*domain.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	userIDStr, ok := claims["userId"].(string)
	if !ok {
		return nil, errors.New("userId claim missing")
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, errors.New("userId claim is not a uuid")
	}

	name, _ := claims["name"].(string)
	roleStr, _ := claims["role"].(string)
	hostel, _ := claims["hostel"].(string)

	role := domain.Role(roleStr)
	if role == "" {
		role = domain.RoleStudent
	}

	return &domain.User{
		ID:     userID,
		Name:   name,
		Role:   role,
		Hostel: hostel,
	}, nil
}
