package auth

import (
	"fmt"
	"strings"

	"arxiv_rag_go_backend/internal/errors"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const SubjectKey = "subject"

// AuthMiddleware requires a valid HS256 bearer token signed with secret.
// An empty secret disables the check. WebSocket upgrades may pass the token
// in the "token" query parameter instead of the header.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		log := zerolog.Ctx(c.Request.Context())

		var token string
		if websocket.IsWebSocketUpgrade(c.Request) && c.Query("token") != "" {
			token = c.Query("token")
		} else {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				errors.HandleError(c, errors.New401Error("Authorization header is required"))
				return
			}
			bearerToken := strings.Split(authHeader, " ")
			if len(bearerToken) != 2 || !strings.EqualFold(bearerToken[0], "Bearer") {
				errors.HandleError(c, errors.New401Error("Invalid authorization header"))
				return
			}
			token = bearerToken[1]
		}

		claims, err := verifyToken(token, secret)
		if err != nil {
			log.Debug().Err(err).Msg("token rejected")
			errors.HandleError(c, errors.New401Error(err.Error()))
			return
		}

		sub, _ := claims["sub"].(string)
		c.Set(SubjectKey, sub)
		c.Next()
	}
}

func verifyToken(tokenString, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

// IssueToken signs an HS256 token for sub. expiresAt is a unix time; zero
// means no expiry.
func IssueToken(secret, sub string, expiresAt int64) (string, error) {
	claims := jwt.MapClaims{"sub": sub}
	if expiresAt > 0 {
		claims["exp"] = expiresAt
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Subject returns the token subject stored by AuthMiddleware.
func Subject(c *gin.Context) string {
	return c.GetString(SubjectKey)
}
