package server

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	contextUserID   = "user_id"
	contextUsername = "username"
	sessionTTL      = 24 * time.Hour
)

type sessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type sessionRequest struct {
	Username string `json:"username" binding:"required,username"`
}

// handleCreateSession establishes a session for a username and returns a
// bearer token. Identity management proper is out of scope; this stands in
// for the external identity provider.
func (s *Server) handleCreateSession(c *gin.Context) {
	var req sessionRequest
	if !bindJSON(c, &req, bindMessages{
		"Username": {"required": "username is required", "username": "username contains unsupported characters"},
	}, "invalid session request") {
		return
	}
	user := s.store.EnsureUser(normalizeText(req.Username))
	if err := s.persistUser(user); err != nil {
		log.Printf("persist user failed user_id=%s error=%v", user.ID, err)
	}
	token, err := s.issueToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"token":    token,
		"user_id":  user.ID,
		"username": user.Username,
	})
}

func (s *Server) issueToken(user *User) (string, error) {
	now := s.now()
	claims := sessionClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// authRequired validates the bearer token and stashes the caller's identity
// on the request context.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		claims := &sessionClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			return []byte(s.cfg.JWTSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid || claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if _, ok := s.store.GetUser(claims.Subject); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Set(contextUserID, claims.Subject)
		c.Set(contextUsername, claims.Username)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func currentUserID(c *gin.Context) string {
	return c.GetString(contextUserID)
}
