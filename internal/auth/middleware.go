package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const sessionKey contextKey = "authSession"

// Session is the authenticated caller for the lifetime of one request.
type Session struct {
	UserID string
	Email  string
	Name   string
}

// Claims are the token claims understood by the service.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// WithSession returns ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFrom retrieves the authenticated session from context.
func SessionFrom(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	s, ok := ctx.Value(sessionKey).(Session)
	if !ok || s.UserID == "" {
		return Session{}, false
	}
	return s, true
}

// GetUserID retrieves the authenticated subject from context.
func GetUserID(ctx context.Context) (string, bool) {
	s, ok := SessionFrom(ctx)
	return s.UserID, ok
}

// Verifier validates HS256 bearer tokens.
type Verifier struct {
	secret   []byte
	audience string
}

// NewVerifier builds a verifier. An empty audience is not checked.
func NewVerifier(secret, audience string) (*Verifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("missing JWT secret")
	}
	return &Verifier{secret: []byte(secret), audience: strings.TrimSpace(audience)}, nil
}

// Verify parses tokenString and returns the session it describes.
func (v *Verifier) Verify(tokenString string) (Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Session{}, errors.New("invalid token")
	}
	if v.audience != "" && !containsAudience(claims.Audience, v.audience) {
		return Session{}, errors.New("invalid audience")
	}
	if claims.Subject == "" {
		return Session{}, errors.New("missing subject")
	}
	return Session{UserID: claims.Subject, Email: claims.Email, Name: claims.Name}, nil
}

// Middleware validates bearer tokens and injects the session.
func (v *Verifier) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := extractBearerToken(c.Request.Header.Get("Authorization"))
		if err != nil {
			unauthorized(c, err.Error())
			return
		}

		session, err := v.Verify(tokenString)
		if err != nil {
			unauthorized(c, err.Error())
			return
		}

		c.Request = c.Request.WithContext(WithSession(c.Request.Context(), session))
		c.Set(string(sessionKey), session)

		c.Next()
	}
}

// JWTMiddleware builds a Verifier and returns its middleware. A missing
// secret rejects every request.
func JWTMiddleware(secret, audience string) gin.HandlerFunc {
	v, err := NewVerifier(secret, audience)
	if err != nil {
		return func(c *gin.Context) {
			unauthorized(c, err.Error())
		}
	}
	return v.Middleware()
}

func extractBearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header required")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("token missing")
	}
	return token, nil
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message, "kind": "auth_error"})
}

func containsAudience(claims jwt.ClaimStrings, expected string) bool {
	for _, aud := range claims {
		if aud == expected {
			return true
		}
	}
	return false
}
