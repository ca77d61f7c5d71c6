// Package auth verifies identity tokens issued by the identity provider and
// exposes the caller's identity to handlers.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const identityKey = "identity"

// Identity is the authenticated caller. Token is the raw bearer token,
// forwarded to collaborators that need it.
type Identity struct {
	UserID string
	Token  string
}

// Verifier checks bearer tokens against either a shared HS256 secret or an
// RS256 public key.
type Verifier struct {
	method jwt.SigningMethod
	key    any
	issuer string
}

func NewVerifier(secret, issuer string) *Verifier {
	v := &Verifier{method: jwt.SigningMethodHS256, issuer: issuer}
	if secret != "" {
		v.key = []byte(secret)
	}
	return v
}

// NewRSAVerifier accepts RS256 tokens signed by the holder of the private key
// matching pemKey, a PEM encoded RSA public key or certificate.
func NewRSAVerifier(pemKey []byte, issuer string) (*Verifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(pemKey)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return &Verifier{method: jwt.SigningMethodRS256, key: key, issuer: issuer}, nil
}

// Verify parses a token signed with the verifier's method and returns the
// identity it carries.
func (v *Verifier) Verify(token string) (Identity, error) {
	if v.key == nil {
		return Identity{}, errors.New("token verification is not configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{v.method.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid token: %w", err)
	}
	if claims.Subject == "" {
		return Identity{}, errors.New("invalid token: missing subject")
	}
	return Identity{UserID: claims.Subject, Token: token}, nil
}

// Middleware records the caller's identity when a valid bearer token is
// present. It never rejects a request; use Require for that.
func (v *Verifier) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if ok && token != "" {
			if id, err := v.Verify(token); err == nil {
				c.Set(identityKey, id)
			}
		}
		c.Next()
	}
}

// Require aborts with 401 when the request carries no valid identity.
func Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// CurrentToken returns the caller's token, or "" when unauthenticated.
func CurrentToken(c *gin.Context) string {
	id, _ := CurrentUser(c)
	return id.Token
}
