package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v4"
)

// Caller is the verified identity behind a request
type Caller struct {
	UID   string
	Email string
	Name  string
}

// DisplayName is the name shown on boxes and reports
func (c *Caller) DisplayName() string {
	if c == nil {
		return ""
	}
	if c.Name != "" {
		return c.Name
	}
	if i := strings.Index(c.Email, "@"); i > 0 {
		return c.Email[:i]
	}
	if c.Email != "" {
		return c.Email
	}
	return "Volunteer"
}

// IdentityVerifier turns a bearer token into a Caller
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*Caller, error)
}

// FirebaseVerifier checks Firebase Auth ID tokens
type FirebaseVerifier struct {
	Client *fbauth.Client
}

// Verify validates the ID token signature, audience and expiry
func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*Caller, error) {
	tok, err := v.Client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, err
	}
	caller := &Caller{UID: tok.UID}
	if email, ok := tok.Claims["email"].(string); ok {
		caller.Email = email
	}
	if name, ok := tok.Claims["name"].(string); ok {
		caller.Name = name
	}
	return caller, nil
}

// Claims are the dev token claims
type Claims struct {
	UID   string `json:"uid"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

var jwtAlgorithm = jwt.SigningMethodHS256

// JWTVerifier checks HS256 tokens minted with a shared secret. It stands in
// for Firebase Auth in local development and tests.
type JWTVerifier struct {
	Secret []byte
}

// NewJWTVerifier returns a verifier for the given secret
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{Secret: []byte(secret)}
}

// CreateToken mints a dev token for a caller
func (v *JWTVerifier) CreateToken(c Caller, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	claims := &Claims{
		UID:   c.UID,
		Email: c.Email,
		Name:  c.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.UID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwtAlgorithm, claims)
	return token.SignedString(v.Secret)
}

// Verify validates a dev token
func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (*Caller, error) {
	if len(v.Secret) == 0 {
		return nil, errors.New("jwt secret not configured")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwtAlgorithm {
			return nil, errors.New("unexpected signing method")
		}
		return v.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UID == "" {
		return nil, errors.New("token has no uid")
	}
	return &Caller{UID: claims.UID, Email: claims.Email, Name: claims.Name}, nil
}
