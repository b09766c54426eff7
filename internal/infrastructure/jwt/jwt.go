// Package jwt issues and checks the short-lived admin tokens handed out by
// the login endpoint.
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin = "admin"

	issuer = "devtransfer"
	leeway = 5 * time.Second
)

var ErrInvalidToken = errors.New("invalid token")

type Service struct {
	jwtSecret []byte
	parser    *jwt.Parser
}

func New(jwtSecret string) *Service {
	return &Service{
		jwtSecret: []byte(jwtSecret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(leeway),
		),
	}
}

// Claims carries the role next to the registered claims. Subject is the
// admin user name.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (s *Service) GenerateJWT(subject, role string, expiresIn time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("jwt subject is required")
	}

	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// ValidateToken returns ErrInvalidToken for anything it does not accept;
// the cause is not exposed to callers.
func (s *Service) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := s.parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
