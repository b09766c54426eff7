package services

import (
	"errors"
	"time"

	"devtransfer/internal/application/ports"
	"devtransfer/internal/infrastructure/jwt"
)

var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrFailedToGenerateToken = errors.New("failed to generate token")
)

type AuthService struct {
	jwtService  *jwt.Service
	credentials ports.Credentials
	tokenTTL    time.Duration
}

func NewAuthService(
	jwtService *jwt.Service,
	credentials ports.Credentials,
	tokenTTL time.Duration,
) ports.Auth {
	return &AuthService{
		jwtService:  jwtService,
		credentials: credentials,
		tokenTTL:    tokenTTL,
	}
}

// Login issues an admin token for a configured admin account.
func (as *AuthService) Login(username, password string) (string, error) {
	if !as.credentials.VerifyAdmin(username, password) {
		return "", ErrInvalidCredentials
	}

	token, err := as.jwtService.GenerateJWT(username, jwt.RoleAdmin, as.tokenTTL)
	if err != nil {
		return "", ErrFailedToGenerateToken
	}

	return token, nil
}
