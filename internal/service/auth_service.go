package service

import (
	"errors"
	"time"

	"github.com/misaops/misacard-server/internal/pkg/crypto"
	"github.com/misaops/misacard-server/internal/pkg/jwt"
	"github.com/misaops/misacard-server/internal/pkg/metrics"
)

// ErrInvalidPassword is returned when the admin password does not match.
var ErrInvalidPassword = errors.New("invalid password")

// AuthService authenticates the single admin operator against a bcrypt hash
// and issues session tokens.
type AuthService interface {
	Login(password string) (string, time.Time, error)
}

type authService struct {
	passwordHash string
	jwtService   *jwt.JWTService
}

func NewAuthService(passwordHash string, jwtService *jwt.JWTService) AuthService {
	return &authService{
		passwordHash: passwordHash,
		jwtService:   jwtService,
	}
}

func (s *authService) Login(password string) (string, time.Time, error) {
	if !crypto.CheckPassword(password, s.passwordHash) {
		metrics.RecordAuthAttempt(false)
		return "", time.Time{}, ErrInvalidPassword
	}

	token, expiresAt, err := s.jwtService.GenerateToken()
	if err != nil {
		metrics.RecordAuthAttempt(false)
		return "", time.Time{}, err
	}

	metrics.RecordAuthAttempt(true)
	return token, expiresAt, nil
}
