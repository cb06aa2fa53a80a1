package jwt

import (
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Claims carries the admin session. There is a single operator, so the
// subject is fixed and only the role travels in the token.
type Claims struct {
	Role string `json:"role"`
	jwtv5.RegisteredClaims
}

type JWTService struct {
	secretKey   []byte
	expiryHours int
}

func NewJWTService(secretKey string, expiryHours int) *JWTService {
	return &JWTService{
		secretKey:   []byte(secretKey),
		expiryHours: expiryHours,
	}
}

// GenerateToken creates a new admin session token
func (s *JWTService) GenerateToken() (string, time.Time, error) {
	expiresAt := time.Now().Add(time.Hour * time.Duration(s.expiryHours))

	claims := &Claims{
		Role: "admin",
		RegisteredClaims: jwtv5.RegisteredClaims{
			Subject:   "admin",
			ExpiresAt: jwtv5.NewNumericDate(expiresAt),
			IssuedAt:  jwtv5.NewNumericDate(time.Now()),
			NotBefore: jwtv5.NewNumericDate(time.Now()),
		},
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken validates and parses a session token
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(token *jwtv5.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}
