package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 12 * time.Hour

type LoginInput struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type AuthService interface {
	Login(ctx context.Context, input LoginInput) (string, error)
}

type authService struct {
	organizerLogin string
	passwordHash   string
	jwtSecret      []byte
}

func NewAuthService(organizerLogin, passwordHash, jwtSecret string) AuthService {
	return &authService{
		organizerLogin: organizerLogin,
		passwordHash:   passwordHash,
		jwtSecret:      []byte(jwtSecret),
	}
}

// Login checks organizer credentials and issues a signed token. The organizer
// account is configured at deploy time, not stored in the database.
func (s *authService) Login(_ context.Context, input LoginInput) (string, error) {
	if input.Login != s.organizerLogin {
		return "", ErrAuthInvalidCredentials
	}
	err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(input.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", ErrAuthInvalidCredentials
		}
		return "", fmt.Errorf("failed to compare password hash: %w", err)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  input.Login,
		"role": "organizer",
		"iat":  now.Unix(),
		"exp":  now.Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
