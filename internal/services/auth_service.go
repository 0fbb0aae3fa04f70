package services

import (
	"fmt"
	"log"
	"time"

	"digizone/internal/apperrors"
	"digizone/internal/models"

	"github.com/dgrijalva/jwt-go"
)

// AuthService validates the tokens issued by the account service and can
// mint tokens for operators.
type AuthService struct {
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which JWT is valid
}

// NewAuthService creates a new AuthService.
func NewAuthService(jwtSecret string) *AuthService {
	return &AuthService{
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: 24 * time.Hour,
	}
}

// IssueToken signs a token carrying the identity.
func (s *AuthService) IssueToken(identity models.Identity) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": identity.UserID,
		"email":   identity.Email,
		"role":    string(identity.Role),
		"exp":     time.Now().Add(s.tokenDurat).Unix(),
		"iat":     time.Now().Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token and returns the caller it
// was issued to.
func (s *AuthService) ValidateToken(tokenString string) (*models.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		log.Printf("Token validation error: %v", err)
		return nil, apperrors.Unauthorized("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, apperrors.Unauthorized("invalid token")
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, apperrors.Unauthorized("token carries no user")
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	if role == "" {
		role = string(models.RoleCustomer)
	}

	return &models.Identity{
		UserID: userID,
		Email:  email,
		Role:   models.Role(role),
	}, nil
}

// Authorize checks that the caller is authenticated and, when roles are
// given, holds one of them.
func Authorize(identity *models.Identity, roles ...models.Role) error {
	if identity == nil || identity.UserID == "" {
		return apperrors.Unauthorized("authentication required")
	}
	if len(roles) > 0 && !identity.HasRole(roles...) {
		return apperrors.Forbidden(fmt.Sprintf("role %q may not perform this action", identity.Role))
	}
	return nil
}
