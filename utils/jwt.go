package utils

import (
	"errors"
	"os"
	"time"

	"groundbook/config"

	"github.com/golang-jwt/jwt"
)

// Claims carried by every access token.
const (
	ClaimSubject = "sub"
	ClaimRole    = "role"
)

func secretKey() []byte {
	secret := config.AppConfig.JWTSecret
	if secret == "" {
		secret = os.Getenv("JWT_SECRET")
	}
	if secret == "" {
		secret = "groundbook-dev"
	}
	return []byte(secret)
}

// GenerateToken creates a signed JWT token for subject acting as role.
// The token expires after the specified duration.
func GenerateToken(subject, role string, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{
		ClaimSubject: subject,
		ClaimRole:    role,
		"iat":        time.Now().Unix(),
		"exp":        time.Now().Add(duration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secretKey())
}

// ValidateToken parses and validates a token string and returns the token if valid.
func ValidateToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Ensure that the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secretKey(), nil
	})
}

// ExtractActorFromToken returns the subject and role of a valid token.
func ExtractActorFromToken(tokenString string) (string, string, error) {
	token, err := ValidateToken(tokenString)
	if err != nil {
		return "", "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", errors.New("invalid token")
	}

	sub, ok := claims[ClaimSubject].(string)
	if !ok || sub == "" {
		return "", "", errors.New("token does not contain a valid 'sub' claim")
	}
	role, _ := claims[ClaimRole].(string)
	return sub, role, nil
}
