package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer signs and verifies the session tokens carried in the
// Authorization header. Claims are the acting user's id and email.
type TokenIssuer struct {
	secret []byte
	expiry time.Duration
}

func NewTokenIssuer(secret string, expiryHours int) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		expiry: time.Duration(expiryHours) * time.Hour,
	}
}

// Issue returns a signed token and its lifetime in milliseconds, the unit
// the clients expect in tokenExpiration.
func (t *TokenIssuer) Issue(userID, email string) (string, int64, error) {
	claims := jwt.MapClaims{
		"userId": userID,
		"email":  email,
		"exp":    time.Now().Add(t.expiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", 0, err
	}
	return signed, t.expiry.Milliseconds(), nil
}

// Verify parses a signed token and returns the acting user's id.
func (t *TokenIssuer) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}

	userID, ok := claims["userId"].(string)
	if !ok || userID == "" {
		return "", errors.New("invalid token payload")
	}
	return userID, nil
}
