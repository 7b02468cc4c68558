package utils

import (
	"errors"

	"github.com/golang-jwt/jwt/v4"

	"inkgen/config"
)

// Claims are the fields of an identity-service access token. The identity
// service signs HS256 tokens with the shared secret; the user id is the
// standard subject claim.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// VerifyToken parses and validates an access token issued by the identity
// service.
func VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(config.AppConfig.IdentityJWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
