package utils

import (
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/maheshrc27/agency-planner/internal/transfer"
)

const issuer = "agency-planner"

// GenerateToken signs a session token for userID valid from issuedAt for ttl.
func GenerateToken(secretKey, userID string, issuedAt time.Time, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("token needs a user id")
	}
	claims := transfer.CustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secretKey))
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	return signed, nil
}

func ValidateToken(secretKey, tokenString string) (*transfer.CustomClaims, error) {
	claims := &transfer.CustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid token signing method")
		}
		return []byte(secretKey), nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// NeedsRenewal reports whether less than half of ttl is left on claims.
func NeedsRenewal(claims *transfer.CustomClaims, now time.Time, ttl time.Duration) bool {
	if claims.ExpiresAt == nil || ttl <= 0 {
		return false
	}
	return claims.ExpiresAt.Sub(now) < ttl/2
}
