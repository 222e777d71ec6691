package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CartTokenTTL suit la durée de vie du panier dans Redis
const CartTokenTTL = 30 * 24 * time.Hour

var ErrInvalidCartToken = errors.New("jeton de panier invalide")

// GenerateCartToken émet un jeton invité signé ; son sujet identifie le panier
func GenerateCartToken(secret string, now time.Time) (string, string, error) {
	cartID := uuid.NewString()
	claims := jwt.RegisteredClaims{
		Subject:   cartID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(CartTokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", "", err
	}
	return signed, cartID, nil
}

// ParseCartToken retourne l'identifiant de panier porté par le jeton
func ParseCartToken(secret, raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("méthode de signature inattendue: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidCartToken
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", ErrInvalidCartToken
	}
	return claims.Subject, nil
}
