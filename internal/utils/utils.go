package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/ArowuTest/team-raffle-backend/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// RoleFacilitator is the role carried by facilitator tokens
const RoleFacilitator = "facilitator"

var prizePrinter = message.NewPrinter(language.English)

// GenerateJWT generates a signed HS256 token for subject
func GenerateJWT(subject string, role string, cfg *config.Config) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(time.Second * time.Duration(cfg.JWT.ExpiresIn)).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JWT.Secret))
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// ValidateJWT validates a token and returns its claims
func ValidateJWT(tokenString string, cfg *config.Config) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(cfg.JWT.Secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// FormatPrize renders a prize with thousands separators, e.g. 15000 as "15,000"
func FormatPrize(amount int64) string {
	return prizePrinter.Sprintf("%d", amount)
}
