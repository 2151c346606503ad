package main

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"agrohub/models"
)

// signJWT creates an HS256 token with 24h expiration carrying the user's role.
func signJWT(secret string, userID primitive.ObjectID, role models.Role) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID.Hex(),
		"role": string(role),
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
		"iat":  time.Now().Unix(),
		"iss":  "agrohub",
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// parseJWT validates the token and returns the subject id and role.
func parseJWT(secret, tokenStr string) (primitive.ObjectID, models.Role, error) {
	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return primitive.NilObjectID, "", errors.New("invalid token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return primitive.NilObjectID, "", errors.New("no claims")
	}
	sub, _ := claims["sub"].(string)
	roleStr, _ := claims["role"].(string)
	uid, err := primitive.ObjectIDFromHex(sub)
	if err != nil {
		return primitive.NilObjectID, "", errors.New("no subject")
	}
	role := models.Role(roleStr)
	if !models.ValidRole(role) {
		return primitive.NilObjectID, "", errors.New("unknown role")
	}
	return uid, role, nil
}
