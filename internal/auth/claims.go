package auth

import "github.com/golang-jwt/jwt/v5"

type Claims struct {
	Email    string `json:"correo"`
	RoleName string `json:"rol"`
	jwt.RegisteredClaims
}

func (c *Claims) Role() Role {
	return ParseRole(c.RoleName)
}
