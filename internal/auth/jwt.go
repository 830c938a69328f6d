package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// RolePsicologa é o papel do login local; só ele acessa as rotas da psicóloga.
	RolePsicologa = "psicologa"
	// RoleFuncionario é o papel de tokens sem direitos de psicóloga (por exemplo, emitidos pelo
	// provedor externo para funcionários). Vale para /api/me e para o limite por subject das
	// rotas públicas; as rotas da psicóloga respondem 403.
	RoleFuncionario = "funcionario"
)

type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
	// External marca tokens emitidos pelo provedor de identidade (RS256/JWKS).
	External bool `json:"-"`
}

func BuildJWT(secret []byte, subject, role, name string, exp time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(exp)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: role,
		Name: name,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseJWT valida apenas tokens HS256 emitidos por este serviço.
func ParseJWT(secret []byte, tokenString string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid {
		return c, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}
