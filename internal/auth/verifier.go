package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid возвращается для просроченного, повреждённого или
// подписанного чужим ключом токена.
var ErrTokenInvalid = errors.New("invalid or expired token")

// Identity — проверенная личность вызывающего, извлечённая из bearer-токена.
type Identity struct {
	UserID int64
	Email  string
	Role   string
}

// IsAdmin сообщает, имеет ли вызывающий административную роль.
func (i Identity) IsAdmin() bool {
	return i.Role == "admin"
}

// Verifier проверяет bearer-токен и возвращает личность вызывающего.
type Verifier interface {
	Verify(token string) (Identity, error)
}

// JWTVerifier проверяет HS256 JWT, выпущенные сервисом пользователей.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier создаёт верификатор с общим секретом сервиса пользователей.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// Verify разбирает и проверяет токен. Из claims используются userId, email и role.
func (v *JWTVerifier) Verify(token string) (Identity, error) {
	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return Identity{}, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrTokenInvalid
	}

	userID, err := numericClaim(claims, "userId")
	if err != nil {
		return Identity{}, ErrTokenInvalid
	}

	identity := Identity{UserID: userID}
	if email, ok := claims["email"].(string); ok {
		identity.Email = email
	}
	if role, ok := claims["role"].(string); ok {
		identity.Role = role
	}
	return identity, nil
}

// numericClaim достаёт целочисленный claim: json декодирует числа как float64.
func numericClaim(claims jwt.MapClaims, name string) (int64, error) {
	raw, ok := claims[name]
	if !ok {
		return 0, fmt.Errorf("claim %s is missing", name)
	}
	switch value := raw.(type) {
	case float64:
		return int64(value), nil
	case int64:
		return value, nil
	default:
		return 0, fmt.Errorf("claim %s has unexpected type %T", name, raw)
	}
}

var _ Verifier = (*JWTVerifier)(nil)
