package api

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates bearer tokens and extracts the user id.
type Verifier struct {
	method string
	key    interface{}
}

func NewRSAVerifier(pubKeyPath string) (*Verifier, error) {
	b, err := os.ReadFile(pubKeyPath)
	if err != nil {
		return nil, err
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(b)
	if err != nil {
		return nil, err
	}
	return &Verifier{method: jwt.SigningMethodRS256.Alg(), key: pub}, nil
}

func NewHMACVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("empty hmac secret")
	}
	return &Verifier{method: jwt.SigningMethodHS256.Alg(), key: []byte(secret)}, nil
}

// NewVerifier picks the verifier for algorithm (RS256 or HS256).
func NewVerifier(algorithm, pubKeyPath, secret string) (*Verifier, error) {
	switch algorithm {
	case "RS256":
		return NewRSAVerifier(pubKeyPath)
	case "HS256":
		return NewHMACVerifier(secret)
	default:
		return nil, fmt.Errorf("unsupported jwt algorithm %q", algorithm)
	}
}

func (v *Verifier) VerifyToken(tokenStr string) (string, error) {
	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return v.key, nil
	}, jwt.WithValidMethods([]string{v.method}))
	if err != nil {
		return "", err
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return "", errors.New("invalid token")
	}
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub, nil
	}
	if userID, ok := claims["user_id"].(string); ok && userID != "" {
		return userID, nil
	}
	return "", errors.New("token has no subject")
}
