package token

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Signer signs access-token claims and supplies the key used to check them.
type Signer interface {
	Sign(claims jwt.Claims) (string, error)
	Keyfunc(token *jwt.Token) (any, error)
	Alg() string
}

// HS256Signer signs with a single shared secret.
type HS256Signer struct {
	key []byte
}

var _ Signer = (*HS256Signer)(nil)

func NewHS256Signer(secret string) *HS256Signer {
	return &HS256Signer{key: []byte(secret)}
}

func (s *HS256Signer) Sign(claims jwt.Claims) (string, error) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", errors.Wrap(err, "HS256Signer.Sign")
	}
	return raw, nil
}

// Keyfunc refuses anything that is not HMAC so a token cannot pick its own algorithm.
func (s *HS256Signer) Keyfunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.Errorf("HS256Signer.Keyfunc: alg %v not accepted", token.Header["alg"])
	}
	return s.key, nil
}

func (s *HS256Signer) Alg() string {
	return jwt.SigningMethodHS256.Alg()
}
