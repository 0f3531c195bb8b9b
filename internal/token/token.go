package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failures, in the order they are checked. AuthGuard maps all
// of them to 401; callers that need to tell them apart use errors.Is.
var (
	ErrMalformed        = errors.New("token is malformed")
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrExpired          = errors.New("token has expired")
)

// Details carries an issued credential together with its expiry.
type Details struct {
	Token     string
	SubjectID string
	ExpiresAt time.Time
}

type claims struct {
	jwt.RegisteredClaims
}

// Issue signs a credential for subjectID valid for ttl. The payload is
// {sub, exp} and nothing else; the service holds no state and never touches
// storage.
func Issue(subjectID, secret string, ttl time.Duration) (*Details, error) {
	expiresAt := time.Now().Add(ttl)

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		jwt.RegisteredClaims{
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return nil, err
	}

	return &Details{
		Token:     signed,
		SubjectID: subjectID,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify validates the signature against secret and checks expiry, returning
// the subject ID. A token without an exp claim is rejected as malformed.
func Verify(secret, tokenString string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{},
		func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", ErrInvalidSignature
		default:
			return "", ErrMalformed
		}
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || c.Subject == "" {
		return "", ErrMalformed
	}
	return c.Subject, nil
}
