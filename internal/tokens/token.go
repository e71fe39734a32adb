package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/study-grade/internal/keys"
	"github.com/study-grade/internal/users"
)

type ID string

func NewID() ID {
	return ID(gonanoid.Must())
}

// Token is a signed bearer credential issued to a user.
type Token struct {
	ID      ID        `json:"id"`
	UserID  users.ID  `json:"user_id"`
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

var (
	ErrInvalid            = errors.New("invalid token")
	ErrMissingFromContext = errors.New("token missing from context")
)

type Issuer struct {
	key *keys.Key
	ttl time.Duration
	now func() time.Time
}

func NewIssuer(key *keys.Key, ttl time.Duration) *Issuer {
	return &Issuer{
		key: key,
		ttl: ttl,
		now: time.Now,
	}
}

func (i *Issuer) Issue(userID users.ID) (*Token, error) {
	now := i.now()
	id := NewID()
	claims := jwt.RegisteredClaims{
		ID:        string(id),
		Subject:   string(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Token{
		ID:      id,
		UserID:  userID,
		Token:   signed,
		Expires: claims.ExpiresAt.Time,
	}, nil
}

// Parse verifies the signature and expiry of raw. Every failure wraps ErrInvalid.
func (i *Issuer) Parse(raw string) (*Token, error) {
	var claims jwt.RegisteredClaims
	if _, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return i.key.Bytes(), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing subject or id", ErrInvalid)
	}
	return &Token{
		ID:      ID(claims.ID),
		UserID:  users.ID(claims.Subject),
		Token:   raw,
		Expires: claims.ExpiresAt.Time,
	}, nil
}
