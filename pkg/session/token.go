package session

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/grovetools/inbox/errors"
)

// Claims are the fields of an instance-issued JWT that matter here.
type Claims struct {
	PersonID  int
	Issuer    string
	ExpiresAt time.Time
}

// ParseToken decodes the claims of an auth token without verifying its
// signature; only the instance holds the key.
func ParseToken(raw string) (Claims, error) {
	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &rc); err != nil {
		return Claims{}, errors.TokenInvalid(err.Error())
	}

	claims := Claims{Issuer: rc.Issuer}
	if rc.Subject != "" {
		id, err := strconv.Atoi(rc.Subject)
		if err != nil {
			return Claims{}, errors.TokenInvalid("subject is not a person id")
		}
		claims.PersonID = id
	}
	if rc.ExpiresAt != nil {
		claims.ExpiresAt = rc.ExpiresAt.Time
	}
	return claims, nil
}
