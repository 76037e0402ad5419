package utils // package utils provides helpers for minting access tokens

import (
    "errors"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

// Roles carried in the "role" claim.
const (
    RoleCustomer = "CUSTOMER" // buyers holding seats and filling carts
    RoleOwner    = "OWNER"    // organizers publishing layouts and prices
    RoleService  = "SERVICE"  // the checkout service confirming holds
)

// AccessToken is a signed JWT together with its expiry.
type AccessToken struct {
    Token string
    Exp   time.Time
}

// NewAccessToken builds and signs an HS256 JWT.  The subject becomes the
// holder id for customer tokens, so it is kept as a string.
func NewAccessToken(secret, subject, role string, ttl time.Duration) (AccessToken, error) {
    if secret == "" {
        return AccessToken{}, errors.New("empty signing secret")
    }
    if subject == "" {
        return AccessToken{}, errors.New("empty subject")
    }
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := jwt.MapClaims{
        "sub":  subject,
        "role": role,
        "exp":  exp.Unix(),
        "iat":  now.Unix(),
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}
