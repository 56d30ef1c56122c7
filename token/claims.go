package token

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/auction-storefront/internal/errors"
)

// subjectClaims lists the claims that may carry the user id, in priority order.
// The backend issues "user_id"; "sub" covers standard issuers.
var subjectClaims = []string{"user_id", "sub"}

// Claims is the part of a bearer token the client is allowed to read. The
// signature is never verified here; the server stays the authority.
type Claims struct {
	SubjectID string
	IssuedAt  time.Time // zero when the token has no iat
	Expiry    time.Time
}

// Expired is true once now reaches the expiry instant, with no grace window
func (c Claims) Expired(now time.Time) bool {
	return !now.Before(c.Expiry)
}

// DecodeError reports a token whose payload segment could not be read
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", errors.ErrDecode, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", errors.ErrDecode, e.Reason)
}

func (e *DecodeError) Unwrap() []error {
	if e.Err != nil {
		return []error{errors.ErrDecode, e.Err}
	}
	return []error{errors.ErrDecode}
}

// DecodeClaims parses the payload segment of rawToken
func DecodeClaims(rawToken string) (Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return Claims{}, &DecodeError{Reason: "empty token"}
	}

	parsed, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return Claims{}, &DecodeError{Reason: "parse", Err: err}
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return Claims{}, &DecodeError{Reason: "error extracting claims"}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return Claims{}, &DecodeError{Reason: "exp", Err: err}
	}
	if exp == nil {
		return Claims{}, &DecodeError{Reason: "token missing exp claim"}
	}

	out := Claims{Expiry: exp.Time}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	for _, name := range subjectClaims {
		if subject, ok := stringClaim(claims[name]); ok {
			out.SubjectID = subject
			break
		}
	}
	return out, nil
}

// IsExpired reports whether rawToken is expired at now. A token that cannot be
// decoded is treated as expired, it cannot be trusted for a local decision.
func IsExpired(rawToken string, now time.Time) bool {
	claims, err := DecodeClaims(rawToken)
	if err != nil {
		return true
	}
	return claims.Expired(now)
}

func stringClaim(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, s != ""
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case json.Number:
		return s.String(), true
	default:
		return "", false
	}
}
