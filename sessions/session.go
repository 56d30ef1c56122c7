package sessions

import (
	"encoding/json"
	"strings"

	"github.com/jrsteele09/auction-storefront/token"
	"github.com/jrsteele09/auction-storefront/users"
)

// Session is the persisted identity of the logged in user. It is stored as a
// single flat record: the token pair merged with the profile fields.
type Session struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	users.Profile
}

// New merges a token pair with the profile fetched using it
func New(pair token.Pair, profile users.Profile) Session {
	return Session{Access: pair.Access, Refresh: pair.Refresh, Profile: profile}
}

// Pair returns the session's tokens
func (s Session) Pair() token.Pair {
	return token.Pair{Access: s.Access, Refresh: s.Refresh}
}

// Valid reports whether the record can back an active session
func (s Session) Valid() bool {
	return strings.TrimSpace(s.Access) != ""
}

// Marshal encodes the session record
func Marshal(s Session) ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal decodes a stored record. Malformed data, or a record that cannot
// back a session, reports false.
func Unmarshal(data []byte) (Session, bool) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, false
	}
	if !s.Valid() {
		return Session{}, false
	}
	return s, true
}
