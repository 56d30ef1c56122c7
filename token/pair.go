package token

import (
	"golang.org/x/oauth2"
)

// Pair is the response of the token endpoint.
type Pair struct {
	// Access is the short-lived JWT sent as "Authorization: Bearer <access>".
	Access string `json:"access"`

	// Refresh is the long-lived token exchanged at token/refresh/ for a new access token.
	// The refresh endpoint only returns "access"; the refresh token is kept from login.
	Refresh string `json:"refresh,omitempty"`
}

// OAuth2Token converts the pair, taking the expiry from the access token's exp
// claim when it can be decoded.
func (p Pair) OAuth2Token() *oauth2.Token {
	t := &oauth2.Token{
		AccessToken:  p.Access,
		RefreshToken: p.Refresh,
		TokenType:    "Bearer",
	}
	if claims, err := DecodeClaims(p.Access); err == nil {
		t.Expiry = claims.Expiry
	}
	return t
}
