package zalo

import (
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// TokenBundle is the result of a code exchange with the Zalo token endpoint.
// Zalo's v4 API reports expiry fields as strings and adds a separate expiry
// for the refresh token, so the raw response is normalized here.
type TokenBundle struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token,omitempty"`
	ExpiresIn             int64     `json:"expires_in,omitempty"`
	RefreshTokenExpiresIn int64     `json:"refresh_token_expires_in,omitempty"`
	ObtainedAt            time.Time `json:"obtained_at"`
}

// OAuth2Token converts the bundle into the standard token type
func (t *TokenBundle) OAuth2Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    "Bearer",
	}
	if t.ExpiresIn > 0 {
		tok.Expiry = t.ObtainedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return tok
}

// Profile is the user profile returned by the Zalo graph API. Only the id is
// guaranteed by the provider; everything else is optional and depends on the
// permissions the user granted.
type Profile struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Picture  string `json:"picture,omitempty"`
	Gender   string `json:"gender,omitempty"`
	Birthday string `json:"birthday,omitempty"`
	Locale   string `json:"locale,omitempty"`
}

// Validate rejects profiles without the one field the bridge relies on.
// Profiles are validated on receipt, before they reach session storage or
// any rendered page.
func (p *Profile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("profile missing required id field")
	}
	return nil
}
