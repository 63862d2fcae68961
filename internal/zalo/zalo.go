package zalo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/seowriter/zalo-bridge/internal/log"
)

// Default Zalo OAuth v4 endpoints. Overridable through the environment so
// tests and staging setups can point at a stand-in provider.
const (
	defaultAuthURL     = "https://oauth.zaloapp.com/v4/permission"
	defaultTokenURL    = "https://oauth.zaloapp.com/v4/access_token"
	defaultProfileURL  = "https://graph.zalo.me/v2.0/me"
	defaultProfileVars = "id,name,picture,gender,birthday"
)

// Client talks to the Zalo OAuth and graph endpoints. Zalo deviates from
// plain OAuth 2.0 in two ways: the app secret travels in a secret_key header
// on the token request, and the graph API wants the access token in an
// access_token header rather than Authorization.
type Client struct {
	appID      string
	appSecret  string
	httpClient *http.Client

	authURL    string
	tokenURL   string
	profileURL string
}

// NewClient creates a Zalo API client
func NewClient(appID, appSecret string) *Client {
	c := &Client{
		appID:      appID,
		appSecret:  appSecret,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		authURL:    defaultAuthURL,
		tokenURL:   defaultTokenURL,
		profileURL: defaultProfileURL,
	}
	if u := os.Getenv("ZALO_OAUTH_AUTH_URL"); u != "" {
		c.authURL = u
	}
	if u := os.Getenv("ZALO_OAUTH_TOKEN_URL"); u != "" {
		c.tokenURL = u
	}
	if u := os.Getenv("ZALO_PROFILE_URL"); u != "" {
		c.profileURL = u
	}
	return c
}

// AppID returns the configured application identifier
func (c *Client) AppID() string {
	return c.appID
}

// AuthURL builds the provider authorization URL for the given callback,
// state, and PKCE challenge
func (c *Client) AuthURL(redirectURI, state, codeChallenge string) string {
	q := url.Values{}
	q.Set("app_id", c.appID)
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	if codeChallenge != "" {
		q.Set("code_challenge", codeChallenge)
		q.Set("code_challenge_method", "S256")
	}
	return c.authURL + "?" + q.Encode()
}

// tokenResponse mirrors Zalo's token endpoint body. Numeric fields arrive as
// JSON strings.
type tokenResponse struct {
	AccessToken           string      `json:"access_token"`
	RefreshToken          string      `json:"refresh_token"`
	ExpiresIn             json.Number `json:"expires_in"`
	RefreshTokenExpiresIn json.Number `json:"refresh_token_expires_in"`
	Error                 json.Number `json:"error"`
	ErrorName             string      `json:"error_name"`
	ErrorDescription      string      `json:"error_description"`
}

// ExchangeCode exchanges an authorization code for a token bundle.
// codeVerifier may be empty when the flow did not use PKCE (the relay's own
// exchange, where the code is bound to the relay's callback instead).
func (c *Client) ExchangeCode(ctx context.Context, code, codeVerifier string) (*TokenBundle, error) {
	form := url.Values{}
	form.Set("app_id", c.appID)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	if codeVerifier != "" {
		form.Set("code_verifier", codeVerifier)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("secret_key", c.appSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange request failed: %w", err)
	}
	defer resp.Body.Close()

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}

	if errCode, _ := body.Error.Int64(); errCode != 0 || resp.StatusCode != http.StatusOK {
		desc := body.ErrorDescription
		if desc == "" {
			desc = body.ErrorName
		}
		if desc == "" {
			desc = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("token exchange rejected: %s", desc)
	}
	if body.AccessToken == "" {
		return nil, fmt.Errorf("token exchange rejected: empty access token")
	}

	expiresIn, _ := body.ExpiresIn.Int64()
	refreshExpiresIn, _ := body.RefreshTokenExpiresIn.Int64()

	return &TokenBundle{
		AccessToken:           body.AccessToken,
		RefreshToken:          body.RefreshToken,
		ExpiresIn:             expiresIn,
		RefreshTokenExpiresIn: refreshExpiresIn,
		ObtainedAt:            time.Now(),
	}, nil
}

// graphProfile is the raw graph API shape; the picture is nested
type graphProfile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
	Gender   string      `json:"gender"`
	Birthday string      `json:"birthday"`
	Error    json.Number `json:"error"`
	Message  string      `json:"message"`
}

// FetchProfile loads the user profile using a freshly exchanged token
func (c *Client) FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building profile request: %w", err)
	}
	q := req.URL.Query()
	q.Set("fields", defaultProfileVars)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("access_token", token.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile request failed: status %d", resp.StatusCode)
	}

	var raw graphProfile
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding profile response: %w", err)
	}

	if errCode, _ := raw.Error.Int64(); errCode != 0 {
		return nil, fmt.Errorf("profile request rejected: %s", raw.Message)
	}

	profile := &Profile{
		ID:       raw.ID,
		Name:     raw.Name,
		Picture:  raw.Picture.Data.URL,
		Gender:   raw.Gender,
		Birthday: raw.Birthday,
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	log.LogDebugWithFields("zalo", "Fetched user profile", map[string]any{
		"user_id": profile.ID,
	})
	return profile, nil
}
