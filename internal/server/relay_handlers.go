package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/seowriter/zalo-bridge/internal/config"
	"github.com/seowriter/zalo-bridge/internal/crypto"
	jsonwriter "github.com/seowriter/zalo-bridge/internal/json"
	"github.com/seowriter/zalo-bridge/internal/log"
	"github.com/seowriter/zalo-bridge/internal/storage"
	"github.com/seowriter/zalo-bridge/internal/urlutil"
	"github.com/seowriter/zalo-bridge/internal/zalo"
)

// RelayEnvelope is the payload sealed by the relay and opened by the origin.
// It carries the full provider token bundle and the validated profile in one
// authenticated, encrypted blob.
type RelayEnvelope struct {
	Token    zalo.TokenBundle `json:"token"`
	UserInfo zalo.Profile     `json:"userInfo"`
}

// RelayHandlers serves the allow-listed intermediary domain: it forwards
// browsers to the provider and performs the server-side code exchange on the
// way back.
type RelayHandlers struct {
	cfg        config.Config
	zalo       *zalo.Client
	store      storage.Store
	envelope   *crypto.EnvelopeCodec
	stateToken crypto.StateToken
}

// NewRelayHandlers creates relay handlers with their dependencies
func NewRelayHandlers(cfg config.Config, zaloClient *zalo.Client, store storage.Store, envelope *crypto.EnvelopeCodec, stateToken crypto.StateToken) *RelayHandlers {
	return &RelayHandlers{
		cfg:        cfg,
		zalo:       zaloClient,
		store:      store,
		envelope:   envelope,
		stateToken: stateToken,
	}
}

// destinationAllowed checks the requested redirect target against the
// configured origin allow-list. An empty allow-list permits nothing; the
// relay never forwards tokens to a destination it was not told about.
func (h *RelayHandlers) destinationAllowed(redirectURI string) bool {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return false
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return false
	}

	for _, allowed := range h.cfg.AllowedOrigins {
		au, err := url.Parse(allowed)
		if err != nil {
			continue
		}
		host := au.Host
		if host == "" {
			host = allowed
		}
		if strings.EqualFold(u.Host, host) {
			return true
		}
	}
	return false
}

// AuthHandler accepts a login handoff from an origin deployment, records the
// redirect destination server-side, and forwards the browser to the provider
// with the relay's own callback.
func (h *RelayHandlers) AuthHandler(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Zalo.AppID == "" {
		jsonwriter.WriteServiceUnavailable(w, "zalo app not configured")
		return
	}

	q := r.URL.Query()
	redirectURI := q.Get("redirect_uri")
	if redirectURI == "" {
		jsonwriter.WriteBadRequest(w, "missing_redirect_uri", "redirect_uri is required")
		return
	}

	if !h.destinationAllowed(redirectURI) {
		log.LogWarnWithFields("relay", "Rejected redirect destination", map[string]any{
			"redirect_uri": redirectURI,
		})
		jsonwriter.WriteBadRequest(w, "redirect_uri_not_allowed", "redirect destination is not on the allow-list")
		return
	}

	state, err := h.stateToken.Generate()
	if err != nil {
		jsonwriter.WriteInternalServerError(w, "failed to generate state")
		return
	}

	rs := storage.RelayState{
		RedirectURI: redirectURI,
		State:       q.Get("state"),
		CreatedAt:   time.Now(),
	}
	if err := h.store.StoreRelayState(r.Context(), state, rs); err != nil {
		log.LogErrorWithFields("relay", "Failed to store relay state", map[string]any{
			"error": err.Error(),
		})
		jsonwriter.WriteInternalServerError(w, "failed to persist relay state")
		return
	}

	callbackURL, err := urlutil.JoinPath(h.cfg.BaseURL, "/api/zalo-proxy/callback")
	if err != nil {
		jsonwriter.WriteInternalServerError(w, "invalid relay base URL")
		return
	}

	log.LogInfoWithFields("relay", "Forwarding login to provider", map[string]any{
		"destination_host": hostOf(redirectURI),
	})
	http.Redirect(w, r, h.zalo.AuthURL(callbackURL, state, ""), http.StatusFound)
}

// CallbackHandler receives the provider callback on the relay domain,
// performs the code exchange, seals the result, and sends the browser back
// to the destination recorded at initiation. Both callback routes land
// here; the destination always comes from the stored relay state.
func (h *RelayHandlers) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := q.Get("state")

	// The signature check rejects forged or foreign states before any
	// storage lookup or token call
	if state == "" || !h.stateToken.Validate(state) {
		log.LogWarnWithFields("relay", "Callback with missing or invalid state", nil)
		jsonwriter.WriteBadRequest(w, "invalid_state", "state parameter is missing, expired, or not issued here")
		return
	}

	rs, err := h.store.ConsumeRelayState(r.Context(), state)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonwriter.WriteBadRequest(w, "unknown_state", "state was already used or has expired")
			return
		}
		jsonwriter.WriteInternalServerError(w, "failed to read relay state")
		return
	}

	if errMsg := q.Get("error"); errMsg != "" {
		log.LogWarnWithFields("relay", "Provider returned an error", map[string]any{
			"error": errMsg,
		})
		h.redirectError(w, r, rs.RedirectURI, errMsg, q.Get("error_description"))
		return
	}

	code := q.Get("code")
	if code == "" {
		h.redirectError(w, r, rs.RedirectURI, "missing_code", "provider callback carried no authorization code")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	bundle, err := h.zalo.ExchangeCode(ctx, code, "")
	if err != nil {
		log.LogErrorWithFields("relay", "Code exchange failed", map[string]any{
			"error": err.Error(),
		})
		h.redirectError(w, r, rs.RedirectURI, "token_exchange_failed", err.Error())
		return
	}

	profile, err := h.zalo.FetchProfile(ctx, bundle.OAuth2Token())
	if err != nil {
		log.LogErrorWithFields("relay", "Profile fetch failed", map[string]any{
			"error": err.Error(),
		})
		h.redirectError(w, r, rs.RedirectURI, "profile_fetch_failed", err.Error())
		return
	}

	sealed, err := h.envelope.Seal(RelayEnvelope{
		Token:    *bundle,
		UserInfo: *profile,
	})
	if err != nil {
		log.LogErrorWithFields("relay", "Failed to seal relay envelope", map[string]any{
			"error": err.Error(),
		})
		h.redirectError(w, r, rs.RedirectURI, "internal_error", "failed to seal result")
		return
	}

	target, err := urlutil.WithQuery(rs.RedirectURI, map[string]string{
		"zalo_proxy_token": sealed,
		"success":          "1",
	})
	if err != nil {
		jsonwriter.WriteInternalServerError(w, "stored redirect destination is invalid")
		return
	}

	log.LogInfoWithFields("relay", "Relaying sealed login result", map[string]any{
		"destination_host": hostOf(rs.RedirectURI),
		"user_id":          profile.ID,
	})
	http.Redirect(w, r, target, http.StatusFound)
}

// redirectError sends the browser back to the recorded destination with a
// machine-readable error. Only called once the destination has been resolved
// from stored state.
func (h *RelayHandlers) redirectError(w http.ResponseWriter, r *http.Request, redirectURI, code, details string) {
	target, err := urlutil.WithQuery(redirectURI, map[string]string{
		"zalo_proxy_error": code,
		"error_details":    details,
	})
	if err != nil {
		jsonwriter.WriteInternalServerError(w, "stored redirect destination is invalid")
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
