package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/seowriter/zalo-bridge/internal/config"
	"github.com/seowriter/zalo-bridge/internal/cookie"
	"github.com/seowriter/zalo-bridge/internal/crypto"
	"github.com/seowriter/zalo-bridge/internal/envutil"
	jsonwriter "github.com/seowriter/zalo-bridge/internal/json"
	"github.com/seowriter/zalo-bridge/internal/log"
	"github.com/seowriter/zalo-bridge/internal/storage"
	"github.com/seowriter/zalo-bridge/internal/urlutil"
	"github.com/seowriter/zalo-bridge/internal/zalo"
)

// OriginHandlers serves the application-side half of the login flow: the
// initiator, both callback receivers, and the staged-login endpoint.
type OriginHandlers struct {
	cfg      config.Config
	zalo     *zalo.Client
	store    storage.Store
	envelope *crypto.EnvelopeCodec
}

// NewOriginHandlers creates origin handlers with their dependencies
func NewOriginHandlers(cfg config.Config, zaloClient *zalo.Client, store storage.Store, envelope *crypto.EnvelopeCodec) *OriginHandlers {
	return &OriginHandlers{
		cfg:      cfg,
		zalo:     zaloClient,
		store:    store,
		envelope: envelope,
	}
}

// currentDomain returns the externally reachable base URL of this
// deployment. On the development host the domain comes from the
// environment; in production it is fixed configuration.
func (h *OriginHandlers) currentDomain() string {
	if envutil.IsDev() {
		if dev := envutil.DevDomain(); dev != "" {
			return dev
		}
	}
	return h.cfg.BaseURL
}

// redirectWithError sends the browser to the error page with a
// machine-readable code. Used for every initiator/callback failure that has
// a user to show something to.
func (h *OriginHandlers) redirectWithError(w http.ResponseWriter, r *http.Request, code, details string) {
	target, err := urlutil.WithQuery("/auth/error", map[string]string{
		"error":         code,
		"error_details": details,
	})
	if err != nil {
		target = "/auth/error"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// LoginHandler initiates the login flow. The default path goes through the
// relay; ?direct=1 talks to the provider straight from this deployment.
func (h *OriginHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Zalo.AppID == "" {
		log.LogErrorWithFields("auth", "Login attempted without a configured Zalo app ID", nil)
		h.redirectWithError(w, r, "zalo_config_missing", "")
		return
	}

	if r.URL.Query().Get("direct") != "" {
		h.directLogin(w, r)
		return
	}

	domain := h.currentDomain()
	callbackURL, err := urlutil.JoinPath(domain, "/api/auth/zalo/proxy-callback")
	if err != nil {
		h.redirectWithError(w, r, "invalid_configuration", err.Error())
		return
	}

	proxyAuthURL, err := urlutil.JoinPath(h.cfg.ProxyBaseURL, "/api/zalo-proxy/auth")
	if err != nil {
		h.redirectWithError(w, r, "invalid_configuration", err.Error())
		return
	}

	state, err := crypto.GenerateSecureToken()
	if err != nil {
		h.redirectWithError(w, r, "internal_error", "")
		return
	}

	target, err := urlutil.WithQuery(proxyAuthURL, map[string]string{
		"redirect_uri": callbackURL,
		"app_domain":   domain,
		"state":        state,
	})
	if err != nil {
		h.redirectWithError(w, r, "invalid_configuration", err.Error())
		return
	}

	log.LogInfoWithFields("auth", "Starting relayed login", map[string]any{
		"proxy": h.cfg.ProxyBaseURL,
	})
	http.Redirect(w, r, target, http.StatusFound)
}

// directLogin starts a PKCE exchange straight with the provider. Each
// attempt gets its own correlation ID, so concurrent logins from one
// browser do not overwrite each other.
func (h *OriginHandlers) directLogin(w http.ResponseWriter, r *http.Request) {
	verifier, err := zalo.GenerateCodeVerifier()
	if err != nil {
		h.redirectWithError(w, r, "internal_error", "")
		return
	}
	state, err := crypto.GenerateSecureToken()
	if err != nil {
		h.redirectWithError(w, r, "internal_error", "")
		return
	}

	attemptID := uuid.NewString()
	attempt := storage.LoginAttempt{
		CodeVerifier: verifier,
		State:        state,
		CreatedAt:    time.Now(),
	}
	if err := h.store.StoreLoginAttempt(r.Context(), attemptID, attempt); err != nil {
		log.LogErrorWithFields("auth", "Failed to store login attempt", map[string]any{
			"error": err.Error(),
		})
		h.redirectWithError(w, r, "internal_error", "")
		return
	}

	callbackURL, err := urlutil.JoinPath(h.currentDomain(), "/api/auth/zalo/callback")
	if err != nil {
		h.redirectWithError(w, r, "invalid_configuration", err.Error())
		return
	}

	cookie.SetAttempt(w, attemptID, h.cfg.StateTTL.Duration())

	authURL := h.zalo.AuthURL(callbackURL, state, zalo.CodeChallengeS256(verifier))
	log.LogInfoWithFields("auth", "Starting direct login", map[string]any{
		"attempt_id": attemptID,
	})
	http.Redirect(w, r, authURL, http.StatusFound)
}

// DirectCallbackHandler receives the provider callback in direct mode,
// finishes the PKCE exchange, and stages the result for confirmation.
func (h *OriginHandlers) DirectCallbackHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if errMsg := q.Get("error"); errMsg != "" {
		log.LogWarnWithFields("auth", "Provider returned an error on direct callback", map[string]any{
			"error": errMsg,
		})
		h.redirectWithError(w, r, errMsg, q.Get("error_description"))
		return
	}

	code := q.Get("code")
	state := q.Get("state")
	if code == "" || state == "" {
		h.redirectWithError(w, r, "invalid_callback", "missing code or state")
		return
	}

	attemptID, err := cookie.Get(r, cookie.AttemptCookie)
	if err != nil {
		h.redirectWithError(w, r, "missing_attempt", "no login attempt in progress")
		return
	}
	cookie.Clear(w, cookie.AttemptCookie)

	attempt, err := h.store.ConsumeLoginAttempt(r.Context(), attemptID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.redirectWithError(w, r, "attempt_expired", "login attempt expired or already used")
			return
		}
		h.redirectWithError(w, r, "internal_error", "")
		return
	}

	// State must match before any token call is made
	if attempt.State != state {
		log.LogWarnWithFields("auth", "State mismatch on direct callback", map[string]any{
			"attempt_id": attemptID,
		})
		h.redirectWithError(w, r, "state_mismatch", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	bundle, err := h.zalo.ExchangeCode(ctx, code, attempt.CodeVerifier)
	if err != nil {
		log.LogErrorWithFields("auth", "Direct code exchange failed", map[string]any{
			"error": err.Error(),
		})
		h.redirectWithError(w, r, "token_exchange_failed", err.Error())
		return
	}

	profile, err := h.zalo.FetchProfile(ctx, bundle.OAuth2Token())
	if err != nil {
		log.LogErrorWithFields("auth", "Profile fetch failed", map[string]any{
			"error": err.Error(),
		})
		h.redirectWithError(w, r, "profile_fetch_failed", err.Error())
		return
	}

	h.stageAndRender(w, r, *bundle, *profile)
}

// ProxyCallbackHandler receives the relay's result on the origin domain,
// opens the envelope, and stages the identity for confirmation.
func (h *OriginHandlers) ProxyCallbackHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if proxyErr := q.Get("zalo_proxy_error"); proxyErr != "" {
		log.LogWarnWithFields("auth", "Relay reported an error", map[string]any{
			"error": proxyErr,
		})
		h.renderResult(w, resultPageData{
			Status:       "error",
			ErrorCode:    proxyErr,
			ErrorDetails: q.Get("error_details"),
			RedirectURL:  "/?zalo_error=" + proxyErr,
		})
		return
	}

	token := q.Get("zalo_proxy_token")
	if q.Get("success") != "1" || token == "" {
		h.renderResult(w, resultPageData{
			Status:      "error",
			ErrorCode:   "invalid_relay_response",
			RedirectURL: "/?zalo_error=invalid_relay_response",
		})
		return
	}

	var envelope RelayEnvelope
	if err := h.envelope.Open(token, &envelope); err != nil {
		// A verification failure here usually means the relay and origin
		// disagree on the shared secret
		log.LogErrorWithFields("auth", "Failed to open relay envelope", map[string]any{
			"error": err.Error(),
		})
		h.renderResult(w, resultPageData{
			Status:       "error",
			ErrorCode:    "relay_token_invalid",
			ErrorDetails: "relay token could not be verified; check the shared secret configuration",
			RedirectURL:  "/?zalo_error=relay_token_invalid",
		})
		return
	}

	if err := envelope.UserInfo.Validate(); err != nil {
		h.renderResult(w, resultPageData{
			Status:       "error",
			ErrorCode:    "invalid_profile",
			ErrorDetails: err.Error(),
			RedirectURL:  "/?zalo_error=invalid_profile",
		})
		return
	}

	h.stageAndRender(w, r, envelope.Token, envelope.UserInfo)
}

// stageAndRender stores verified identity data for the explicit
// confirmation step and renders the staging page. No account is created or
// modified here.
func (h *OriginHandlers) stageAndRender(w http.ResponseWriter, r *http.Request, bundle zalo.TokenBundle, profile zalo.Profile) {
	staged := storage.StagedLogin{
		Token:     bundle,
		UserInfo:  profile,
		Timestamp: time.Now(),
	}

	stagingID := uuid.NewString()
	if err := h.store.StoreStagedLogin(r.Context(), stagingID, staged); err != nil {
		log.LogErrorWithFields("auth", "Failed to stage login", map[string]any{
			"error": err.Error(),
		})
		h.redirectWithError(w, r, "internal_error", "")
		return
	}

	cookie.SetStaging(w, stagingID, h.cfg.StateTTL.Duration())

	payload, err := json.Marshal(staged)
	if err != nil {
		h.redirectWithError(w, r, "internal_error", "")
		return
	}

	log.LogInfoWithFields("auth", "Staged login for confirmation", map[string]any{
		"user_id": profile.ID,
	})
	h.renderResult(w, resultPageData{
		Status:      "ok",
		PayloadJSON: string(payload),
		RedirectURL: "/?zalo_confirm=1",
	})
}

func (h *OriginHandlers) renderResult(w http.ResponseWriter, data resultPageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := resultPageTemplate.Execute(w, data); err != nil {
		log.LogError("Failed to render result page: %v", err)
	}
}

// StagedHandler returns and consumes the staged identity for the
// confirmation step. One read per staging, enforced by the store.
func (h *OriginHandlers) StagedHandler(w http.ResponseWriter, r *http.Request) {
	stagingID, err := cookie.Get(r, cookie.StagingCookie)
	if err != nil {
		jsonwriter.WriteNotFound(w, "no staged login")
		return
	}

	staged, err := h.store.ConsumeStagedLogin(r.Context(), stagingID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonwriter.WriteNotFound(w, "staged login expired or already consumed")
			return
		}
		jsonwriter.WriteInternalServerError(w, "failed to read staged login")
		return
	}
	cookie.Clear(w, cookie.StagingCookie)

	_ = jsonwriter.Write(w, map[string]any{
		"success": true,
		"data":    staged,
	})
}

// ErrorPageHandler renders the human-readable error page
func (h *OriginHandlers) ErrorPageHandler(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("error")
	if code == "" {
		code = "unknown_error"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := errorPageTemplate.Execute(w, errorPageData{
		ErrorCode:    code,
		ErrorDetails: r.URL.Query().Get("error_details"),
	}); err != nil {
		log.LogError("Failed to render error page: %v", err)
	}
}
