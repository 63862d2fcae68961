package cookie

import (
	"net/http"
	"time"

	"github.com/seowriter/zalo-bridge/internal/envutil"
)

// Cookie names used by the bridge. Each login attempt gets its own attempt
// cookie so two concurrent logins from the same browser cannot clobber each
// other's verifier and state.
const (
	AttemptCookie = "zl_attempt"
	StagingCookie = "zl_staged"
)

// SetAttempt binds the browser to a login attempt for the duration of the
// authorization round trip
func SetAttempt(w http.ResponseWriter, attemptID string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     AttemptCookie,
		Value:    attemptID,
		Path:     "/",
		HttpOnly: true,
		Secure:   !envutil.IsDev(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

// SetStaging binds the browser to a staged login awaiting confirmation
func SetStaging(w http.ResponseWriter, stagingID string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     StagingCookie,
		Value:    stagingID,
		Path:     "/",
		HttpOnly: true,
		Secure:   !envutil.IsDev(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

// Clear removes a cookie by setting MaxAge to -1
func Clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:   name,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

// Get retrieves a cookie value from the request
func Get(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}
