package envutil

import (
	"os"
	"strings"
)

// IsDev reports whether the process runs in a development environment.
// ZALO_BRIDGE_ENV takes precedence; the REPL_ID fallback detects the
// development hosting platform, where cookies cannot be marked Secure and
// the external domain comes from the environment instead of config.
func IsDev() bool {
	env := strings.ToLower(os.Getenv("ZALO_BRIDGE_ENV"))
	if env == "development" || env == "dev" {
		return true
	}
	return os.Getenv("REPL_ID") != ""
}

// DevDomain returns the externally reachable base URL when running on the
// development hosting platform, or "" when it cannot be determined.
func DevDomain() string {
	if domains := os.Getenv("REPLIT_DOMAINS"); domains != "" {
		first := strings.Split(domains, ",")[0]
		return "https://" + strings.TrimSpace(first)
	}
	if slug := os.Getenv("REPL_SLUG"); slug != "" {
		if owner := os.Getenv("REPL_OWNER"); owner != "" {
			return "https://" + slug + "." + owner + ".repl.co"
		}
	}
	return ""
}
