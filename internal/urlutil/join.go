package urlutil

import (
	"net/url"
	"path"
)

// JoinPath safely joins URL paths, handling trailing and leading slashes
func JoinPath(base string, paths ...string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}

	allPaths := append([]string{u.Path}, paths...)
	u.Path = path.Join(allPaths...)

	return u.String(), nil
}

// WithQuery appends query parameters to a URL, preserving any existing ones.
// Used for every redirect-with-error and redirect-with-token the bridge
// produces, so destinations with their own query strings are not mangled.
func WithQuery(rawURL string, params map[string]string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}
