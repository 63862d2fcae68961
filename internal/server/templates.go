package server

import (
	_ "embed"
	"html/template"
)

//go:embed templates/result.html
var resultPageTemplateHTML string

//go:embed templates/error.html
var errorPageTemplateHTML string

var resultPageTemplate = template.Must(template.New("result").Parse(resultPageTemplateHTML))
var errorPageTemplate = template.Must(template.New("error").Parse(errorPageTemplateHTML))

// resultPageData feeds the confirmation-staging page. The payload is
// rendered into a data attribute, never into inline script text, so the
// template engine's escaping covers anything attacker-controlled in the
// provider profile.
type resultPageData struct {
	Status       string // "ok" or "error"
	PayloadJSON  string
	ErrorCode    string
	ErrorDetails string
	RedirectURL  string
}

// errorPageData feeds the human-readable error page
type errorPageData struct {
	ErrorCode    string
	ErrorDetails string
}
