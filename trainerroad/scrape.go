package trainerroad

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// defaultRejectionReason is used when the login page gives no readable reason
const defaultRejectionReason = "invalid credentials"

// maxReasonLength bounds a scraped rejection reason in bytes
const maxReasonLength = 200

// TokenExtractor finds the anti-forgery token in a login page
type TokenExtractor interface {
	ExtractToken(html []byte) (string, error)
}

// RegexpExtractor extracts the hidden field value with a pattern match. It does not parse HTML.
type RegexpExtractor struct {
	patterns []*regexp.Regexp
}

// NewRegexpExtractor creates an extractor for the hidden input with the given name
func NewRegexpExtractor(field string) *RegexpExtractor {
	name := regexp.QuoteMeta(field)
	return &RegexpExtractor{
		patterns: []*regexp.Regexp{
			// name before value
			regexp.MustCompile(`<input[^>]*\bname=["']` + name + `["'][^>]*\bvalue=["']([^"']+)["']`),
			// value before name
			regexp.MustCompile(`<input[^>]*\bvalue=["']([^"']+)["'][^>]*\bname=["']` + name + `["']`),
		},
	}
}

// ExtractToken returns the token or ErrScrape. It never returns an empty token.
func (e *RegexpExtractor) ExtractToken(html []byte) (string, error) {
	for _, re := range e.patterns {
		matches := re.FindSubmatch(html)
		if len(matches) >= 2 {
			if token := strings.TrimSpace(string(matches[1])); token != "" {
				return token, nil
			}
		}
	}
	return "", ErrScrape
}

// rejectionSelectors are the validation-error fragments known to appear on a re-rendered login page
var rejectionSelectors = []string{
	".validation-summary-errors li",
	".validation-summary-errors",
	".field-validation-error",
	".alert-danger",
	".error-message",
}

// rejectionFallback is tried when goquery finds nothing
var rejectionFallback = regexp.MustCompile(`class="[^"]*(?:validation-summary-errors|field-validation-error|alert-danger)[^"]*"[^>]*>(?:\s*<[^>]+>)*\s*([^<]+)`)

// ExtractRejectionReason makes a best-effort attempt at reading a human readable
// reason from a rejected login response. It always returns a non-empty message.
func ExtractRejectionReason(html []byte) string {
	if reason := reasonFromDocument(html); reason != "" {
		return reason
	}
	if matches := rejectionFallback.FindSubmatch(html); len(matches) >= 2 {
		if reason := collapseSpace(string(matches[1])); reason != "" {
			return truncate(reason, maxReasonLength)
		}
	}
	return defaultRejectionReason
}

// reasonFromDocument looks for the first non-empty validation message
func reasonFromDocument(html []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return ""
	}
	var reason string
	for _, selector := range rejectionSelectors {
		doc.Find(selector).EachWithBreak(func(i int, s *goquery.Selection) bool {
			reason = collapseSpace(s.Text())
			return reason == ""
		})
		if reason != "" {
			return truncate(reason, maxReasonLength)
		}
	}
	return ""
}

// collapseSpace trims and collapses runs of whitespace
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// scrapeError adds context about which field was searched for
func scrapeError(field string) error {
	return fmt.Errorf("%w (field %q)", ErrScrape, field)
}
