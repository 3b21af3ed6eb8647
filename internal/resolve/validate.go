package resolve

import (
	"net/url"
	"strings"

	"cinemabot/offerservice/internal/domain"
	"cinemabot/offerservice/internal/locales"
)

// IsValidOffer decides whether a search result plausibly points at the real
// provider page for the movie. Two checks, both required:
//
//  1. the provider token (lowercased first word of the provider name) must
//     appear in one of the two leading host labels of the result URL;
//  2. when the locale requires a title keyword, the lowercased result title
//     must contain it.
//
// The host check alone lets through news articles that merely mention a
// provider; the keyword check cuts those without a maintained
// provider-to-domain table. Kept pure so the heuristic can be swapped or
// property-tested without touching the orchestration.
func IsValidOffer(result domain.WebResult, profile locales.Profile, provider string) bool {
	token := providerToken(provider)
	if token == "" {
		return false
	}
	sub, dom, ok := hostLabels(result.URL)
	if !ok {
		return false
	}
	if !strings.Contains(sub, token) && !strings.Contains(dom, token) {
		return false
	}
	keyword := strings.ToLower(strings.TrimSpace(profile.TitleMustContain))
	if keyword == "" {
		return true
	}
	return strings.Contains(strings.ToLower(result.Title), keyword)
}

// providerToken reduces a provider name to its recognizable domain fragment,
// e.g. "Amazon Prime Video" -> "amazon".
func providerToken(provider string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(provider)))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// hostLabels returns the first two dot-separated labels of the URL host,
// lowercased: subdomain and domain for a typical host, domain and TLD for a
// bare one.
func hostLabels(raw string) (string, string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", false
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return "", "", false
	}
	labels := strings.Split(host, ".")
	if len(labels) == 1 {
		return labels[0], "", true
	}
	return labels[0], labels[1], true
}
