package resolve

import (
	"strings"

	"cinemabot/offerservice/internal/domain"
	"cinemabot/offerservice/internal/locales"
)

// ResolveTitles picks the query title for every configured locale: the
// localized title when the metadata service has a non-empty translation for
// the locale's language, the canonical title otherwise. Either way the
// release year is appended. Translation entries for unconfigured locales are
// ignored. This never fails; missing data always degrades to the fallback.
func ResolveTitles(identity domain.MovieIdentity, translations map[string]string, registry *locales.Registry) map[string]string {
	titles := make(map[string]string, registry.Len())
	for _, profile := range registry.Profiles() {
		titles[profile.Code] = localizedTitle(identity, translations[profile.TranslationLanguage])
	}
	return titles
}

func localizedTitle(identity domain.MovieIdentity, translated string) string {
	title := strings.TrimSpace(translated)
	if title == "" {
		title = strings.TrimSpace(identity.Title)
	}
	year := strings.TrimSpace(identity.Year)
	if year == "" {
		return title
	}
	return title + " " + year
}
