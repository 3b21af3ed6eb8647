package resolve

import (
	"fmt"

	"cinemabot/offerservice/internal/locales"
)

// BuildQuery renders the locale's search query for one provider attempt.
// Pure and deterministic: identical inputs always probe the identical query,
// which keeps attempts replayable in tests.
func BuildQuery(profile locales.Profile, title, provider string) string {
	return fmt.Sprintf(profile.QueryTemplate, title, provider)
}
