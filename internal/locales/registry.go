package locales

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/language"
)

// Profile describes one target storefront market. Profiles are loaded once
// at process start and are read-only afterwards.
type Profile struct {
	// Code is the locale key, matching the region keys of the metadata
	// service's provider payload (e.g. "US", "RU", "JP").
	Code string `json:"code"`
	// QueryTemplate carries exactly two positional %s placeholders:
	// resolved title first, provider name second.
	QueryTemplate string `json:"queryTemplate"`
	// TitleMustContain is a locale-language keyword the result title must
	// contain for a hit to be trusted. Empty disables the check; the
	// asymmetry across locales is deliberate and data-driven.
	TitleMustContain string `json:"titleMustContain"`
	// SearchRegion is the region code handed to the web search backend.
	SearchRegion string `json:"searchRegion"`
	// TranslationLanguage is the BCP 47 tag used to pick the localized
	// title from the metadata service's translation payload.
	TranslationLanguage string `json:"translationLanguage"`
	// IgnoredProviders lists storefronts that aggregate rather than host;
	// they are never searched.
	IgnoredProviders []string `json:"ignoredProviders"`
}

// Ignores reports whether the provider is on this locale's deny-list.
// Matching is case-insensitive.
func (p Profile) Ignores(provider string) bool {
	name := strings.ToLower(strings.TrimSpace(provider))
	if name == "" {
		return true
	}
	for _, ignored := range p.IgnoredProviders {
		if strings.ToLower(strings.TrimSpace(ignored)) == name {
			return true
		}
	}
	return false
}

// Registry is the immutable set of configured locales. Iteration order is
// the declaration order of the profiles.
type Registry struct {
	profiles []Profile
	byCode   map[string]Profile
}

func NewRegistry(profiles []Profile) (*Registry, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("at least one locale profile is required")
	}
	byCode := make(map[string]Profile, len(profiles))
	ordered := make([]Profile, 0, len(profiles))
	for _, profile := range profiles {
		profile.Code = strings.ToUpper(strings.TrimSpace(profile.Code))
		if profile.Code == "" {
			return nil, fmt.Errorf("locale profile with empty code")
		}
		if _, exists := byCode[profile.Code]; exists {
			return nil, fmt.Errorf("duplicate locale profile %q", profile.Code)
		}
		if err := validateTemplate(profile.QueryTemplate); err != nil {
			return nil, fmt.Errorf("locale %s: %w", profile.Code, err)
		}
		if strings.TrimSpace(profile.SearchRegion) == "" {
			return nil, fmt.Errorf("locale %s: search region is required", profile.Code)
		}
		if _, err := language.Parse(profile.TranslationLanguage); err != nil {
			return nil, fmt.Errorf("locale %s: invalid translation language %q: %w",
				profile.Code, profile.TranslationLanguage, err)
		}
		byCode[profile.Code] = profile
		ordered = append(ordered, profile)
	}
	return &Registry{profiles: ordered, byCode: byCode}, nil
}

// Load builds a registry from the JSON file at path, or from the built-in
// defaults when path is empty.
func Load(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return NewRegistry(DefaultProfiles())
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read locales file: %w", err)
	}
	var profiles []Profile
	if err := json.Unmarshal(payload, &profiles); err != nil {
		return nil, fmt.Errorf("parse locales file: %w", err)
	}
	return NewRegistry(profiles)
}

func (r *Registry) Profiles() []Profile {
	return append([]Profile(nil), r.profiles...)
}

func (r *Registry) Lookup(code string) (Profile, bool) {
	profile, ok := r.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return profile, ok
}

func (r *Registry) Len() int {
	return len(r.profiles)
}

// DefaultProfiles returns the built-in locale table. JP intentionally has no
// required title keyword.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			Code:                "US",
			QueryTemplate:       "watch %s online on %s",
			TitleMustContain:    "watch",
			SearchRegion:        "us-en",
			TranslationLanguage: "en-US",
			IgnoredProviders:    []string{"JustWatch"},
		},
		{
			Code:                "RU",
			QueryTemplate:       "%s смотреть онлайн %s",
			TitleMustContain:    "смотреть",
			SearchRegion:        "ru-ru",
			TranslationLanguage: "ru-RU",
			IgnoredProviders:    []string{"JustWatch"},
		},
		{
			Code:                "JP",
			QueryTemplate:       "%s %s 動画 配信",
			TitleMustContain:    "",
			SearchRegion:        "jp-jp",
			TranslationLanguage: "ja-JP",
			IgnoredProviders:    []string{"JustWatch"},
		},
	}
}

func validateTemplate(template string) error {
	if strings.TrimSpace(template) == "" {
		return fmt.Errorf("query template is required")
	}
	verbs := 0
	for i := 0; i+1 < len(template); i++ {
		if template[i] != '%' {
			continue
		}
		switch template[i+1] {
		case 's':
			verbs++
			i++
		case '%':
			i++
		default:
			return fmt.Errorf("query template %q: only %%s placeholders are allowed", template)
		}
	}
	if verbs != 2 {
		return fmt.Errorf("query template %q: want exactly 2 %%s placeholders, have %d", template, verbs)
	}
	return nil
}
