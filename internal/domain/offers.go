package domain

import "time"

// MovieIdentity is the resolved identity of a single movie as reported by
// the metadata service. Immutable once fetched; scoped to one resolution call.
type MovieIdentity struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Year  string `json:"year"`
}

type OfferTier string

const (
	TierFree     OfferTier = "free"
	TierFlatrate OfferTier = "flatrate"
	TierRent     OfferTier = "rent"
	TierBuy      OfferTier = "buy"
)

// TierOrder is the fixed walk priority for offer tiers: cheaper and more
// immediately actionable options come first. The resolver never deviates
// from this order.
func TierOrder() [4]OfferTier {
	return [4]OfferTier{TierFree, TierFlatrate, TierRent, TierBuy}
}

// TieredProviders holds the provider names a locale carries per tier, in the
// order returned by the metadata service. A nil slice means the tier has no
// offers, which is not an error.
type TieredProviders struct {
	Free     []string `json:"free,omitempty"`
	Flatrate []string `json:"flatrate,omitempty"`
	Rent     []string `json:"rent,omitempty"`
	Buy      []string `json:"buy,omitempty"`
}

func (t TieredProviders) ForTier(tier OfferTier) []string {
	switch tier {
	case TierFree:
		return t.Free
	case TierFlatrate:
		return t.Flatrate
	case TierRent:
		return t.Rent
	case TierBuy:
		return t.Buy
	default:
		return nil
	}
}

func (t TieredProviders) Empty() bool {
	return len(t.Free) == 0 && len(t.Flatrate) == 0 && len(t.Rent) == 0 && len(t.Buy) == 0
}

// WebResult is a single untrusted record from the web search backend.
// Never persisted.
type WebResult struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Offer is a validated watch link for one locale, with provenance.
type Offer struct {
	URL      string    `json:"url"`
	Provider string    `json:"provider"`
	Tier     OfferTier `json:"tier"`
}

// OfferMap maps a locale code to the first offer that passed validation.
// A configured locale missing from the map means "no offer found".
type OfferMap map[string]Offer

// SearchBackendDiagnostics reports per-region health of the web search
// backend, for operators only; it never influences the resolution walk.
type SearchBackendDiagnostics struct {
	Region        string     `json:"region"`
	LastQuery     string     `json:"lastQuery,omitempty"`
	LastError     string     `json:"lastError,omitempty"`
	LastSuccessAt *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt *time.Time `json:"lastFailureAt,omitempty"`
	LastLatencyMS int64      `json:"lastLatencyMs,omitempty"`
	LastTimeout   bool       `json:"lastTimeout,omitempty"`
	TotalRequests int64      `json:"totalRequests,omitempty"`
	TotalFailures int64      `json:"totalFailures,omitempty"`
	TimeoutCount  int64      `json:"timeoutCount,omitempty"`
}

// HistoryEntry records one answered user query.
type HistoryEntry struct {
	ChatID     string    `json:"chatId"`
	Query      string    `json:"query"`
	MovieTitle string    `json:"movieTitle"`
	At         time.Time `json:"at"`
}

// MovieCount is one row of the per-chat statistics: how often a movie was
// the answer to a query.
type MovieCount struct {
	Title string `json:"title"`
	Count int64  `json:"count"`
}
