package domain

import "testing"

func TestTierOrder(t *testing.T) {
	order := TierOrder()
	want := [4]OfferTier{TierFree, TierFlatrate, TierRent, TierBuy}
	if order != want {
		t.Fatalf("got %v, want %v", order, want)
	}
}

func TestTieredProvidersForTier(t *testing.T) {
	tiers := TieredProviders{
		Free:     []string{"Tubi"},
		Flatrate: []string{"Netflix"},
		Rent:     []string{"Apple TV"},
		Buy:      []string{"Google Play Movies"},
	}

	tests := []struct {
		tier OfferTier
		want string
	}{
		{TierFree, "Tubi"},
		{TierFlatrate, "Netflix"},
		{TierRent, "Apple TV"},
		{TierBuy, "Google Play Movies"},
	}
	for _, tt := range tests {
		got := tiers.ForTier(tt.tier)
		if len(got) != 1 || got[0] != tt.want {
			t.Errorf("ForTier(%s): got %v, want [%s]", tt.tier, got, tt.want)
		}
	}

	if got := tiers.ForTier(OfferTier("ads")); got != nil {
		t.Errorf("unknown tier: got %v, want nil", got)
	}
}

func TestTieredProvidersEmpty(t *testing.T) {
	if !(TieredProviders{}).Empty() {
		t.Errorf("zero value must be empty")
	}
	if (TieredProviders{Buy: []string{"iTunes"}}).Empty() {
		t.Errorf("non-empty buy tier must not be empty")
	}
}
