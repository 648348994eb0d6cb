package qx

import (
	"errors"
	"testing"
)

func TestRegistryResolveIssuer(t *testing.T) {
	r, err := NewAssetRegistry([]Asset{
		{Symbol: "QX", Issuer: "ISSUER1"},
		{Symbol: "QFT", Issuer: "ISSUER2"},
	})
	if err != nil {
		t.Fatal(err)
	}

	issuer, err := r.ResolveIssuer("QFT")
	if err != nil {
		t.Fatal(err)
	}
	if issuer != "ISSUER2" {
		t.Errorf("issuer = %s, want ISSUER2", issuer)
	}

	if _, err := r.ResolveIssuer("NOPE"); !errors.Is(err, ErrUnknownAsset) {
		t.Errorf("err = %v, want ErrUnknownAsset", err)
	}
}

func TestRegistryPreservesInsertionOrder(t *testing.T) {
	r, err := NewAssetRegistry([]Asset{
		{Symbol: "ZZZ", Issuer: "I1"},
		{Symbol: "AAA", Issuer: "I2"},
		{Symbol: "MMM", Issuer: "I3"},
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"ZZZ", "AAA", "MMM"}
	got := r.Symbols()
	if len(got) != len(want) {
		t.Fatalf("symbols = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("symbols[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if r.DefaultSymbol() != "ZZZ" {
		t.Errorf("default = %s, want ZZZ", r.DefaultSymbol())
	}
}

func TestRegistryRejectsBadAssets(t *testing.T) {
	tests := []struct {
		name   string
		assets []Asset
	}{
		{name: "empty issuer", assets: []Asset{{Symbol: "QX", Issuer: ""}}},
		{name: "duplicate symbol", assets: []Asset{{Symbol: "QX", Issuer: "A"}, {Symbol: "QX", Issuer: "B"}}},
		{name: "symbol too long", assets: []Asset{{Symbol: "WAYTOOLONG", Issuer: "A"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewAssetRegistry(tt.assets); err == nil {
				t.Error("expected error")
			}
		})
	}
}

// The default registry must have no asset-id collisions after
// little-endian packing. This verifies the concrete symbol set, not an
// assumption about symbol sets in general.
func TestDefaultRegistryInjective(t *testing.T) {
	r := DefaultRegistry()

	if r.Len() == 0 {
		t.Fatal("default registry is empty")
	}

	seen := make(map[int64]string)
	for _, symbol := range r.Symbols() {
		id, err := AssetID(symbol)
		if err != nil {
			t.Fatalf("AssetID(%q): %v", symbol, err)
		}
		if prev, ok := seen[id]; ok {
			t.Errorf("collision: %s and %s both pack to %d", prev, symbol, id)
		}
		seen[id] = symbol

		issuer, err := r.ResolveIssuer(symbol)
		if err != nil {
			t.Fatal(err)
		}
		if len(issuer) != IdentityLength {
			t.Errorf("issuer of %s has length %d, want %d", symbol, len(issuer), IdentityLength)
		}
	}
}
