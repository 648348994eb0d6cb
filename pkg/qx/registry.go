package qx

import "fmt"

// Asset pairs a tradable symbol with the identity that issued it.
type Asset struct {
	Symbol string
	Issuer string
}

// AssetRegistry maps tradable symbols to their issuing identities.
// It is built once at startup and never mutated afterwards, so lookups
// need no locking. Symbol order is insertion order; the first entry is
// the default selection.
type AssetRegistry struct {
	assets []Asset
	byName map[string]string
}

// NewAssetRegistry validates and indexes the given assets. It rejects
// duplicate symbols, symbols wider than the contract's 8-byte name
// field, empty issuers, and any pair of symbols whose packed asset ids
// collide.
func NewAssetRegistry(assets []Asset) (*AssetRegistry, error) {
	r := &AssetRegistry{
		assets: make([]Asset, 0, len(assets)),
		byName: make(map[string]string, len(assets)),
	}
	ids := make(map[int64]string, len(assets))

	for _, a := range assets {
		if a.Issuer == "" {
			return nil, fmt.Errorf("asset %s has empty issuer", a.Symbol)
		}
		if _, dup := r.byName[a.Symbol]; dup {
			return nil, fmt.Errorf("asset %s registered twice", a.Symbol)
		}
		id, err := AssetID(a.Symbol)
		if err != nil {
			return nil, fmt.Errorf("asset %s: %w", a.Symbol, err)
		}
		if prev, clash := ids[id]; clash {
			return nil, fmt.Errorf("asset id collision: %s and %s both pack to %d", prev, a.Symbol, id)
		}
		ids[id] = a.Symbol
		r.assets = append(r.assets, a)
		r.byName[a.Symbol] = a.Issuer
	}

	return r, nil
}

// ResolveIssuer returns the issuing identity for a symbol.
func (r *AssetRegistry) ResolveIssuer(symbol string) (string, error) {
	issuer, ok := r.byName[symbol]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAsset, symbol)
	}
	return issuer, nil
}

// Symbols returns all registered symbols in insertion order.
func (r *AssetRegistry) Symbols() []string {
	out := make([]string, len(r.assets))
	for i, a := range r.assets {
		out[i] = a.Symbol
	}
	return out
}

// DefaultSymbol returns the first-registered symbol.
func (r *AssetRegistry) DefaultSymbol() string {
	if len(r.assets) == 0 {
		return ""
	}
	return r.assets[0].Symbol
}

func (r *AssetRegistry) Len() int { return len(r.assets) }

// DefaultRegistry returns the assets listed on QX at the time of
// writing. Several early assets share the network's genesis issuer.
func DefaultRegistry() *AssetRegistry {
	genesis := "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAFXIB"
	r, err := NewAssetRegistry([]Asset{
		{Symbol: "QX", Issuer: genesis},
		{Symbol: "RANDOM", Issuer: genesis},
		{Symbol: "QUTIL", Issuer: genesis},
		{Symbol: "QTRY", Issuer: genesis},
		{Symbol: "MLM", Issuer: genesis},
		{Symbol: "QPOOL", Issuer: genesis},
		{Symbol: "QFT", Issuer: "TFUYVBXYIYBVTEMJHAJGEJOOZHJBQFVQLTBBKMEHPEVIZFXZRPEYFUWGTIWG"},
		{Symbol: "CFB", Issuer: "CFBMEMZOIDEXQAUXYYSZIURADQLAPWPMNJXQSNVQZAHYVOPYUKKJBJUCTVJL"},
		{Symbol: "QWALLET", Issuer: "QWALLETSGQVAGBHUCVVXWZXMBKQBPQQSHRYKZGEJWFVNUFCEDDPRMKTAUVHA"},
		{Symbol: "QCAP", Issuer: "QCAPWMYRSHLBJHSTTZQVCIBARVOASKDENASAKNOBRGPFWWKRCUVUAXYEZVOG"},
	})
	if err != nil {
		// Static data; a failure here is a programming error.
		panic(err)
	}
	return r
}
