package liquidity

const nativeKeySide = "_._"

// TokenPair holds two assets in the order a datum declared them.
type TokenPair struct {
	A Asset
	B Asset
}

// Canonical returns the pair in canonical order and whether A and B were
// swapped to get there. ok is false for a pair of identical assets.
func (p TokenPair) Canonical() (canonical TokenPair, swapped bool, ok bool) {
	switch c := p.A.Compare(p.B); {
	case c < 0:
		return p, false, true
	case c > 0:
		return TokenPair{A: p.B, B: p.A}, true, true
	}
	return TokenPair{}, false, false
}

// Key is the order independent identity of the pair:
//
//	native + token:  _._:_<policy>.<name>_
//	token + token:   <lower id>:<higher id>
func (p TokenPair) Key() (string, bool) {
	c, _, ok := p.Canonical()
	if !ok {
		return "", false
	}
	if c.A.IsNative() {
		return nativeKeySide + ":_" + c.B.ID() + "_", true
	}
	return c.A.ID() + ":" + c.B.ID(), true
}
