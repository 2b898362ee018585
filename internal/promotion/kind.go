// Package promotion holds the promotion value model for yard cars: the per-kind
// grant windows, the merge rule that folds a purchased product into them and
// the ranking tier derived from them.
package promotion

import "strings"

// Kind is a promotable kind a product can grant.
type Kind string

const (
	KindBoost        Kind = "boost"
	KindHighlight    Kind = "highlight"
	KindExposurePlus Kind = "exposure_plus"
	KindPlatinum     Kind = "platinum"
	KindDiamond      Kind = "diamond"
)

// Kinds lists every kind known to this build, in storage order.
var Kinds = []Kind{KindBoost, KindHighlight, KindExposurePlus, KindPlatinum, KindDiamond}

// Valid reports whether k is a kind this build understands.
func (k Kind) Valid() bool {
	switch k {
	case KindBoost, KindHighlight, KindExposurePlus, KindPlatinum, KindDiamond:
		return true
	}
	return false
}

// BoostClass reports whether extending k refreshes the freshness marker used
// for ordering inside a tier.
func (k Kind) BoostClass() bool {
	return k == KindBoost || k == KindPlatinum || k == KindDiamond
}

// ParseKind accepts the storage name and the camelCase spelling used by older
// mobile clients ("exposurePlus").
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "boost":
		return KindBoost, true
	case "highlight":
		return KindHighlight, true
	case "exposure_plus", "exposureplus":
		return KindExposurePlus, true
	case "platinum":
		return KindPlatinum, true
	case "diamond":
		return KindDiamond, true
	}
	return "", false
}

// ParseKinds keeps the kinds it recognises and drops the rest.
func ParseKinds(ss []string) []Kind {
	out := make([]Kind, 0, len(ss))
	for _, s := range ss {
		if k, ok := ParseKind(s); ok {
			out = append(out, k)
		}
	}
	return out
}
