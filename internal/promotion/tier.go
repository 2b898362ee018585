package promotion

import (
	"fmt"
	"time"
)

// Tier is the ranking bucket of a listing. Higher values rank first.
type Tier int

const (
	TierNone Tier = iota
	TierBasic
	TierPlus
	TierPremium
	TierPlatinum
	TierDiamond
)

var tierNames = [...]string{"none", "basic", "plus", "premium", "platinum", "diamond"}

func (t Tier) String() string {
	if t < TierNone || t > TierDiamond {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

// ParseTier is the inverse of String.
func ParseTier(s string) (Tier, error) {
	for i, n := range tierNames {
		if n == s {
			return Tier(i), nil
		}
	}
	return TierNone, fmt.Errorf("unknown tier %q", s)
}

func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tier) UnmarshalText(b []byte) error {
	v, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Resolve maps a snapshot to its tier at now. First match wins:
// diamond, platinum, boost+highlight (premium), exposure plus (plus),
// highlight (basic), none. Stored tiers go stale as grants expire, so read
// paths call this again instead of trusting a persisted value.
func Resolve(s State, now time.Time) Tier {
	switch {
	case s.IsActive(KindDiamond, now):
		return TierDiamond
	case s.IsActive(KindPlatinum, now):
		return TierPlatinum
	case s.IsActive(KindBoost, now) && s.IsActive(KindHighlight, now):
		return TierPremium
	case s.IsActive(KindExposurePlus, now):
		return TierPlus
	case s.IsActive(KindHighlight, now):
		return TierBasic
	}
	return TierNone
}
