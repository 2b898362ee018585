package promotion

import "time"

// State is the promotion snapshot embedded in a yard car. A nil until means
// the kind was never granted.
type State struct {
	BoostUntil        *time.Time `json:"boost_until,omitempty"`
	HighlightUntil    *time.Time `json:"highlight_until,omitempty"`
	ExposurePlusUntil *time.Time `json:"exposure_plus_until,omitempty"`
	PlatinumUntil     *time.Time `json:"platinum_until,omitempty"`
	DiamondUntil      *time.Time `json:"diamond_until,omitempty"`

	LastPromotedAt *time.Time `json:"last_promoted_at,omitempty"`
	ShowStripes    bool       `json:"show_stripes"`
}

// Until returns the end of the grant window for k, or nil.
func (s State) Until(k Kind) *time.Time {
	switch k {
	case KindBoost:
		return s.BoostUntil
	case KindHighlight:
		return s.HighlightUntil
	case KindExposurePlus:
		return s.ExposurePlusUntil
	case KindPlatinum:
		return s.PlatinumUntil
	case KindDiamond:
		return s.DiamondUntil
	}
	return nil
}

func (s *State) setUntil(k Kind, t time.Time) {
	switch k {
	case KindBoost:
		s.BoostUntil = &t
	case KindHighlight:
		s.HighlightUntil = &t
	case KindExposurePlus:
		s.ExposurePlusUntil = &t
	case KindPlatinum:
		s.PlatinumUntil = &t
	case KindDiamond:
		s.DiamondUntil = &t
	}
}

// IsActive reports whether k has a grant ending strictly after now.
func (s State) IsActive(k Kind, now time.Time) bool {
	u := s.Until(k)
	return u != nil && u.After(now)
}

// Clone returns a copy that shares no pointers with s.
func (s State) Clone() State {
	out := State{ShowStripes: s.ShowStripes}
	for _, k := range Kinds {
		if u := s.Until(k); u != nil {
			out.setUntil(k, *u)
		}
	}
	if s.LastPromotedAt != nil {
		t := *s.LastPromotedAt
		out.LastPromotedAt = &t
	}
	return out
}

// Equal compares two snapshots instant by instant.
func (s State) Equal(o State) bool {
	if s.ShowStripes != o.ShowStripes || !sameInstant(s.LastPromotedAt, o.LastPromotedAt) {
		return false
	}
	for _, k := range Kinds {
		if !sameInstant(s.Until(k), o.Until(k)) {
			return false
		}
	}
	return true
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
