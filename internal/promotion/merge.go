package promotion

import "time"

// Effect is what a purchasable product grants: one or more kinds, each
// extended to now+DurationDays.
type Effect struct {
	Kinds        []Kind
	DurationDays int
}

// Merge folds effect into current. A kind's until only ever moves forward:
// a grant that would end before the existing one is ignored for that kind.
// Unknown kinds are skipped. LastPromotedAt is set to now when a boost-class
// kind moved, and ShowStripes is recomputed from the result.
func Merge(current State, effect Effect, now time.Time) State {
	now = now.UTC()
	next := current.Clone()
	candidate := now.Add(time.Duration(effect.DurationDays) * 24 * time.Hour)

	freshened := false
	for _, k := range effect.Kinds {
		if !k.Valid() {
			continue
		}
		// compare against next so a kind listed twice in one bundle stays monotonic
		if prev := next.Until(k); prev != nil && !candidate.After(*prev) {
			continue
		}
		next.setUntil(k, candidate)
		if k.BoostClass() {
			freshened = true
		}
	}
	if freshened {
		next.LastPromotedAt = &now
	}
	next.ShowStripes = next.IsActive(KindDiamond, now) || next.IsActive(KindPlatinum, now)
	return next
}
