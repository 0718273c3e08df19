package loan

import "time"

// Effective derives the read-time status of a loan. Pure: no storage
// access, deterministic for a given now.
func Effective(e Entity, now time.Time) EffectiveStatus {
	if e.Status == StatusReturned {
		return EffectiveReturned
	}
	if now.After(e.DueDate) {
		return EffectiveOverdue
	}
	return EffectiveOnLoan
}

// IsAvailable reports whether an item can be loaned given its current
// loan record, or nil when it has none. An overdue loan still counts as
// unavailable.
func IsAvailable(e *Entity, now time.Time) bool {
	if e == nil {
		return true
	}
	return Effective(*e, now) == EffectiveReturned
}
