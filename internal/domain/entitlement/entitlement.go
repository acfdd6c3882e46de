// Package entitlement models premium grants.
package entitlement

import "time"

// Entitlement is a user's premium record. A nil expiry means non-expiring.
type Entitlement struct {
	userID    string
	grantedAt time.Time
	expiresAt *time.Time
}

// New builds the record installed by a grant at the given instant.
func New(userID string, grantedAt time.Time, d Duration) Entitlement {
	e := Entitlement{userID: userID, grantedAt: grantedAt}
	if !d.IsUnlimited() {
		exp := grantedAt.AddDate(0, 0, d.Days())
		e.expiresAt = &exp
	}
	return e
}

// Restore rebuilds a record read from storage.
func Restore(userID string, grantedAt time.Time, expiresAt *time.Time) Entitlement {
	e := Entitlement{userID: userID, grantedAt: grantedAt}
	if expiresAt != nil {
		exp := *expiresAt
		e.expiresAt = &exp
	}
	return e
}

// UserID returns the owner.
func (e Entitlement) UserID() string { return e.userID }

// GrantedAt returns the instant of the last grant.
func (e Entitlement) GrantedAt() time.Time { return e.grantedAt }

// ExpiresAt returns the expiry and false when the grant never expires.
func (e Entitlement) ExpiresAt() (time.Time, bool) {
	if e.expiresAt == nil {
		return time.Time{}, false
	}
	return *e.expiresAt, true
}

// IsUnlimited reports whether the grant never expires.
func (e Entitlement) IsUnlimited() bool { return e.expiresAt == nil }

// ActiveAt reports whether the grant is in force at now. Expiry is exclusive.
func (e Entitlement) ActiveAt(now time.Time) bool {
	return e.expiresAt == nil || now.Before(*e.expiresAt)
}

// RemainingDays returns whole days left at now, -1 for unlimited, 0 once expired.
func (e Entitlement) RemainingDays(now time.Time) int {
	if e.expiresAt == nil {
		return -1
	}
	left := e.expiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(left / (24 * time.Hour))
}
