package domain

import "errors"

// ErrInvalidClaimant is returned by Claimant.Validate when the identity
// does not carry exactly one of user ID or guest-session ID.
var ErrInvalidClaimant = errors.New("claimant must carry exactly one of user id or guest session id")

// Claimant identifies who is attempting an operation on a special:
// either an authenticated user or an anonymous guest session, never
// both and never neither. The identity is issued and validated by the
// upstream auth collaborator; this subsystem treats it as opaque.
type Claimant struct {
	UserID         string
	GuestSessionID string

	// Audit metadata. Attached to ledger rows for forensics, never
	// used for eligibility decisions.
	IPAddress string
	UserAgent string
}

// UserClaimant builds an authenticated-user identity.
func UserClaimant(userID string) Claimant { return Claimant{UserID: userID} }

// GuestClaimant builds a guest-session identity.
func GuestClaimant(sessionID string) Claimant { return Claimant{GuestSessionID: sessionID} }

// Validate enforces the exactly-one-of invariant.
func (c Claimant) Validate() error {
	if (c.UserID == "") == (c.GuestSessionID == "") {
		return ErrInvalidClaimant
	}
	return nil
}

// IsGuest reports whether the identity is a guest session.
func (c Claimant) IsGuest() bool { return c.GuestSessionID != "" }

// Key returns a stable string identity usable as a map or index key,
// namespaced so user and guest IDs cannot collide.
func (c Claimant) Key() string {
	if c.IsGuest() {
		return "guest:" + c.GuestSessionID
	}
	return "user:" + c.UserID
}

// UserIDPtr returns the user ID as a nullable column value.
func (c Claimant) UserIDPtr() *string {
	if c.UserID == "" {
		return nil
	}
	v := c.UserID
	return &v
}

// GuestSessionIDPtr returns the guest-session ID as a nullable column value.
func (c Claimant) GuestSessionIDPtr() *string {
	if c.GuestSessionID == "" {
		return nil
	}
	v := c.GuestSessionID
	return &v
}
