package model

import "time"

// ExternalID is the stable, provider-issued identifier of a user
type ExternalID int64

// SessionHandle is an opaque token naming one authenticated session
type SessionHandle string

// VerifiedIdentity is the user record extracted from a verified assertion.
// It is only ever produced by the identity verifier (or test-mode auth).
type VerifiedIdentity struct {
	ExternalID    ExternalID
	DisplayName   string
	SecondaryName string // optional, empty when absent
	Handle        string // optional, empty when absent
	AvatarURL     string // optional, empty when absent
}

// FullName joins the display and secondary names
func (v VerifiedIdentity) FullName() string {
	if v.SecondaryName == "" {
		return v.DisplayName
	}
	return v.DisplayName + " " + v.SecondaryName
}

// Participant is a known user of the game.
// IsOperator is fixed at first registration and never changes afterwards.
type Participant struct {
	Identity    VerifiedIdentity
	IsOperator  bool
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}

// ID returns the participant's external ID
func (p Participant) ID() ExternalID {
	return p.Identity.ExternalID
}

// SessionBinding pairs a live session handle with the participant it resolves to
type SessionBinding struct {
	Handle      SessionHandle
	Participant Participant
}
