package models

import "time"

// SessionStatus is the UploadSession state machine's current state.
// Terminal states (Complete, Aborted, Expired) never transition out.
type SessionStatus string

const (
	SessionPending  SessionStatus = "PENDING"
	SessionComplete SessionStatus = "COMPLETE"
	SessionAborted  SessionStatus = "ABORTED"
	SessionExpired  SessionStatus = "EXPIRED"
)

// IsTerminal reports whether s admits no further transitions.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionComplete || s == SessionAborted || s == SessionExpired
}

// UploadSession is the short-lived ticket coordinating the two-phase
// upload protocol. Once Status leaves Pending, Status and CompletedAt are
// frozen (invariant I4).
type UploadSession struct {
	ID             string
	Token          string
	DeclaredDigest *string
	Filename       string
	ExpectedSize   *int64
	MimeHint       string
	BucketKey      string
	UploaderOrgID  string
	ProjectID      string
	IssuanceID     string
	RequestedBy    string
	Status         SessionStatus
	// ArtifactID is set once the session resolves to an Artifact (either
	// freshly created or a dedup hit), so a repeated complete call for the
	// same uploadId can return the same descriptor without re-deriving it.
	ArtifactID  *string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	CompletedAt *time.Time
}
