// Package models defines the persistent records of the catalog: Artifact
// and UploadSession.
package models

import "time"

// ScanStatus tracks antivirus scan state independently of the integrity
// state machine. The scanner itself is an external collaborator; the
// catalog only stores the verdict.
type ScanStatus string

const (
	ScanPending  ScanStatus = "PENDING"
	ScanClean    ScanStatus = "CLEAN"
	ScanInfected ScanStatus = "INFECTED"
)

// Artifact is the authoritative record of a unique stored blob. Digest,
// SizeBytes, BucketKey and CreatedAt are never mutated after creation
// (invariant I3); Digest is unique across all Artifacts (invariant I1).
type Artifact struct {
	ID            string
	Digest        string
	SizeBytes     int64
	Mime          string
	Filename      string
	BucketKey     string
	CidV1         *string
	UploaderOrgID string
	ProjectID     string
	IssuanceID    string
	MetaJSON      string
	VerifiedAt    time.Time
	ScanStatus    ScanStatus
	CreatedAt     time.Time
}
