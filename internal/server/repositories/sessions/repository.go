// Package sessions persists the catalog's UploadSession records.
package sessions

import (
	"context"
	"time"

	"github.com/evidencevault/vault/internal/dbx"
	"github.com/evidencevault/vault/internal/server/models"
)

// Repository is the catalog's UploadSession surface (spec.md §4.7).
type Repository interface {
	Create(ctx context.Context, db dbx.DBTX, session *models.UploadSession) error
	FindByID(ctx context.Context, db dbx.DBTX, id string) (*models.UploadSession, error)

	// UpdateStatus transitions a session guarded by its current status,
	// enforcing invariant I4 (status is frozen once it leaves PENDING).
	// ok is false when the guard didn't match — the caller must reload
	// and treat the session as already terminal. artifactID, when
	// non-nil, is recorded alongside the transition so idempotent
	// complete calls can answer without re-deriving the digest.
	UpdateStatus(ctx context.Context, db dbx.DBTX, id string, expectedCurrent, next models.SessionStatus, completedAt *time.Time, artifactID *string) (ok bool, err error)
}
