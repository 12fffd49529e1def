// Package artifacts persists the catalog's Artifact records.
package artifacts

import (
	"context"
	"time"

	"github.com/evidencevault/vault/internal/dbx"
	"github.com/evidencevault/vault/internal/server/models"
)

// Repository is the catalog's Artifact surface (spec.md §4.7). Every
// method accepts a dbx.DBTX so callers can run it inside or outside a
// transaction.
type Repository interface {
	FindByDigest(ctx context.Context, db dbx.DBTX, digest string) (*models.Artifact, error)
	FindByID(ctx context.Context, db dbx.DBTX, id string) (*models.Artifact, error)

	// CreateIfAbsent atomically inserts artifact unless an Artifact with
	// the same digest already exists, in which case the existing row is
	// returned and created is false (invariant I1).
	CreateIfAbsent(ctx context.Context, db dbx.DBTX, artifact *models.Artifact) (result *models.Artifact, created bool, err error)

	SetCID(ctx context.Context, db dbx.DBTX, id string, cid *string) error
	SetScanStatus(ctx context.Context, db dbx.DBTX, id string, status models.ScanStatus, verifiedAt time.Time) error

	ListCreatedBefore(ctx context.Context, db dbx.DBTX, cutoff time.Time) ([]*models.Artifact, error)
	Delete(ctx context.Context, db dbx.DBTX, id string) error
}
