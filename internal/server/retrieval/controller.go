// Package retrieval implements the read side of the catalog (spec.md
// §4.9): resolving a digest to a presigned download, to its metadata
// descriptor, or to a cheap existence probe.
package retrieval

import (
	"context"
	"database/sql"
	"time"

	"github.com/evidencevault/vault/internal/apperr"
	"github.com/evidencevault/vault/internal/digestx"
	"github.com/evidencevault/vault/internal/metrics"
	"github.com/evidencevault/vault/internal/server/models"
	"github.com/evidencevault/vault/internal/server/repositories/artifacts"
	"github.com/evidencevault/vault/internal/server/storage"
)

type Controller struct {
	db          *sql.DB
	artifacts   artifacts.Repository
	storage     storage.Port
	metrics     *metrics.Registry
	downloadTTL time.Duration
}

func NewController(db *sql.DB, artifactsRepo artifacts.Repository, store storage.Port, metricsRegistry *metrics.Registry, downloadTTL time.Duration) *Controller {
	return &Controller{db: db, artifacts: artifactsRepo, storage: store, metrics: metricsRegistry, downloadTTL: downloadTTL}
}

func (c *Controller) lookup(ctx context.Context, digest string) (*models.Artifact, error) {
	digest = digestx.Normalize(digest)
	if !digestx.IsValidDigest(digest) {
		return nil, apperr.New(apperr.KindValidation, "digest is not a valid sha256 hex digest")
	}
	artifact, err := c.artifacts.FindByDigest(ctx, c.db, digest)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return nil, apperr.New(apperr.KindNotFound, "no artifact for digest")
	}
	return artifact, nil
}

// Download resolves digest to a presigned GET URL (GET
// /v1/artifacts/{digest}). Callers decide whether authentication is
// required before invoking this — PUBLIC_READ governs that at the HTTP
// layer, not here.
func (c *Controller) Download(ctx context.Context, digest string) (string, error) {
	artifact, err := c.lookup(ctx, digest)
	if err != nil {
		return "", err
	}
	url, err := c.storage.Presign(ctx, storage.OpGet, artifact.BucketKey, c.downloadTTL)
	if err != nil {
		return "", apperr.Wrap(apperr.KindStorage, err, "presigning download")
	}
	c.metrics.Inc(metrics.CounterDownloadTotal)
	return url, nil
}

// Meta returns the full Artifact descriptor (GET
// /v1/artifacts/{digest}/meta). Always requires authentication at the
// HTTP layer.
func (c *Controller) Meta(ctx context.Context, digest string) (*models.Artifact, error) {
	return c.lookup(ctx, digest)
}

// VerifyResult is the cheap existence probe's response shape. It never
// touches the object store — the catalog row is the source of truth, so
// a probe cannot leak whether the bytes are presently readable.
type VerifyResult struct {
	Exists     bool
	SizeBytes  int64
	Mime       string
	CidV1      *string
	CreatedAt  *time.Time
	ScanStatus models.ScanStatus
}

// Verify answers GET /v1/artifacts/{digest}/verify. It is unauthenticated
// and deliberately silent about I/O state.
func (c *Controller) Verify(ctx context.Context, digest string) (VerifyResult, error) {
	norm := digestx.Normalize(digest)
	if !digestx.IsValidDigest(norm) {
		return VerifyResult{}, apperr.New(apperr.KindValidation, "digest is not a valid sha256 hex digest")
	}
	artifact, err := c.artifacts.FindByDigest(ctx, c.db, norm)
	if err != nil {
		return VerifyResult{}, err
	}
	if artifact == nil {
		return VerifyResult{Exists: false}, nil
	}
	createdAt := artifact.CreatedAt
	return VerifyResult{
		Exists:     true,
		SizeBytes:  artifact.SizeBytes,
		Mime:       artifact.Mime,
		CidV1:      artifact.CidV1,
		CreatedAt:  &createdAt,
		ScanStatus: artifact.ScanStatus,
	}, nil
}
