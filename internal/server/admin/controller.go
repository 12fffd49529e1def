// Package admin implements the registry-only lifecycle operations of
// spec.md §4.10: retention sweep, IPFS pin/unpin, rescan, and the
// supplemented read-only artifact listing of SPEC_FULL.md §4.10.
package admin

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/evidencevault/vault/internal/apperr"
	"github.com/evidencevault/vault/internal/digestx"
	"github.com/evidencevault/vault/internal/logging"
	"github.com/evidencevault/vault/internal/server/models"
	"github.com/evidencevault/vault/internal/server/repositories/artifacts"
	"github.com/evidencevault/vault/internal/server/replica"
	"github.com/evidencevault/vault/internal/server/storage"
)

type Controller struct {
	db        *sql.DB
	artifacts artifacts.Repository
	storage   storage.Port
	replica   replica.Port
	logger    logging.Logger
}

func NewController(db *sql.DB, artifactsRepo artifacts.Repository, store storage.Port, replicaPort replica.Port, logger logging.Logger) *Controller {
	return &Controller{db: db, artifacts: artifactsRepo, storage: store, replica: replicaPort, logger: logger}
}

// RetentionSweepInput drives a dry-run list or an actual delete pass.
type RetentionSweepInput struct {
	BeforeDate time.Time
	DryRun     bool
}

// RetentionSweepResult enumerates only artifacts that were (or, for a
// dry run, would be) successfully removed — spec.md §4.10's "never
// partial" guarantee.
type RetentionSweepResult struct {
	DryRun    bool
	Artifacts []*models.Artifact
}

// RetentionSweep lists artifacts older than BeforeDate and, unless
// DryRun, deletes each from the object store (ignoring NOT_FOUND) and
// then the catalog, logging and continuing past per-artifact failures.
func (c *Controller) RetentionSweep(ctx context.Context, in RetentionSweepInput) (RetentionSweepResult, error) {
	candidates, err := c.artifacts.ListCreatedBefore(ctx, c.db, in.BeforeDate)
	if err != nil {
		return RetentionSweepResult{}, err
	}

	if in.DryRun {
		return RetentionSweepResult{DryRun: true, Artifacts: candidates}, nil
	}

	deleted := make([]*models.Artifact, 0, len(candidates))
	for _, artifact := range candidates {
		if err := c.storage.Delete(ctx, artifact.BucketKey); err != nil && apperr.KindOf(err) != apperr.KindNotFound {
			c.logger.Warn(ctx, "retention sweep: object delete failed, skipping artifact", "artifactId", artifact.ID, "error", err)
			continue
		}
		if err := c.artifacts.Delete(ctx, c.db, artifact.ID); err != nil {
			c.logger.Warn(ctx, "retention sweep: catalog delete failed, skipping artifact", "artifactId", artifact.ID, "error", err)
			continue
		}
		deleted = append(deleted, artifact)
	}

	return RetentionSweepResult{DryRun: false, Artifacts: deleted}, nil
}

// Pin implements the IPFS-pin admin endpoint. The artifact lookup runs
// first so an unknown digest always reports NOT_FOUND; only once the
// artifact is confirmed to exist is the absence of a configured replica
// reported as PRECONDITION (spec.md §4.10 orders "find artifact; require
// C6").
func (c *Controller) Pin(ctx context.Context, digest string) (*models.Artifact, error) {
	artifact, err := c.findByDigest(ctx, digest)
	if err != nil {
		return nil, err
	}

	if c.replica == nil {
		return nil, apperr.New(apperr.KindValidation, "no secondary replica is configured").WithDetails(map[string]any{"reason": "PRECONDITION"})
	}
	if artifact.CidV1 != nil {
		return artifact, nil
	}

	stream, err := c.storage.Get(ctx, artifact.BucketKey)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "reopening object for pin")
	}
	defer stream.Close()

	result, err := c.replica.Pin(ctx, stream)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindIPFS, err, "pinning object")
	}

	cid := result.CID
	if derived, derr := replica.CIDFromDigest(artifact.Digest); derr != nil {
		c.logger.Warn(ctx, "failed to derive canonical cid from digest; using node-reported cid", "digest", artifact.Digest, "error", derr)
	} else if derived != result.CID {
		c.logger.Warn(ctx, "ipfs node returned a cid that disagrees with the content-derived cid; using the derived one", "digest", artifact.Digest, "nodeCid", result.CID, "derivedCid", derived)
		cid = derived
	}

	if err := c.artifacts.SetCID(ctx, c.db, artifact.ID, &cid); err != nil {
		return nil, err
	}
	artifact.CidV1 = &cid
	return artifact, nil
}

// Unpin implements the IPFS-unpin admin endpoint. An artifact with no
// cidV1 set is treated as an already-satisfied no-op.
func (c *Controller) Unpin(ctx context.Context, digest string) (*models.Artifact, error) {
	artifact, err := c.findByDigest(ctx, digest)
	if err != nil {
		return nil, err
	}
	if artifact.CidV1 == nil {
		return artifact, nil
	}

	if c.replica != nil {
		if err := c.replica.Unpin(ctx, *artifact.CidV1); err != nil {
			return nil, apperr.Wrap(apperr.KindIPFS, err, "unpinning object")
		}
	}

	if err := c.artifacts.SetCID(ctx, c.db, artifact.ID, nil); err != nil {
		return nil, err
	}
	artifact.CidV1 = nil
	return artifact, nil
}

// GatewayURL exposes the configured gateway URL for a CID, or "" when no
// replica is configured.
func (c *Controller) GatewayURL(cid string) string {
	if c.replica == nil {
		return ""
	}
	return c.replica.GatewayURL(cid)
}

// Rescan re-streams the stored object, recomputes its digest, and flags
// corruption when it no longer matches the catalog. A mismatch is
// reported as STORAGE and the artifact's scan status is left untouched.
func (c *Controller) Rescan(ctx context.Context, digest string) (*models.Artifact, error) {
	artifact, err := c.findByDigest(ctx, digest)
	if err != nil {
		return nil, err
	}

	stream, err := c.storage.Get(ctx, artifact.BucketKey)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "reopening object for rescan")
	}
	defer stream.Close()

	result, err := digestx.HashStream(stream)
	if err != nil {
		return nil, err
	}

	if result.Digest != artifact.Digest {
		return nil, apperr.Newf(apperr.KindStorage, "rescan detected corruption: expected %s, got %s", artifact.Digest, result.Digest).
			WithDetails(map[string]any{"expected": artifact.Digest, "actual": result.Digest})
	}

	now := time.Now()
	if err := c.artifacts.SetScanStatus(ctx, c.db, artifact.ID, models.ScanClean, now); err != nil {
		return nil, err
	}
	artifact.ScanStatus = models.ScanClean
	artifact.VerifiedAt = now
	return artifact, nil
}

// ListInput paginates the supplemented read-only artifact listing.
type ListInput struct {
	Limit  int
	Cursor string // an artifact ID: results start strictly after this id
}

// List returns artifacts ordered by id, the simplest stable cursor the
// catalog's primary key already supports.
func (c *Controller) List(ctx context.Context, in ListInput) ([]*models.Artifact, error) {
	all, err := c.artifacts.ListCreatedBefore(ctx, c.db, time.Now().Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	start := 0
	if in.Cursor != "" {
		start = sort.Search(len(all), func(i int) bool { return all[i].ID > in.Cursor })
	}
	if start >= len(all) {
		return []*models.Artifact{}, nil
	}
	end := len(all)
	if in.Limit > 0 && start+in.Limit < end {
		end = start + in.Limit
	}
	return all[start:end], nil
}

func (c *Controller) findByDigest(ctx context.Context, digest string) (*models.Artifact, error) {
	norm := digestx.Normalize(digest)
	if !digestx.IsValidDigest(norm) {
		return nil, apperr.New(apperr.KindValidation, "digest is not a valid sha256 hex digest")
	}
	artifact, err := c.artifacts.FindByDigest(ctx, c.db, norm)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return nil, apperr.New(apperr.KindNotFound, "no artifact for digest")
	}
	return artifact, nil
}
