// Package ingestion implements the two-phase signed-URL upload protocol
// (spec.md §4.8): init mints an UploadSession and a presigned PUT, the
// caller writes bytes directly to the object store, and complete streams
// the stored object through the digest engine, dedupes against the
// catalog, and transitions the session to its terminal state.
package ingestion

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/evidencevault/vault/internal/apperr"
	"github.com/evidencevault/vault/internal/digestx"
	"github.com/evidencevault/vault/internal/keyx"
	"github.com/evidencevault/vault/internal/logging"
	"github.com/evidencevault/vault/internal/metrics"
	"github.com/evidencevault/vault/internal/mimex"
	"github.com/evidencevault/vault/internal/randx"
	"github.com/evidencevault/vault/internal/server/auth"
	"github.com/evidencevault/vault/internal/server/models"
	"github.com/evidencevault/vault/internal/server/repositories/artifacts"
	"github.com/evidencevault/vault/internal/server/repositories/sessions"
	"github.com/evidencevault/vault/internal/server/replica"
	"github.com/evidencevault/vault/internal/server/storage"
)

// Controller is the ingestion state machine of spec.md §4.8. Replica is
// optional: a nil Replica is treated exactly like "replication disabled"
// and every S9 step is skipped rather than failed.
type Controller struct {
	db        *sql.DB
	sessions  sessions.Repository
	artifacts artifacts.Repository
	storage   storage.Port
	replica   replica.Port
	tokens    *auth.UploadTokenIssuer
	metrics   *metrics.Registry
	logger    logging.Logger

	maxUploadBytes int64
	sessionTTL     time.Duration
	downloadTTL    time.Duration
}

func NewController(
	db *sql.DB,
	sessionsRepo sessions.Repository,
	artifactsRepo artifacts.Repository,
	store storage.Port,
	replicaPort replica.Port,
	tokens *auth.UploadTokenIssuer,
	metricsRegistry *metrics.Registry,
	logger logging.Logger,
	maxUploadBytes int64,
	sessionTTL time.Duration,
	downloadTTL time.Duration,
) *Controller {
	return &Controller{
		db:             db,
		sessions:       sessionsRepo,
		artifacts:      artifactsRepo,
		storage:        store,
		replica:        replicaPort,
		tokens:         tokens,
		metrics:        metricsRegistry,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
		sessionTTL:     sessionTTL,
		downloadTTL:    downloadTTL,
	}
}

// InitInput carries the caller-supplied and authenticated fields of
// spec.md §4.8.1.
type InitInput struct {
	Filename       string
	SizeBytes      *int64
	MimeHint       string
	DeclaredDigest string
	ProjectID      string
	IssuanceID     string
	Auth           auth.AuthContext
}

// InitOutput is returned to the caller verbatim as the init HTTP response.
type InitOutput struct {
	UploadID  string
	Token     string
	PutURL    string
	BucketKey string
	ExpiresAt time.Time
}

// Init mints a fresh upload session and a presigned PUT URL. Failures are
// total: nothing is persisted if any step fails (spec.md §4.8.1).
func (c *Controller) Init(ctx context.Context, in InitInput) (InitOutput, error) {
	if in.SizeBytes != nil && *in.SizeBytes > c.maxUploadBytes {
		return InitOutput{}, apperr.Newf(apperr.KindFileTooLarge, "declared size %d exceeds maximum %d", *in.SizeBytes, c.maxUploadBytes).
			WithDetails(map[string]any{"maxUploadBytes": c.maxUploadBytes})
	}

	if in.MimeHint != "" {
		if err := mimex.Validate(in.MimeHint); err != nil {
			return InitOutput{}, err
		}
	}

	var declared *string
	if in.DeclaredDigest != "" {
		norm := digestx.Normalize(in.DeclaredDigest)
		if !digestx.IsValidDigest(norm) {
			return InitOutput{}, apperr.New(apperr.KindValidation, "declaredDigest is not a valid sha256 hex digest")
		}
		declared = &norm
	}

	if in.Filename == "" {
		return InitOutput{}, apperr.New(apperr.KindValidation, "filename is required")
	}

	stagingDigest := ""
	if declared != nil {
		stagingDigest = *declared
	} else {
		r, err := randx.HexString(32)
		if err != nil {
			return InitOutput{}, apperr.Wrap(apperr.KindInternal, err, "generating staging key")
		}
		stagingDigest = r
	}
	bucketKey := keyx.BucketKey(stagingDigest, in.Filename)

	uploadID := uuid.NewString()
	now := time.Now()
	expiresAt := now.Add(c.sessionTTL)

	token, err := c.tokens.Issue(uploadID, c.sessionTTL)
	if err != nil {
		return InitOutput{}, apperr.Wrap(apperr.KindInternal, err, "issuing upload token")
	}

	putURL, err := c.storage.Presign(ctx, storage.OpPut, bucketKey, c.sessionTTL)
	if err != nil {
		return InitOutput{}, apperr.Wrap(apperr.KindStorage, err, "presigning upload")
	}

	session := &models.UploadSession{
		ID:             uploadID,
		Token:          token,
		DeclaredDigest: declared,
		Filename:       in.Filename,
		ExpectedSize:   in.SizeBytes,
		MimeHint:       in.MimeHint,
		BucketKey:      bucketKey,
		UploaderOrgID:  in.Auth.OrgID,
		ProjectID:      in.ProjectID,
		IssuanceID:     in.IssuanceID,
		RequestedBy:    in.Auth.AppKey,
		Status:         models.SessionPending,
		CreatedAt:      now,
		ExpiresAt:      expiresAt,
	}

	if err := c.sessions.Create(ctx, c.db, session); err != nil {
		return InitOutput{}, err
	}

	c.metrics.Inc(metrics.CounterInitTotal)

	return InitOutput{
		UploadID:  uploadID,
		Token:     token,
		PutURL:    putURL,
		BucketKey: bucketKey,
		ExpiresAt: expiresAt,
	}, nil
}

// CompleteInput carries the fields spec.md §4.8.3 requires at complete.
type CompleteInput struct {
	UploadID    string
	UploadToken string
	Auth        auth.AuthContext
}

// CompleteOutput mirrors spec.md §6's complete response body.
type CompleteOutput struct {
	ArtifactID  string
	Digest      string
	SizeBytes   int64
	Mime        string
	BucketKey   string
	CidV1       *string
	DownloadURL string
}

// Complete is the heart of the ingestion controller: S1-S11 of
// spec.md §4.8.3.
func (c *Controller) Complete(ctx context.Context, in CompleteInput) (CompleteOutput, error) {
	session, err := c.sessions.FindByID(ctx, c.db, in.UploadID)
	if err != nil {
		return CompleteOutput{}, err
	}
	if session == nil {
		return CompleteOutput{}, apperr.New(apperr.KindNotFound, "upload session not found")
	}

	if err := c.tokens.Verify(in.UploadToken, session.ID); err != nil {
		return CompleteOutput{}, err
	}

	if out, handled, err := c.handleTerminalSession(ctx, session); handled {
		return out, err
	}

	now := time.Now()
	if session.ExpiresAt.Before(now) {
		_, _ = c.sessions.UpdateStatus(ctx, c.db, session.ID, models.SessionPending, models.SessionExpired, &now, nil)
		return CompleteOutput{}, apperr.New(apperr.KindSessionExpired, "upload session has expired")
	}

	if session.BucketKey == "" {
		return CompleteOutput{}, apperr.New(apperr.KindValidation, "session has no staged object key")
	}

	stream, err := c.storage.Get(ctx, session.BucketKey)
	if err != nil {
		return CompleteOutput{}, apperr.Wrap(apperr.KindStorage, err, "opening staged object")
	}
	defer stream.Close()

	hashStart := time.Now()
	result, err := digestx.HashStream(stream)
	c.metrics.ObserveHashDuration(time.Since(hashStart))
	if err != nil {
		c.metrics.Inc(metrics.CounterFailTotal)
		return CompleteOutput{}, apperr.Wrap(apperr.KindStorage, err, "hashing staged object")
	}
	digest := result.Digest

	if session.DeclaredDigest != nil && *session.DeclaredDigest != digest {
		_, _ = c.sessions.UpdateStatus(ctx, c.db, session.ID, models.SessionPending, models.SessionAborted, &now, nil)
		c.metrics.Inc(metrics.CounterFailTotal)
		return CompleteOutput{}, apperr.Newf(apperr.KindHashMismatch, "declared digest %s does not match computed digest %s", *session.DeclaredDigest, digest).
			WithDetails(map[string]any{"declared": *session.DeclaredDigest, "computed": digest})
	}

	effectiveKey, err := c.ensureCanonicalKey(ctx, session, digest, result.SizeBytes)
	if err != nil {
		c.metrics.Inc(metrics.CounterFailTotal)
		return CompleteOutput{}, err
	}

	artifact, err := c.resolveArtifact(ctx, session, digest, result.SizeBytes, effectiveKey, now)
	if err != nil {
		return CompleteOutput{}, err
	}

	ok, err := c.sessions.UpdateStatus(ctx, c.db, session.ID, models.SessionPending, models.SessionComplete, &now, &artifact.ID)
	if err != nil {
		return CompleteOutput{}, err
	}
	if !ok {
		// Another completion of this exact session raced us past the
		// guard (P5): trust whatever it recorded rather than mutate.
		reloaded, rerr := c.sessions.FindByID(ctx, c.db, session.ID)
		if rerr == nil && reloaded != nil && reloaded.ArtifactID != nil {
			if a, aerr := c.artifacts.FindByID(ctx, c.db, *reloaded.ArtifactID); aerr == nil && a != nil {
				artifact = a
			}
		}
	}

	c.metrics.Inc(metrics.CounterCompleteTotal)
	return c.describe(ctx, artifact)
}

// handleTerminalSession implements idempotent complete (P5): a session
// that already left PENDING returns its prior resolution instead of
// redoing any work.
func (c *Controller) handleTerminalSession(ctx context.Context, session *models.UploadSession) (CompleteOutput, bool, error) {
	switch session.Status {
	case models.SessionComplete:
		if session.ArtifactID == nil {
			return CompleteOutput{}, true, apperr.New(apperr.KindInternal, "completed session has no artifact recorded")
		}
		artifact, err := c.artifacts.FindByID(ctx, c.db, *session.ArtifactID)
		if err != nil {
			return CompleteOutput{}, true, err
		}
		if artifact == nil {
			return CompleteOutput{}, true, apperr.New(apperr.KindInternal, "completed session's artifact is missing from the catalog")
		}
		out, err := c.describe(ctx, artifact)
		return out, true, err
	case models.SessionAborted:
		return CompleteOutput{}, true, apperr.New(apperr.KindHashMismatch, "upload session was aborted on a digest mismatch")
	case models.SessionExpired:
		return CompleteOutput{}, true, apperr.New(apperr.KindSessionExpired, "upload session has expired")
	default:
		return CompleteOutput{}, false, nil
	}
}

// ensureCanonicalKey implements the §9 correction: the canonical key is
// always derived from the actual digest. When init staged the object
// under a non-canonical key (no declaredDigest was given), the object is
// copied to the canonical key before any Artifact is persisted.
func (c *Controller) ensureCanonicalKey(ctx context.Context, session *models.UploadSession, digest string, sizeBytes int64) (string, error) {
	canonical := keyx.BucketKey(digest, session.Filename)
	if canonical == session.BucketKey {
		return canonical, nil
	}

	src, err := c.storage.Get(ctx, session.BucketKey)
	if err != nil {
		return "", apperr.Wrap(apperr.KindStorage, err, "reopening staged object for canonical move")
	}
	defer src.Close()

	contentType := session.MimeHint
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := c.storage.Put(ctx, storage.PutInput{
		Key:           canonical,
		Body:          src,
		ContentType:   contentType,
		ContentLength: sizeBytes,
	}); err != nil {
		return "", apperr.Wrap(apperr.KindStorage, err, "writing object at canonical key")
	}

	if err := c.storage.Delete(ctx, session.BucketKey); err != nil {
		c.logger.Warn(ctx, "failed to remove staged object after canonical move", "bucketKey", session.BucketKey, "error", err)
	}

	return canonical, nil
}

// resolveArtifact implements S7/S8a/S8b/S9: dedup lookup, race-safe
// creation, and best-effort secondary replication.
func (c *Controller) resolveArtifact(ctx context.Context, session *models.UploadSession, digest string, sizeBytes int64, bucketKey string, now time.Time) (*models.Artifact, error) {
	existing, err := c.artifacts.FindByDigest(ctx, c.db, digest)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		c.metrics.Inc(metrics.CounterDedupTotal)
		return existing, nil
	}

	mime := session.MimeHint
	if mime == "" {
		mime = "application/octet-stream"
	}

	candidate := &models.Artifact{
		ID:            uuid.NewString(),
		Digest:        digest,
		SizeBytes:     sizeBytes,
		Mime:          mime,
		Filename:      keyx.Sanitize(session.Filename),
		BucketKey:     bucketKey,
		UploaderOrgID: session.UploaderOrgID,
		ProjectID:     session.ProjectID,
		IssuanceID:    session.IssuanceID,
		VerifiedAt:    now,
		ScanStatus:    models.ScanPending,
		CreatedAt:     now,
	}

	created, wasCreated, err := c.artifacts.CreateIfAbsent(ctx, c.db, candidate)
	if err != nil {
		return nil, err
	}
	if !wasCreated {
		// S8b: a concurrent completion for a different session won the
		// race on the catalog's unique digest index (P4).
		c.metrics.Inc(metrics.CounterDedupTotal)
		return created, nil
	}

	c.pinIfConfigured(ctx, created, bucketKey)
	return created, nil
}

// pinIfConfigured implements S9: IPFS replication is always best-effort
// and never fails the complete call (P6).
func (c *Controller) pinIfConfigured(ctx context.Context, artifact *models.Artifact, bucketKey string) {
	if c.replica == nil {
		return
	}

	stream, err := c.storage.Get(ctx, bucketKey)
	if err != nil {
		c.logger.Warn(ctx, "skipping ipfs pin: could not reopen stored object", "digest", artifact.Digest, "error", err)
		c.metrics.Inc(metrics.CounterPinFailTotal)
		return
	}
	defer stream.Close()

	result, err := c.replica.Pin(ctx, stream)
	if err != nil {
		c.logger.Warn(ctx, "ipfs pin failed", "digest", artifact.Digest, "error", err)
		c.metrics.Inc(metrics.CounterPinFailTotal)
		return
	}

	cid := result.CID
	if derived, derr := replica.CIDFromDigest(artifact.Digest); derr != nil {
		c.logger.Warn(ctx, "failed to derive canonical cid from digest; using node-reported cid", "digest", artifact.Digest, "error", derr)
	} else if derived != result.CID {
		c.logger.Warn(ctx, "ipfs node returned a cid that disagrees with the content-derived cid; using the derived one", "digest", artifact.Digest, "nodeCid", result.CID, "derivedCid", derived)
		cid = derived
	}

	if err := c.artifacts.SetCID(ctx, c.db, artifact.ID, &cid); err != nil {
		c.logger.Warn(ctx, "failed to persist ipfs cid", "digest", artifact.Digest, "error", err)
		return
	}
	artifact.CidV1 = &cid
	c.metrics.Inc(metrics.CounterPinTotal)
}

func (c *Controller) describe(ctx context.Context, artifact *models.Artifact) (CompleteOutput, error) {
	downloadURL, err := c.storage.Presign(ctx, storage.OpGet, artifact.BucketKey, c.downloadTTL)
	if err != nil {
		return CompleteOutput{}, apperr.Wrap(apperr.KindStorage, err, "presigning download")
	}
	return CompleteOutput{
		ArtifactID:  artifact.ID,
		Digest:      artifact.Digest,
		SizeBytes:   artifact.SizeBytes,
		Mime:        artifact.Mime,
		BucketKey:   artifact.BucketKey,
		CidV1:       artifact.CidV1,
		DownloadURL: downloadURL,
	}, nil
}
