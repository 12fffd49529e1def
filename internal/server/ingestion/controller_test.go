package ingestion

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evidencevault/vault/internal/apperr"
	"github.com/evidencevault/vault/internal/digestx"
	"github.com/evidencevault/vault/internal/logging"
	"github.com/evidencevault/vault/internal/metrics"
	"github.com/evidencevault/vault/internal/server/auth"
	"github.com/evidencevault/vault/internal/server/replica"
	"github.com/evidencevault/vault/internal/server/storage"
)

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestController(t *testing.T, replicaPort *fakeReplica) (*Controller, *fakeArtifacts, *fakeSessions, storage.Port) {
	t.Helper()
	store, err := storage.NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	sessionsRepo := newFakeSessions()
	artifactsRepo := newFakeArtifacts()
	tokens := auth.NewUploadTokenIssuer("test-secret")

	var replicaIface replica.Port
	if replicaPort != nil {
		replicaIface = replicaPort
	}

	c := NewController(nil, sessionsRepo, artifactsRepo, store, replicaIface, tokens, metrics.NewRegistry(), discardLogger(), 1<<20, time.Minute, time.Minute)
	return c, artifactsRepo, sessionsRepo, store
}

func putDirect(t *testing.T, store storage.Port, key, body string) {
	t.Helper()
	require.NoError(t, store.Put(context.Background(), storage.PutInput{
		Key:           key,
		Body:          strings.NewReader(body),
		ContentType:   "application/octet-stream",
		ContentLength: int64(len(body)),
	}))
}

func TestInit_RejectsOversizedDeclaration(t *testing.T) {
	c, _, _, _ := newTestController(t, nil)
	size := int64(2 << 20) // exceeds the 1MB max configured by newTestController
	_, err := c.Init(context.Background(), InitInput{Filename: "a.bin", SizeBytes: &size})
	require.Error(t, err)
	require.Equal(t, apperr.KindFileTooLarge, apperr.KindOf(err))
}

func TestInit_RejectsMissingFilename(t *testing.T) {
	c, _, _, _ := newTestController(t, nil)
	_, err := c.Init(context.Background(), InitInput{})
	require.Error(t, err)
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestInitThenComplete_HappyPath(t *testing.T) {
	c, artifactsRepo, _, store := newTestController(t, nil)
	ctx := context.Background()

	out, err := c.Init(ctx, InitInput{Filename: "evidence.pdf", Auth: auth.AuthContext{AppKey: "registry"}})
	require.NoError(t, err)
	require.NotEmpty(t, out.UploadID)
	require.NotEmpty(t, out.BucketKey)

	putDirect(t, store, out.BucketKey, "hello evidence")

	completeOut, err := c.Complete(ctx, CompleteInput{UploadID: out.UploadID, UploadToken: out.Token})
	require.NoError(t, err)
	require.Equal(t, digestx.HashBuffer([]byte("hello evidence")).Digest, completeOut.Digest)
	require.NotEmpty(t, completeOut.ArtifactID)
	require.NotEmpty(t, completeOut.DownloadURL)

	stored, err := artifactsRepo.FindByDigest(ctx, nil, completeOut.Digest)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, completeOut.BucketKey, stored.BucketKey)
}

func TestComplete_DeclaredDigestMismatchAbortsSession(t *testing.T) {
	c, _, sessionsRepo, store := newTestController(t, nil)
	ctx := context.Background()

	bogusDigest := strings.Repeat("0", 63) + "a"
	out, err := c.Init(ctx, InitInput{Filename: "a.bin", DeclaredDigest: bogusDigest})
	require.NoError(t, err)

	putDirect(t, store, out.BucketKey, "real bytes")

	_, err = c.Complete(ctx, CompleteInput{UploadID: out.UploadID, UploadToken: out.Token})
	require.Error(t, err)
	require.Equal(t, apperr.KindHashMismatch, apperr.KindOf(err))

	session, err := sessionsRepo.FindByID(ctx, nil, out.UploadID)
	require.NoError(t, err)
	require.Equal(t, "ABORTED", string(session.Status))
}

func TestComplete_IsIdempotent(t *testing.T) {
	c, _, _, store := newTestController(t, nil)
	ctx := context.Background()

	out, err := c.Init(ctx, InitInput{Filename: "report.pdf"})
	require.NoError(t, err)
	putDirect(t, store, out.BucketKey, "report contents")

	first, err := c.Complete(ctx, CompleteInput{UploadID: out.UploadID, UploadToken: out.Token})
	require.NoError(t, err)

	second, err := c.Complete(ctx, CompleteInput{UploadID: out.UploadID, UploadToken: out.Token})
	require.NoError(t, err)
	require.Equal(t, first.ArtifactID, second.ArtifactID)
	require.Equal(t, first.Digest, second.Digest)
}

func TestComplete_DedupesSecondUploadOfSameBytes(t *testing.T) {
	c, _, _, store := newTestController(t, nil)
	ctx := context.Background()

	out1, err := c.Init(ctx, InitInput{Filename: "one.bin"})
	require.NoError(t, err)
	putDirect(t, store, out1.BucketKey, "identical payload")
	first, err := c.Complete(ctx, CompleteInput{UploadID: out1.UploadID, UploadToken: out1.Token})
	require.NoError(t, err)

	out2, err := c.Init(ctx, InitInput{Filename: "two.bin"})
	require.NoError(t, err)
	putDirect(t, store, out2.BucketKey, "identical payload")
	second, err := c.Complete(ctx, CompleteInput{UploadID: out2.UploadID, UploadToken: out2.Token})
	require.NoError(t, err)

	require.Equal(t, first.ArtifactID, second.ArtifactID)
}

func TestComplete_PinsWhenReplicaConfigured(t *testing.T) {
	replicaPort := &fakeReplica{}
	c, artifactsRepo, _, store := newTestController(t, replicaPort)
	ctx := context.Background()

	out, err := c.Init(ctx, InitInput{Filename: "needs-pinning.bin"})
	require.NoError(t, err)
	putDirect(t, store, out.BucketKey, "pin me")

	completeOut, err := c.Complete(ctx, CompleteInput{UploadID: out.UploadID, UploadToken: out.Token})
	require.NoError(t, err)
	require.NotNil(t, completeOut.CidV1)

	stored, err := artifactsRepo.FindByDigest(ctx, nil, completeOut.Digest)
	require.NoError(t, err)
	require.NotNil(t, stored.CidV1)

	// The fake node's echoed CID ("bafyfakecid0001") disagrees with the
	// content-derived one, so the content-derived CID must be what was
	// persisted, not the node's.
	derived, err := replica.CIDFromDigest(completeOut.Digest)
	require.NoError(t, err)
	require.Equal(t, derived, *stored.CidV1)
}

func TestComplete_PinFailureNeverFailsTheRequest(t *testing.T) {
	replicaPort := &fakeReplica{failPin: true}
	c, _, _, store := newTestController(t, replicaPort)
	ctx := context.Background()

	out, err := c.Init(ctx, InitInput{Filename: "pin-will-fail.bin"})
	require.NoError(t, err)
	putDirect(t, store, out.BucketKey, "bytes")

	completeOut, err := c.Complete(ctx, CompleteInput{UploadID: out.UploadID, UploadToken: out.Token})
	require.NoError(t, err)
	require.Nil(t, completeOut.CidV1)
}

func TestComplete_ExpiredSessionIsRejected(t *testing.T) {
	c, _, sessionsRepo, store := newTestController(t, nil)
	ctx := context.Background()

	out, err := c.Init(ctx, InitInput{Filename: "late.bin"})
	require.NoError(t, err)
	putDirect(t, store, out.BucketKey, "too late")

	// Backdate the session's deadline directly rather than shortening the
	// controller's token TTL, which would make the upload token itself
	// expire and mask the session-expiry path under test.
	sessionsRepo.byID[out.UploadID].ExpiresAt = time.Now().Add(-time.Hour)

	_, err = c.Complete(ctx, CompleteInput{UploadID: out.UploadID, UploadToken: out.Token})
	require.Error(t, err)
	require.Equal(t, apperr.KindSessionExpired, apperr.KindOf(err))
}

func TestComplete_UnknownUploadIDIsNotFound(t *testing.T) {
	c, _, _, _ := newTestController(t, nil)
	_, err := c.Complete(context.Background(), CompleteInput{UploadID: "missing", UploadToken: "whatever"})
	require.Error(t, err)
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
