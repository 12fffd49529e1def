package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/evidencevault/vault/internal/dbx"
	"github.com/evidencevault/vault/internal/server/models"
	"github.com/evidencevault/vault/internal/server/replica"
)

// fakeArtifacts is an in-memory artifacts.Repository good enough to
// exercise dedup and race-safe creation without a real database.
type fakeArtifacts struct {
	mu    sync.Mutex
	byID  map[string]*models.Artifact
	byDig map[string]*models.Artifact
}

func newFakeArtifacts() *fakeArtifacts {
	return &fakeArtifacts{byID: map[string]*models.Artifact{}, byDig: map[string]*models.Artifact{}}
}

func (f *fakeArtifacts) FindByDigest(ctx context.Context, db dbx.DBTX, digest string) (*models.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byDig[digest]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (f *fakeArtifacts) FindByID(ctx context.Context, db dbx.DBTX, id string) (*models.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (f *fakeArtifacts) CreateIfAbsent(ctx context.Context, db dbx.DBTX, artifact *models.Artifact) (*models.Artifact, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.byDig[artifact.Digest]; ok {
		cp := *existing
		return &cp, false, nil
	}
	cp := *artifact
	f.byID[cp.ID] = &cp
	f.byDig[cp.Digest] = &cp
	out := cp
	return &out, true, nil
}

func (f *fakeArtifacts) SetCID(ctx context.Context, db dbx.DBTX, id string, cid *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil
	}
	a.CidV1 = cid
	f.byDig[a.Digest].CidV1 = cid
	return nil
}

func (f *fakeArtifacts) SetScanStatus(ctx context.Context, db dbx.DBTX, id string, status models.ScanStatus, verifiedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil
	}
	a.ScanStatus = status
	a.VerifiedAt = verifiedAt
	return nil
}

func (f *fakeArtifacts) ListCreatedBefore(ctx context.Context, db dbx.DBTX, cutoff time.Time) ([]*models.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Artifact
	for _, a := range f.byID {
		if a.CreatedAt.Before(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeArtifacts) Delete(ctx context.Context, db dbx.DBTX, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil
	}
	delete(f.byID, id)
	delete(f.byDig, a.Digest)
	return nil
}

// fakeSessions is an in-memory sessions.Repository.
type fakeSessions struct {
	mu   sync.Mutex
	byID map[string]*models.UploadSession
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byID: map[string]*models.UploadSession{}}
}

func (f *fakeSessions) Create(ctx context.Context, db dbx.DBTX, session *models.UploadSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *session
	f.byID[cp.ID] = &cp
	return nil
}

func (f *fakeSessions) FindByID(ctx context.Context, db dbx.DBTX, id string) (*models.UploadSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) UpdateStatus(ctx context.Context, db dbx.DBTX, id string, expectedCurrent, next models.SessionStatus, completedAt *time.Time, artifactID *string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return false, nil
	}
	if s.Status != expectedCurrent {
		return false, nil
	}
	s.Status = next
	s.CompletedAt = completedAt
	s.ArtifactID = artifactID
	return true, nil
}

// fakeReplica is a replica.Port that records every pin/unpin call.
type fakeReplica struct {
	mu      sync.Mutex
	pins    int
	failPin bool
	unpins  []string
}

func (f *fakeReplica) Pin(ctx context.Context, r io.Reader) (replica.PinResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPin {
		return replica.PinResult{}, errors.New("pin service unavailable")
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return replica.PinResult{}, err
	}
	f.pins++
	return replica.PinResult{CID: fmt.Sprintf("bafyfakecid%04d", f.pins), Size: int64(len(body))}, nil
}

func (f *fakeReplica) Unpin(ctx context.Context, cid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unpins = append(f.unpins, cid)
	return nil
}

func (f *fakeReplica) GatewayURL(cid string) string {
	return "https://gateway.example/ipfs/" + cid
}
