package retrieval

import (
	"context"
	"sync"
	"time"

	"github.com/evidencevault/vault/internal/dbx"
	"github.com/evidencevault/vault/internal/server/models"
)

type fakeArtifacts struct {
	mu    sync.Mutex
	byDig map[string]*models.Artifact
}

func newFakeArtifacts() *fakeArtifacts {
	return &fakeArtifacts{byDig: map[string]*models.Artifact{}}
}

func (f *fakeArtifacts) put(a *models.Artifact) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byDig[a.Digest] = a
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
	for _, a := range f.byDig {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeArtifacts) CreateIfAbsent(ctx context.Context, db dbx.DBTX, artifact *models.Artifact) (*models.Artifact, bool, error) {
	panic("not used by retrieval tests")
}

func (f *fakeArtifacts) SetCID(ctx context.Context, db dbx.DBTX, id string, cid *string) error {
	panic("not used by retrieval tests")
}

func (f *fakeArtifacts) SetScanStatus(ctx context.Context, db dbx.DBTX, id string, status models.ScanStatus, verifiedAt time.Time) error {
	panic("not used by retrieval tests")
}

func (f *fakeArtifacts) ListCreatedBefore(ctx context.Context, db dbx.DBTX, cutoff time.Time) ([]*models.Artifact, error) {
	panic("not used by retrieval tests")
}

func (f *fakeArtifacts) Delete(ctx context.Context, db dbx.DBTX, id string) error {
	panic("not used by retrieval tests")
}
