package admin

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/evidencevault/vault/internal/apperr"
	"github.com/evidencevault/vault/internal/dbx"
	"github.com/evidencevault/vault/internal/server/models"
	"github.com/evidencevault/vault/internal/server/replica"
)

type fakeArtifacts struct {
	mu    sync.Mutex
	byID  map[string]*models.Artifact
	byDig map[string]*models.Artifact
}

func newFakeArtifacts(seed ...*models.Artifact) *fakeArtifacts {
	f := &fakeArtifacts{byID: map[string]*models.Artifact{}, byDig: map[string]*models.Artifact{}}
	for _, a := range seed {
		f.byID[a.ID] = a
		f.byDig[a.Digest] = a
	}
	return f
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
	panic("not used by admin tests")
}

func (f *fakeArtifacts) SetCID(ctx context.Context, db dbx.DBTX, id string, cid *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "no such artifact")
	}
	a.CidV1 = cid
	return nil
}

func (f *fakeArtifacts) SetScanStatus(ctx context.Context, db dbx.DBTX, id string, status models.ScanStatus, verifiedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "no such artifact")
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

type fakeReplica struct {
	mu       sync.Mutex
	pins     int
	unpins   []string
	failPin  bool
}

func (f *fakeReplica) Pin(ctx context.Context, r io.Reader) (replica.PinResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPin {
		return replica.PinResult{}, fmt.Errorf("pin service unavailable")
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
