package artifacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evidencevault/vault/internal/apperr"
	"github.com/evidencevault/vault/internal/dbx"
	"github.com/evidencevault/vault/internal/server/models"
)

// PostgresRepository implements Repository over database/sql + pgx/v5's
// stdlib driver, mirroring the teacher's repository shape: a thin struct
// with no state beyond what's needed to run queries against a dbx.DBTX.
type PostgresRepository struct{}

func NewPostgresRepository() *PostgresRepository {
	return &PostgresRepository{}
}

const artifactColumns = `id, digest, size_bytes, mime, filename, bucket_key, cid_v1,
	uploader_org_id, project_id, issuance_id, meta_json, verified_at, scan_status, created_at`

func scanArtifact(row interface{ Scan(...any) error }) (*models.Artifact, error) {
	a := &models.Artifact{}
	err := row.Scan(
		&a.ID, &a.Digest, &a.SizeBytes, &a.Mime, &a.Filename, &a.BucketKey, &a.CidV1,
		&a.UploaderOrgID, &a.ProjectID, &a.IssuanceID, &a.MetaJSON, &a.VerifiedAt, &a.ScanStatus, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *PostgresRepository) FindByDigest(ctx context.Context, db dbx.DBTX, digest string) (*models.Artifact, error) {
	row := db.QueryRowContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE digest = $1`, digest)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "querying artifact by digest")
	}
	return a, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, db dbx.DBTX, id string) (*models.Artifact, error) {
	row := db.QueryRowContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE id = $1`, id)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "querying artifact by id")
	}
	return a, nil
}

// CreateIfAbsent is the race-safe insert spec.md §4.7 requires: the
// unique index on digest serializes concurrent writers, and a conflict
// falls back to reading the row the winner created.
func (r *PostgresRepository) CreateIfAbsent(ctx context.Context, db dbx.DBTX, artifact *models.Artifact) (*models.Artifact, bool, error) {
	row := db.QueryRowContext(ctx, `
		INSERT INTO artifacts (`+artifactColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (digest) DO NOTHING
		RETURNING `+artifactColumns,
		artifact.ID, artifact.Digest, artifact.SizeBytes, artifact.Mime, artifact.Filename,
		artifact.BucketKey, artifact.CidV1, artifact.UploaderOrgID, artifact.ProjectID,
		artifact.IssuanceID, artifact.MetaJSON, artifact.VerifiedAt, artifact.ScanStatus, artifact.CreatedAt,
	)

	inserted, err := scanArtifact(row)
	if err == nil {
		return inserted, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, apperr.Wrap(apperr.KindStorage, err, "inserting artifact")
	}

	existing, err := r.FindByDigest(ctx, db, artifact.Digest)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, apperr.New(apperr.KindInternal, "artifact insert conflicted but no row could be found")
	}
	return existing, false, nil
}

func (r *PostgresRepository) SetCID(ctx context.Context, db dbx.DBTX, id string, cid *string) error {
	_, err := db.ExecContext(ctx, `UPDATE artifacts SET cid_v1 = $1 WHERE id = $2`, cid, id)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "setting artifact cid")
	}
	return nil
}

func (r *PostgresRepository) SetScanStatus(ctx context.Context, db dbx.DBTX, id string, status models.ScanStatus, verifiedAt time.Time) error {
	_, err := db.ExecContext(ctx, `UPDATE artifacts SET scan_status = $1, verified_at = $2 WHERE id = $3`, status, verifiedAt, id)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "setting artifact scan status")
	}
	return nil
}

func (r *PostgresRepository) ListCreatedBefore(ctx context.Context, db dbx.DBTX, cutoff time.Time) ([]*models.Artifact, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE created_at < $1 ORDER BY created_at ASC`, cutoff)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "listing artifacts")
	}
	defer rows.Close()

	var out []*models.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindStorage, err, "scanning artifact row")
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "iterating artifacts")
	}
	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, db dbx.DBTX, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM artifacts WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, fmt.Sprintf("deleting artifact %s", id))
	}
	return nil
}
