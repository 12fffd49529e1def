package sessions

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/evidencevault/vault/internal/apperr"
	"github.com/evidencevault/vault/internal/dbx"
	"github.com/evidencevault/vault/internal/server/models"
)

type PostgresRepository struct{}

func NewPostgresRepository() *PostgresRepository {
	return &PostgresRepository{}
}

const sessionColumns = `id, token, declared_digest, filename, expected_size, mime_hint,
	bucket_key, uploader_org_id, project_id, issuance_id, requested_by, status, artifact_id,
	created_at, expires_at, completed_at`

func scanSession(row interface{ Scan(...any) error }) (*models.UploadSession, error) {
	s := &models.UploadSession{}
	err := row.Scan(
		&s.ID, &s.Token, &s.DeclaredDigest, &s.Filename, &s.ExpectedSize, &s.MimeHint,
		&s.BucketKey, &s.UploaderOrgID, &s.ProjectID, &s.IssuanceID, &s.RequestedBy, &s.Status, &s.ArtifactID,
		&s.CreatedAt, &s.ExpiresAt, &s.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepository) Create(ctx context.Context, db dbx.DBTX, s *models.UploadSession) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO upload_sessions (`+sessionColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		s.ID, s.Token, s.DeclaredDigest, s.Filename, s.ExpectedSize, s.MimeHint,
		s.BucketKey, s.UploaderOrgID, s.ProjectID, s.IssuanceID, s.RequestedBy, s.Status, s.ArtifactID,
		s.CreatedAt, s.ExpiresAt, s.CompletedAt,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "creating upload session")
	}
	return nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, db dbx.DBTX, id string) (*models.UploadSession, error) {
	row := db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM upload_sessions WHERE id = $1`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, err, "querying upload session")
	}
	return s, nil
}

// UpdateStatus performs the compare-and-swap transition spec.md §4.7
// requires: the WHERE clause's status guard is what makes two concurrent
// completions of the same session race safely — exactly one UPDATE
// affects a row.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, db dbx.DBTX, id string, expectedCurrent, next models.SessionStatus, completedAt *time.Time, artifactID *string) (bool, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE upload_sessions SET status = $1, completed_at = $2, artifact_id = COALESCE($3, artifact_id)
		WHERE id = $4 AND status = $5`,
		next, completedAt, artifactID, id, expectedCurrent,
	)
	if err != nil {
		return false, apperr.Wrap(apperr.KindStorage, err, "updating upload session status")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Wrap(apperr.KindStorage, err, "reading rows affected")
	}
	return n == 1, nil
}
