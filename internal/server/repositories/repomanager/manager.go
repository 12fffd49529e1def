// Package repomanager wires the catalog's repository implementations
// together and owns schema migration, mirroring the teacher's
// RepositoryManager shape.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/evidencevault/vault/internal/dbx"
	"github.com/evidencevault/vault/internal/server/repositories/artifacts"
	"github.com/evidencevault/vault/internal/server/repositories/sessions"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Artifacts(db dbx.DBTX) artifacts.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}
