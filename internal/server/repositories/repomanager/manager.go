package repomanager

import (
	"context"
	"database/sql"

	"github.com/valetdrive/valetdrive/internal/dbx"
	"github.com/valetdrive/valetdrive/internal/server/repositories/files"
	"github.com/valetdrive/valetdrive/internal/server/repositories/folders"
	"github.com/valetdrive/valetdrive/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Folders(db dbx.DBTX) folders.Repository
	Files(db dbx.DBTX) files.Repository
}
