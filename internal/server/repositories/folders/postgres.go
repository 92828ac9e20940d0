package folders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/valetdrive/valetdrive/internal/common"
	"github.com/valetdrive/valetdrive/internal/dbx"
	"github.com/valetdrive/valetdrive/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const folderColumns = `id, owner_id, parent_id, name, full_path, created_at, updated_at`

func scanFolder(row interface{ Scan(...any) error }) (*models.Folder, error) {
	folder := &models.Folder{}
	err := row.Scan(&folder.ID, &folder.OwnerID, &folder.ParentID,
		&folder.Name, &folder.FullPath, &folder.CreatedAt, &folder.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return folder, nil
}

func (r *PostgresRepository) Create(ctx context.Context, folder *models.Folder) (*models.Folder, error) {
	query :=
		`INSERT INTO folders (id, owner_id, parent_id, name, full_path)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		folder.ID, folder.OwnerID, folder.ParentID, folder.Name, folder.FullPath).
		Scan(&folder.CreatedAt, &folder.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return folder, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE id = $1`

	folder, err := scanFolder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return folder, nil
}

// ListByParent returns the direct children of parentID owned by ownerID.
// A nil parentID selects root-level folders.
func (r *PostgresRepository) ListByParent(ctx context.Context, ownerID string, parentID *string) ([]*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders
		 WHERE owner_id = $1 AND parent_id IS NOT DISTINCT FROM $2
		 ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, ownerID, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to select folders: %w", err)
	}
	defer rows.Close()

	return collectFolders(rows)
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders
		 WHERE owner_id = $1
		 ORDER BY full_path`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select folders: %w", err)
	}
	defer rows.Close()

	return collectFolders(rows)
}

func (r *PostgresRepository) Search(ctx context.Context, ownerID string, query string) ([]*models.Folder, error) {
	q := `SELECT ` + folderColumns + ` FROM folders
		 WHERE owner_id = $1 AND name ILIKE '%' || $2 || '%'
		 ORDER BY full_path`

	rows, err := r.db.QueryContext(ctx, q, ownerID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search folders: %w", err)
	}
	defer rows.Close()

	return collectFolders(rows)
}

// ExistsByName reports whether a sibling with the given name already exists
// under parentID. excludeID skips the folder being renamed or moved.
func (r *PostgresRepository) ExistsByName(ctx context.Context, ownerID string, parentID *string, name string, excludeID string) (bool, error) {
	query := `SELECT EXISTS (
			SELECT 1 FROM folders
			WHERE owner_id = $1 AND parent_id IS NOT DISTINCT FROM $2 AND name = $3 AND id <> $4
		 )`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, ownerID, parentID, name, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Rename(ctx context.Context, id string, name string, fullPath string) error {
	query := `UPDATE folders SET name = $2, full_path = $3, updated_at = now() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, name, fullPath)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(result)
}

func (r *PostgresRepository) Move(ctx context.Context, id string, parentID *string, fullPath string) error {
	query := `UPDATE folders SET parent_id = $2, full_path = $3, updated_at = now() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, parentID, fullPath)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(result)
}

// UpdateFullPath rewrites the denormalized path of a single folder. Used
// when recomputing descendant paths after a rename or move.
func (r *PostgresRepository) UpdateFullPath(ctx context.Context, id string, fullPath string) error {
	query := `UPDATE folders SET full_path = $2, updated_at = now() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, fullPath)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(result)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM folders WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(result)
}

func collectFolders(rows *sql.Rows) ([]*models.Folder, error) {
	var result []*models.Folder
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, folder)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func requireOneRow(result sql.Result) error {
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}
