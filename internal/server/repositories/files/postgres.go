package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

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

const fileColumns = `id, owner_id, folder_id, file_name, original_name, object_key, file_size, content_type,
	uploaded_at, last_modified, is_public, public_token, public_token_created_at, upload_status`

func scanFile(row interface{ Scan(...any) error }) (*models.File, error) {
	file := &models.File{}
	err := row.Scan(&file.ID, &file.OwnerID, &file.FolderID, &file.FileName, &file.OriginalName,
		&file.ObjectKey, &file.FileSize, &file.ContentType, &file.UploadedAt, &file.LastModified,
		&file.IsPublic, &file.PublicToken, &file.PublicTokenCreatedAt, &file.UploadStatus)
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (r *PostgresRepository) Create(ctx context.Context, file *models.File) (*models.File, error) {
	query :=
		`INSERT INTO files (id, owner_id, folder_id, file_name, original_name, object_key, file_size, content_type, upload_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING uploaded_at, last_modified
		 `

	err := r.db.QueryRowContext(ctx, query,
		file.ID, file.OwnerID, file.FolderID, file.FileName, file.OriginalName,
		file.ObjectKey, file.FileSize, file.ContentType, file.UploadStatus).
		Scan(&file.UploadedAt, &file.LastModified)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return file, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`

	file, err := scanFile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return file, nil
}

func (r *PostgresRepository) GetByPublicToken(ctx context.Context, token string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE public_token = $1 AND is_public = TRUE`

	file, err := scanFile(r.db.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return file, nil
}

// buildWhere renders the WHERE clause for a filter. Placeholders start
// at $1 with the owner id.
func buildWhere(filter ListFilter) (string, []any) {
	conds := []string{"owner_id = $1"}
	args := []any{filter.OwnerID}

	if filter.InFolder {
		args = append(args, filter.FolderID)
		conds = append(conds, "folder_id IS NOT DISTINCT FROM $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, "upload_status = $"+strconv.Itoa(len(args)))
	}
	if filter.Query != "" {
		args = append(args, filter.Query)
		conds = append(conds, "file_name ILIKE '%' || $"+strconv.Itoa(len(args))+" || '%'")
	}

	return strings.Join(conds, " AND "), args
}

func orderClause(filter ListFilter) string {
	col := "file_name"
	switch filter.SortBy {
	case "size":
		col = "file_size"
	case "date":
		col = "uploaded_at"
	}
	dir := "ASC"
	if filter.SortDesc {
		dir = "DESC"
	}
	return " ORDER BY " + col + " " + dir
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*models.File, error) {
	where, args := buildWhere(filter)
	query := `SELECT ` + fileColumns + ` FROM files WHERE ` + where + orderClause(filter)

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	return collectFiles(rows)
}

func (r *PostgresRepository) Count(ctx context.Context, filter ListFilter) (int64, error) {
	where, args := buildWhere(filter)
	query := `SELECT COUNT(*) FROM files WHERE ` + where

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}

// ListByIDsAndOwner returns only the requested files that belong to
// ownerID. Ids of missing or foreign files are silently dropped.
func (r *PostgresRepository) ListByIDsAndOwner(ctx context.Context, ownerID string, ids []string) ([]*models.File, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, ownerID)
	for i, id := range ids {
		args = append(args, id)
		placeholders[i] = "$" + strconv.Itoa(len(args))
	}

	query := `SELECT ` + fileColumns + ` FROM files
		 WHERE owner_id = $1 AND id IN (` + strings.Join(placeholders, ", ") + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	return collectFiles(rows)
}

// SumCompletedSize totals file_size over completed uploads. Pending and
// failed records never count against the quota.
func (r *PostgresRepository) SumCompletedSize(ctx context.Context, ownerID string) (int64, error) {
	query := `SELECT COALESCE(SUM(file_size), 0) FROM files WHERE owner_id = $1 AND upload_status = $2`

	var total int64
	if err := r.db.QueryRowContext(ctx, query, ownerID, models.UploadStatusCompleted).Scan(&total); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return total, nil
}

// MarkCompleted finalizes a confirmed upload. An empty contentType keeps
// the one declared at request time.
func (r *PostgresRepository) MarkCompleted(ctx context.Context, id string, size int64, contentType string) error {
	query := `UPDATE files SET upload_status = $2, file_size = $3,
		 content_type = COALESCE(NULLIF($4, ''), content_type), last_modified = now() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, models.UploadStatusCompleted, size, contentType)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(result)
}

func (r *PostgresRepository) MarkFailed(ctx context.Context, id string) error {
	query := `UPDATE files SET upload_status = $2, last_modified = now() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, models.UploadStatusFailed)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(result)
}

func (r *PostgresRepository) Rename(ctx context.Context, id string, fileName string) error {
	query := `UPDATE files SET file_name = $2, last_modified = now() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, fileName)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(result)
}

func (r *PostgresRepository) Move(ctx context.Context, id string, folderID *string) error {
	query := `UPDATE files SET folder_id = $2, last_modified = now() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, folderID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(result)
}

func (r *PostgresRepository) SetPublicToken(ctx context.Context, id string, token *string, isPublic bool, createdAt *time.Time) error {
	query := `UPDATE files SET public_token = $2, is_public = $3, public_token_created_at = $4 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, token, isPublic, createdAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(result)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM files WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireOneRow(result)
}

func collectFiles(rows *sql.Rows) ([]*models.File, error) {
	var result []*models.File
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, file)
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
