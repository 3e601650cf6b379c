// ABOUTME: File metadata database operations
// ABOUTME: Records point at blobs kept outside the database
package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/crmlite/models"
)

const fileColumns = `id, deal_id, filename, filepath, category, size, uploaded_at`

func scanFile(row interface{ Scan(...any) error }) (*models.File, error) {
	f := &models.File{}
	err := row.Scan(&f.ID, &f.DealID, &f.Filename, &f.Filepath, &f.Category, &f.Size, &f.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Store) CreateFile(ctx context.Context, file *models.File) error {
	file.ID = uuid.New()
	file.UploadedAt = time.Now().UTC()
	if file.Category == "" {
		file.Category = models.FileInternal
	}

	_, err := s.exec(ctx, s.db, `
		INSERT INTO files (`+fileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, file.ID.String(), file.DealID.String(), file.Filename, file.Filepath, file.Category, file.Size, file.UploadedAt)
	return err
}

func (s *Store) GetFile(ctx context.Context, id uuid.UUID) (*models.File, error) {
	return scanFile(s.queryRow(ctx, s.db, `SELECT `+fileColumns+` FROM files WHERE id = ?`, id.String()))
}

// FindFiles lists a deal's files, newest first. A nil categories slice lists
// every category; an empty one lists nothing.
func (s *Store) FindFiles(ctx context.Context, dealID uuid.UUID, categories []string) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE deal_id = ?`
	args := []any{dealID.String()}
	if categories != nil {
		if len(categories) == 0 {
			return []*models.File{}, nil
		}
		query += ` AND category IN (` + placeholders(len(categories)) + `)`
		args = append(args, stringArgs(categories)...)
	}
	query += ` ORDER BY uploaded_at DESC`

	rows, err := s.query(ctx, s.db, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []*models.File{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *Store) DeleteFile(ctx context.Context, id uuid.UUID) error {
	res, err := s.exec(ctx, s.db, `DELETE FROM files WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	return requireRow(res)
}
