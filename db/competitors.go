// ABOUTME: Competitor database operations
// ABOUTME: Tracks rival vendors per deal
package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/crmlite/models"
)

const competitorColumns = `id, deal_id, name, strengths, weaknesses, status, notes, created_at, updated_at`

func scanCompetitor(row interface{ Scan(...any) error }) (*models.Competitor, error) {
	c := &models.Competitor{}
	err := row.Scan(&c.ID, &c.DealID, &c.Name, &c.Strengths, &c.Weaknesses, &c.Status, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) CreateCompetitor(ctx context.Context, competitor *models.Competitor) error {
	competitor.ID = uuid.New()
	now := time.Now().UTC()
	competitor.CreatedAt = now
	competitor.UpdatedAt = now
	if competitor.Status == "" {
		competitor.Status = models.CompetitorActive
	}

	_, err := s.exec(ctx, s.db, `
		INSERT INTO competitors (`+competitorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, competitor.ID.String(), competitor.DealID.String(), competitor.Name, competitor.Strengths,
		competitor.Weaknesses, competitor.Status, competitor.Notes, competitor.CreatedAt, competitor.UpdatedAt)
	return err
}

func (s *Store) GetCompetitor(ctx context.Context, id uuid.UUID) (*models.Competitor, error) {
	return scanCompetitor(s.queryRow(ctx, s.db, `SELECT `+competitorColumns+` FROM competitors WHERE id = ?`, id.String()))
}

func (s *Store) UpdateCompetitor(ctx context.Context, competitor *models.Competitor) error {
	competitor.UpdatedAt = time.Now().UTC()

	res, err := s.exec(ctx, s.db, `
		UPDATE competitors SET name = ?, strengths = ?, weaknesses = ?, status = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`, competitor.Name, competitor.Strengths, competitor.Weaknesses, competitor.Status, competitor.Notes,
		competitor.UpdatedAt, competitor.ID.String())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) FindCompetitors(ctx context.Context, dealID uuid.UUID) ([]*models.Competitor, error) {
	rows, err := s.query(ctx, s.db, `
		SELECT `+competitorColumns+` FROM competitors
		WHERE deal_id = ?
		ORDER BY created_at DESC
	`, dealID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	competitors := []*models.Competitor{}
	for rows.Next() {
		c, err := scanCompetitor(rows)
		if err != nil {
			return nil, err
		}
		competitors = append(competitors, c)
	}
	return competitors, rows.Err()
}

func (s *Store) DeleteCompetitor(ctx context.Context, id uuid.UUID) error {
	res, err := s.exec(ctx, s.db, `DELETE FROM competitors WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	return requireRow(res)
}
