// ABOUTME: Aggregate queries backing the sales rep dashboard
// ABOUTME: Won value since a date and deal counts grouped by stage
package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/crmlite/models"
)

// WonValueSince sums deal_value of the rep's WON deals last updated at or after since.
func (s *Store) WonValueSince(ctx context.Context, salesRepID uuid.UUID, since time.Time) (float64, error) {
	var total float64
	err := s.queryRow(ctx, s.db, `
		SELECT COALESCE(SUM(deal_value), 0) FROM deals
		WHERE sales_rep_id = ? AND stage = ? AND updated_at >= ?
	`, salesRepID.String(), models.StageWon, since.UTC()).Scan(&total)
	return total, err
}

// CountDealsByStage groups the rep's deals by stage. Stages with no deals are omitted.
func (s *Store) CountDealsByStage(ctx context.Context, salesRepID uuid.UUID) ([]models.StageCount, error) {
	rows, err := s.query(ctx, s.db, `
		SELECT stage, COUNT(*) FROM deals
		WHERE sales_rep_id = ?
		GROUP BY stage
		ORDER BY stage
	`, salesRepID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []models.StageCount{}
	for rows.Next() {
		var sc models.StageCount
		if err := rows.Scan(&sc.Stage, &sc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, sc)
	}
	return counts, rows.Err()
}
