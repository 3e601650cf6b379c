// ABOUTME: Deal database operations
// ABOUTME: Handles deal lifecycle, scoped listing, and last-activity lookups
package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/crmlite/models"
)

const dealColumns = `id, sales_rep_id, deal_name, client_company_name, stage, deal_value, gross_profit,
	expected_close_date, probability, forecast_category,
	meddic_metrics, meddic_economic_buyer, meddic_decision_criteria,
	meddic_decision_process, meddic_identify_pain, meddic_champion,
	created_at, updated_at`

func scanDeal(row interface{ Scan(...any) error }) (*models.Deal, error) {
	d := &models.Deal{}
	err := row.Scan(
		&d.ID,
		&d.SalesRepID,
		&d.DealName,
		&d.ClientCompanyName,
		&d.Stage,
		&d.DealValue,
		&d.GrossProfit,
		&d.ExpectedCloseDate,
		&d.Probability,
		&d.ForecastCategory,
		&d.MeddicMetrics,
		&d.MeddicEconomicBuyer,
		&d.MeddicDecisionCriteria,
		&d.MeddicDecisionProcess,
		&d.MeddicIdentifyPain,
		&d.MeddicChampion,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Store) CreateDeal(ctx context.Context, deal *models.Deal) error {
	deal.ID = uuid.New()
	now := time.Now().UTC()
	deal.CreatedAt = now
	deal.UpdatedAt = now

	if deal.Stage == "" {
		deal.Stage = models.StageCourting
	}
	if deal.ForecastCategory == "" {
		deal.ForecastCategory = models.ForecastPipeline
	}

	_, err := s.exec(ctx, s.db, `
		INSERT INTO deals (`+dealColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		deal.ID.String(), deal.SalesRepID.String(), deal.DealName, deal.ClientCompanyName,
		deal.Stage, deal.DealValue, deal.GrossProfit, deal.ExpectedCloseDate,
		deal.Probability, deal.ForecastCategory,
		deal.MeddicMetrics, deal.MeddicEconomicBuyer, deal.MeddicDecisionCriteria,
		deal.MeddicDecisionProcess, deal.MeddicIdentifyPain, deal.MeddicChampion,
		deal.CreatedAt, deal.UpdatedAt,
	)
	return err
}

func (s *Store) GetDeal(ctx context.Context, id uuid.UUID) (*models.Deal, error) {
	return scanDeal(s.queryRow(ctx, s.db, `SELECT `+dealColumns+` FROM deals WHERE id = ?`, id.String()))
}

// UpdateDeal writes every mutable column of deal and bumps updated_at.
// Ownership and creation time are never changed.
func (s *Store) UpdateDeal(ctx context.Context, deal *models.Deal) error {
	deal.UpdatedAt = time.Now().UTC()

	res, err := s.exec(ctx, s.db, `
		UPDATE deals SET
			deal_name = ?, client_company_name = ?, stage = ?, deal_value = ?, gross_profit = ?,
			expected_close_date = ?, probability = ?, forecast_category = ?,
			meddic_metrics = ?, meddic_economic_buyer = ?, meddic_decision_criteria = ?,
			meddic_decision_process = ?, meddic_identify_pain = ?, meddic_champion = ?,
			updated_at = ?
		WHERE id = ?
	`,
		deal.DealName, deal.ClientCompanyName, deal.Stage, deal.DealValue, deal.GrossProfit,
		deal.ExpectedCloseDate, deal.Probability, deal.ForecastCategory,
		deal.MeddicMetrics, deal.MeddicEconomicBuyer, deal.MeddicDecisionCriteria,
		deal.MeddicDecisionProcess, deal.MeddicIdentifyPain, deal.MeddicChampion,
		deal.UpdatedAt, deal.ID.String(),
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteDeal removes the deal; activities, contacts, competitors and file
// records go with it through ON DELETE CASCADE.
func (s *Store) DeleteDeal(ctx context.Context, id uuid.UUID) error {
	res, err := s.exec(ctx, s.db, `DELETE FROM deals WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	return requireRow(res)
}

// dealWhere renders filter as a WHERE clause. A non-nil empty Stages list
// matches nothing.
func dealWhere(filter models.DealFilter) (string, []any) {
	var conds []string
	var args []any

	if filter.SalesRepID != nil {
		conds = append(conds, "sales_rep_id = ?")
		args = append(args, filter.SalesRepID.String())
	}
	if filter.ClientCompanyName != nil {
		conds = append(conds, "client_company_name = ?")
		args = append(args, *filter.ClientCompanyName)
	}
	if filter.Stages != nil {
		if len(filter.Stages) == 0 {
			conds = append(conds, "1 = 0")
		} else {
			conds = append(conds, "stage IN ("+placeholders(len(filter.Stages))+")")
			args = append(args, stringArgs(filter.Stages)...)
		}
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// FindDeals lists deals matching filter, most recently updated first.
func (s *Store) FindDeals(ctx context.Context, filter models.DealFilter) ([]*models.Deal, error) {
	where, args := dealWhere(filter)
	query := `SELECT ` + dealColumns + ` FROM deals` + where + ` ORDER BY updated_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.query(ctx, s.db, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deals := []*models.Deal{}
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, deal)
	}
	return deals, rows.Err()
}

// LastActivityDate returns the newest activity_date for the deal, or nil when
// the deal has no activities.
func (s *Store) LastActivityDate(ctx context.Context, dealID uuid.UUID) (*time.Time, error) {
	rows, err := s.query(ctx, s.db, `
		SELECT activity_date FROM activities WHERE deal_id = ?
		ORDER BY activity_date DESC LIMIT 1
	`, dealID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var t time.Time
	if err := rows.Scan(&t); err != nil {
		return nil, err
	}
	return &t, nil
}
