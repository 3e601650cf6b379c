// ABOUTME: Activity database operations
// ABOUTME: Logging an activity touches the parent deal's updated_at in the same transaction
package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/crmlite/models"
)

const activityColumns = `id, deal_id, type, subject, notes, activity_date, next_steps, next_steps_due, created_at`

func scanActivity(row interface{ Scan(...any) error }) (*models.Activity, error) {
	a := &models.Activity{}
	err := row.Scan(&a.ID, &a.DealID, &a.Type, &a.Subject, &a.Notes, &a.ActivityDate, &a.NextSteps, &a.NextStepsDue, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// CreateActivity inserts the activity and bumps the deal's updated_at. Both
// writes commit together or not at all.
func (s *Store) CreateActivity(ctx context.Context, activity *models.Activity) error {
	activity.ID = uuid.New()
	now := time.Now().UTC()
	activity.CreatedAt = now
	if activity.ActivityDate.IsZero() {
		activity.ActivityDate = now
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := s.exec(ctx, tx, `UPDATE deals SET updated_at = ? WHERE id = ?`, now, activity.DealID.String())
		if err != nil {
			return err
		}
		if err := requireRow(res); err != nil {
			return err
		}

		_, err = s.exec(ctx, tx, `
			INSERT INTO activities (`+activityColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, activity.ID.String(), activity.DealID.String(), activity.Type, activity.Subject, activity.Notes,
			activity.ActivityDate, activity.NextSteps, activity.NextStepsDue, activity.CreatedAt)
		return err
	})
}

func (s *Store) GetActivity(ctx context.Context, id uuid.UUID) (*models.Activity, error) {
	return scanActivity(s.queryRow(ctx, s.db, `SELECT `+activityColumns+` FROM activities WHERE id = ?`, id.String()))
}

// FindActivities lists a deal's activities, newest activity_date first.
func (s *Store) FindActivities(ctx context.Context, dealID uuid.UUID) ([]*models.Activity, error) {
	rows, err := s.query(ctx, s.db, `
		SELECT `+activityColumns+` FROM activities
		WHERE deal_id = ?
		ORDER BY activity_date DESC, created_at DESC
	`, dealID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := []*models.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func (s *Store) DeleteActivity(ctx context.Context, id uuid.UUID) error {
	res, err := s.exec(ctx, s.db, `DELETE FROM activities WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	return requireRow(res)
}
